package audit

import "context"

// Logger writes audit events to a backing store.
type Logger interface {
	// LogEvent records a single event. Implementations must not block the
	// caller's critical path on transient failures.
	LogEvent(ctx context.Context, event *Event) error

	// Close flushes and releases resources.
	Close() error
}

// NopLogger discards all events. Used in tests and when auditing is disabled.
type NopLogger struct{}

// NewNopLogger creates a logger that discards everything.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

// LogEvent discards the event.
func (n *NopLogger) LogEvent(ctx context.Context, event *Event) error { return nil }

// Close is a no-op.
func (n *NopLogger) Close() error { return nil }
