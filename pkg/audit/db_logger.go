package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBLogger persists audit events to a SQL table.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed audit logger.
func NewDBLogger(db *sql.DB) *DBLogger {
	return &DBLogger{db: db}
}

// Schema is the DDL for the audit table. Compatible with PostgreSQL and the
// sqlite databases used in tests.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id INTEGER PRIMARY KEY,
	timestamp TIMESTAMP NOT NULL,
	event_type TEXT NOT NULL,
	status TEXT NOT NULL,
	user_id TEXT,
	user_role TEXT,
	workflow_id TEXT,
	workflow_type TEXT,
	details TEXT
)`

// EnsureSchema creates the audit table when absent.
func (l *DBLogger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// LogEvent writes one event. The timestamp defaults to now when unset.
func (l *DBLogger) LogEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("nil audit event")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	details, err := event.MarshalDetails()
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_events (timestamp, event_type, status, user_id, user_role, workflow_id, workflow_type, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = l.db.ExecContext(ctx, query,
		event.Timestamp,
		string(event.EventType),
		string(event.Status),
		event.UserID,
		event.UserRole,
		event.WorkflowID,
		event.WorkflowType,
		details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query returns events for a workflow, newest first.
func (l *DBLogger) Query(ctx context.Context, workflowID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, timestamp, event_type, status, user_id, user_role, workflow_id, workflow_type
		FROM audit_events
		WHERE workflow_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := l.db.QueryContext(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var eventType, status string
		if err := rows.Scan(&e.ID, &e.Timestamp, &eventType, &status,
			&e.UserID, &e.UserRole, &e.WorkflowID, &e.WorkflowType); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.EventType = EventType(eventType)
		e.Status = EventStatus(status)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Close releases nothing; the caller owns the *sql.DB.
func (l *DBLogger) Close() error { return nil }
