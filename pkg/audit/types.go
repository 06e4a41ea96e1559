// Package audit records an immutable trail of approval and authorization
// decisions. Events are append-only; nothing in this package updates or
// deletes a written entry.
package audit

import (
	"encoding/json"
	"time"
)

// EventType categorizes an audit event.
type EventType string

const (
	// Workflow lifecycle events
	EventTypeWorkflowSubmit  EventType = "workflow.submit"
	EventTypeWorkflowApprove EventType = "workflow.approve"
	EventTypeWorkflowReject  EventType = "workflow.reject"

	// Authorization events
	EventTypeAuthzGateDenied        EventType = "authz.gate_denied"
	EventTypeAuthzTokenValidateFail EventType = "authz.token_validate_fail"

	// Session events
	EventTypeAuthLogin  EventType = "auth.login"
	EventTypeAuthLogout EventType = "auth.logout"
)

// EventStatus is the outcome of the audited action.
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit log entry.
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	UserID   string `json:"user_id,omitempty"`
	UserRole string `json:"user_role,omitempty"`

	// Subject
	WorkflowID   string `json:"workflow_id,omitempty"`
	WorkflowType string `json:"workflow_type,omitempty"`

	// Free-form context (comments, denial reason)
	Details map[string]string `json:"details,omitempty"`
}

// MarshalDetails serializes the details map for storage. Empty maps encode
// as an empty string.
func (e *Event) MarshalDetails() (string, error) {
	if len(e.Details) == 0 {
		return "", nil
	}
	data, err := json.Marshal(e.Details)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
