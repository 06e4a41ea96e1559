package approval

import "github.com/agroline/fieldops/pkg/hierarchy"

// Gate decides whether an actor may approve or reject a workflow at this
// instant. It is a pure predicate: it never mutates the workflow and never
// computes the next approver.
type Gate struct{}

// NewGate creates a new approval gate.
func NewGate() *Gate {
	return &Gate{}
}

// CanApprove reports whether the actor may act on the workflow right now.
// All of the following must hold:
//   - the workflow is still pending
//   - the actor did not submit the workflow (self-approval is forbidden)
//   - the actor's role is the workflow's current approver role
//
// Malformed or missing fields yield false rather than an error; the caller
// cannot distinguish "not your turn" from "broken record", and that is
// intentional: neither may act.
func (g *Gate) CanApprove(w *Workflow, actorRole hierarchy.Role, actorID string) bool {
	if w == nil {
		return false
	}
	if w.Status != StatusPending {
		return false
	}
	if actorID == "" || actorRole == "" {
		return false
	}
	if w.SubmittedBy == actorID {
		return false
	}
	return w.CurrentApproverRole == actorRole
}
