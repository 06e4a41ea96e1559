package approval

import "errors"

var (
	// ErrNotFound is returned when a workflow id does not exist.
	ErrNotFound = errors.New("workflow not found")

	// ErrNotPending is returned when acting on a closed workflow.
	ErrNotPending = errors.New("workflow is not pending")

	// ErrNotAuthorized is returned when the gate refuses the actor.
	ErrNotAuthorized = errors.New("actor may not act on this workflow")

	// ErrUnknownType is returned for an unrecognized workflow type.
	ErrUnknownType = errors.New("unknown workflow type")

	// ErrNoTemplate is returned when no approval chain is configured for a
	// workflow type.
	ErrNoTemplate = errors.New("no approval chain template for workflow type")

	// ErrEmptyChain is returned when a submission would produce a chain with
	// no actionable step.
	ErrEmptyChain = errors.New("approval chain has no pending step")
)
