package visibility

import (
	"github.com/agroline/fieldops/pkg/approval"
	"github.com/agroline/fieldops/pkg/hierarchy"
)

// FilterWorkflows returns the approval workflows visible to the viewer. A
// workflow is visible when any of the following holds:
//   - it is pending and its current approver role is the viewer's role
//   - the viewer submitted it (matching role or exact user id)
//   - the viewer already acted on it (their id appears in the chain)
//   - the viewer's hierarchy level strictly exceeds the submitter's; a
//     superior sees subordinate-submitted workflows whether or not they sit
//     in the chain
//
// Order is preserved and nothing is duplicated. Unknown roles compare at
// level 0, so they see only their own submissions and turns.
func FilterWorkflows(workflows []approval.Workflow, viewer UserContext) []approval.Workflow {
	out := make([]approval.Workflow, 0, len(workflows))
	for _, w := range workflows {
		if workflowVisible(&w, viewer) {
			out = append(out, w)
		}
	}
	return out
}

func workflowVisible(w *approval.Workflow, viewer UserContext) bool {
	if w.Status == approval.StatusPending && w.CurrentApproverRole == viewer.Role && viewer.Role != "" {
		return true
	}
	if w.SubmittedBy == viewer.ID && viewer.ID != "" {
		return true
	}
	if w.SubmittedByRole == viewer.Role && viewer.Role != "" {
		return true
	}
	for _, step := range w.Chain {
		if step.ApproverUserID != "" && step.ApproverUserID == viewer.ID {
			return true
		}
	}
	return hierarchy.Outranks(viewer.Role, w.SubmittedByRole)
}
