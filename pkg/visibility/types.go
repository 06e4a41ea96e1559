// Package visibility implements the role-based record filtering rules: which
// liquidation entries and approval workflows a user may see, and the
// aggregates computed over the visible subset. Every function here is a pure
// computation over an already-fetched snapshot; fetching, rendering, and
// mutation live elsewhere.
package visibility

import "github.com/agroline/fieldops/pkg/hierarchy"

// UserContext identifies the viewer: who they are, what role they hold, and
// where they sit geographically. Supplied by the session layer.
type UserContext struct {
	ID        string         `json:"id"`
	Role      hierarchy.Role `json:"role"`
	Territory string         `json:"territory,omitempty"`
	State     string         `json:"state,omitempty"`
	Zone      string         `json:"zone,omitempty"`
}

// Entry is one filterable record: a liquidation row, claim line, or any other
// geographically scoped submission. Absent numeric fields are zero and are
// treated as such by aggregation.
type Entry struct {
	ID              string         `json:"id"`
	Territory       string         `json:"territory,omitempty"`
	State           string         `json:"state,omitempty"`
	Zone            string         `json:"zone,omitempty"`
	SubmittedBy     string         `json:"submitted_by"`
	SubmittedByRole hierarchy.Role `json:"submitted_by_role,omitempty"`
	TotalValue      float64        `json:"total_value,omitempty"`
	Quantity        float64        `json:"quantity,omitempty"`
	DistributorID   string         `json:"distributor_id,omitempty"`
	RetailerID      string         `json:"retailer_id,omitempty"`
}
