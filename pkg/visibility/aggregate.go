package visibility

// Summary is the reduction over a user's visible entries.
type Summary struct {
	TotalValue         float64 `json:"total_value"`
	TotalQuantity      float64 `json:"total_quantity"`
	UniqueDistributors int     `json:"unique_distributors"`
	UniqueRetailers    int     `json:"unique_retailers"`
	TotalEntries       int     `json:"total_entries"`
}

// Aggregate filters entries for the user and reduces the visible subset.
// Deterministic for a given input; zero-valued fields contribute zero.
func Aggregate(entries []Entry, user UserContext, subordinateIDs []string) Summary {
	visible := FilterEntries(entries, user, subordinateIDs)

	distributors := make(map[string]struct{})
	retailers := make(map[string]struct{})

	var s Summary
	for _, e := range visible {
		s.TotalValue += e.TotalValue
		s.TotalQuantity += e.Quantity
		if e.DistributorID != "" {
			distributors[e.DistributorID] = struct{}{}
		}
		if e.RetailerID != "" {
			retailers[e.RetailerID] = struct{}{}
		}
	}

	s.UniqueDistributors = len(distributors)
	s.UniqueRetailers = len(retailers)
	s.TotalEntries = len(visible)
	return s
}
