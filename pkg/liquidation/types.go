// Package liquidation models distributor stock depletion: per-distributor
// opening stock, year-to-date sales, liquidated quantity, and balance, each
// as a {volume, value} pair. Entries are refreshed snapshots from the field;
// this package filters, aggregates, and rolls them up, it never edits them.
package liquidation

import (
	"time"

	"github.com/agroline/fieldops/pkg/hierarchy"
	"github.com/agroline/fieldops/pkg/visibility"
)

// Measure is a volume/value pair. Volume is in units (bags, litres), value
// in currency.
type Measure struct {
	Volume float64 `json:"volume"`
	Value  float64 `json:"value"`
}

// Entry is one distributor's stock position snapshot.
type Entry struct {
	ID              string         `json:"id"`
	DistributorID   string         `json:"distributor_id"`
	DistributorName string         `json:"distributor_name,omitempty"`
	RetailerID      string         `json:"retailer_id,omitempty"`
	Territory       string         `json:"territory,omitempty"`
	State           string         `json:"state,omitempty"`
	Zone            string         `json:"zone,omitempty"`
	SubmittedBy     string         `json:"submitted_by"`
	SubmittedByRole hierarchy.Role `json:"submitted_by_role,omitempty"`

	OpeningStock Measure `json:"opening_stock"`
	YTDSales     Measure `json:"ytd_sales"`
	Liquidated   Measure `json:"liquidated"`
	BalanceStock Measure `json:"balance_stock"`

	AsOf time.Time `json:"as_of"`
}

// VisibilityEntry projects the snapshot onto the generic filterable record:
// liquidated value and volume become the aggregate's value and quantity.
func (e Entry) VisibilityEntry() visibility.Entry {
	return visibility.Entry{
		ID:              e.ID,
		Territory:       e.Territory,
		State:           e.State,
		Zone:            e.Zone,
		SubmittedBy:     e.SubmittedBy,
		SubmittedByRole: e.SubmittedByRole,
		TotalValue:      e.Liquidated.Value,
		Quantity:        e.Liquidated.Volume,
		DistributorID:   e.DistributorID,
		RetailerID:      e.RetailerID,
	}
}

// VisibilityEntries projects a snapshot list, preserving order.
func VisibilityEntries(entries []Entry) []visibility.Entry {
	out := make([]visibility.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.VisibilityEntry()
	}
	return out
}
