package visibility

import (
	"testing"

	"github.com/agroline/fieldops/pkg/hierarchy"
)

func TestAggregate(t *testing.T) {
	entries := []Entry{
		{ID: "e1", Zone: "West", SubmittedBy: "U1", TotalValue: 1000, Quantity: 50, DistributorID: "D1", RetailerID: "R1"},
		{ID: "e2", Zone: "West", SubmittedBy: "U2", TotalValue: 500, Quantity: 25, DistributorID: "D1", RetailerID: "R2"},
		{ID: "e3", Zone: "West", SubmittedBy: "U3", DistributorID: "D2"}, // no numeric fields, no retailer
		{ID: "e4", Zone: "East", SubmittedBy: "U4", TotalValue: 9999, Quantity: 9999, DistributorID: "D9"},
	}
	user := UserContext{ID: "U9", Role: hierarchy.RoleZBH, Zone: "West"}

	got := Aggregate(entries, user, nil)

	if got.TotalValue != 1500 {
		t.Errorf("TotalValue = %v, want 1500", got.TotalValue)
	}
	if got.TotalQuantity != 75 {
		t.Errorf("TotalQuantity = %v, want 75", got.TotalQuantity)
	}
	if got.UniqueDistributors != 2 {
		t.Errorf("UniqueDistributors = %d, want 2", got.UniqueDistributors)
	}
	if got.UniqueRetailers != 2 {
		t.Errorf("UniqueRetailers = %d, want 2", got.UniqueRetailers)
	}
	if got.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", got.TotalEntries)
	}
}

func TestAggregateEmptyVisibleSet(t *testing.T) {
	entries := []Entry{
		{ID: "e1", Zone: "East", SubmittedBy: "U1", TotalValue: 100},
	}
	user := UserContext{ID: "U9", Role: hierarchy.RoleZBH, Zone: "West"}

	got := Aggregate(entries, user, nil)
	if got != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", got)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	entries := sampleEntries()
	user := UserContext{ID: "U9", Role: hierarchy.RoleAdmin}

	a := Aggregate(entries, user, nil)
	b := Aggregate(entries, user, nil)
	if a != b {
		t.Errorf("aggregate not deterministic: %+v vs %+v", a, b)
	}
}
