package liquidation

import (
	"context"
	"testing"

	"github.com/agroline/fieldops/pkg/hierarchy"
	"github.com/agroline/fieldops/pkg/visibility"
)

func seedService(t *testing.T) *Service {
	t.Helper()
	db := setupTestDB(t)
	store := NewStore(db)
	svc := NewService(store)
	ctx := context.Background()

	north := sampleEntry("e1", "Ludhiana")
	north.SubmittedBy = "mdo-1"

	other := sampleEntry("e2", "Patiala")
	other.SubmittedBy = "mdo-2"

	south := sampleEntry("e3", "Coimbatore")
	south.State = "Tamil Nadu"
	south.Zone = "South"
	south.SubmittedBy = "mdo-3"

	for _, e := range []*Entry{north, other, south} {
		if err := svc.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	return svc
}

func TestServiceEntriesScopedToTerritory(t *testing.T) {
	svc := seedService(t)

	mdo := visibility.UserContext{ID: "mdo-1", Role: hierarchy.RoleMDO, Territory: "Ludhiana"}
	entries, err := svc.Entries(context.Background(), mdo, nil)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "e1" {
		t.Fatalf("expected only own-territory entry, got %+v", entries)
	}
}

func TestServiceEntriesScopedToState(t *testing.T) {
	svc := seedService(t)

	rbh := visibility.UserContext{ID: "rbh-1", Role: hierarchy.RoleRBH, State: "Punjab"}
	entries, err := svc.Entries(context.Background(), rbh, nil)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both Punjab entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.State != "Punjab" {
			t.Errorf("entry %s outside state scope", e.ID)
		}
	}
}

func TestServiceEntriesIncludeSubordinateSubmissions(t *testing.T) {
	svc := seedService(t)
	ctx := context.Background()

	tsm := visibility.UserContext{ID: "tsm-1", Role: hierarchy.RoleTSM, State: "Punjab", Territory: "Ludhiana"}

	// Without the subordinate list only the territory entry is visible.
	entries, err := svc.Entries(ctx, tsm, nil)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "e1" {
		t.Fatalf("expected only the Ludhiana entry, got %+v", entries)
	}

	// mdo-3 reports to this TSM; their Tamil Nadu entry comes into view.
	entries, err = svc.Entries(ctx, tsm, []string{"mdo-3"})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	got := map[string]bool{}
	for _, e := range entries {
		got[e.ID] = true
	}
	if len(entries) != 2 || !got["e1"] || !got["e3"] {
		t.Fatalf("expected e1 and the subordinate's e3, got %+v", entries)
	}

	summary, err := svc.Summary(ctx, tsm, []string{"mdo-3"})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalEntries != 2 {
		t.Errorf("summary entries = %d, want 2", summary.TotalEntries)
	}
}

func TestServiceSummaryMatchesVisibleEntries(t *testing.T) {
	svc := seedService(t)

	vp := visibility.UserContext{ID: "vp-1", Role: hierarchy.RoleVP}
	summary, err := svc.Summary(context.Background(), vp, nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalEntries != 3 {
		t.Errorf("expected 3 entries for all-scope viewer, got %d", summary.TotalEntries)
	}
	if summary.TotalValue != 60000 {
		t.Errorf("expected total liquidated value 60000, got %v", summary.TotalValue)
	}
	if summary.UniqueDistributors != 3 {
		t.Errorf("expected 3 distributors, got %d", summary.UniqueDistributors)
	}
}

func TestServiceSummaryCachedPerViewer(t *testing.T) {
	svc := seedService(t)
	ctx := context.Background()

	mdo := visibility.UserContext{ID: "mdo-1", Role: hierarchy.RoleMDO, Territory: "Ludhiana"}
	vp := visibility.UserContext{ID: "vp-1", Role: hierarchy.RoleVP}

	mdoSummary, err := svc.Summary(ctx, mdo, nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	vpSummary, err := svc.Summary(ctx, vp, nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if mdoSummary.TotalEntries == vpSummary.TotalEntries {
		t.Error("viewers with different scopes must not share a summary")
	}

	stats := svc.summaries.Stats()
	if stats.ItemCount != 2 {
		t.Errorf("expected 2 cached summaries, got %d", stats.ItemCount)
	}

	// Warm read hits the cache.
	if _, err := svc.Summary(ctx, mdo, nil); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if svc.summaries.Stats().Hits == 0 {
		t.Error("expected warm summary read to hit the cache")
	}
}

func TestServiceRecordInvalidatesSummaries(t *testing.T) {
	svc := seedService(t)
	ctx := context.Background()

	mdo := visibility.UserContext{ID: "mdo-1", Role: hierarchy.RoleMDO, Territory: "Ludhiana"}
	before, err := svc.Summary(ctx, mdo, nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	extra := sampleEntry("e4", "Ludhiana")
	extra.SubmittedBy = "mdo-1"
	extra.Liquidated = Measure{Volume: 5, Value: 2500}
	if err := svc.Record(ctx, extra); err != nil {
		t.Fatalf("Record: %v", err)
	}

	after, err := svc.Summary(ctx, mdo, nil)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if after.TotalEntries != before.TotalEntries+1 {
		t.Errorf("expected summary to reflect new entry, got %d entries", after.TotalEntries)
	}
	if after.TotalValue != before.TotalValue+2500 {
		t.Errorf("expected value to grow by 2500, got %v after %v", after.TotalValue, before.TotalValue)
	}
}
