package visibility

import (
	"reflect"
	"testing"

	"github.com/agroline/fieldops/pkg/hierarchy"
)

func sampleEntries() []Entry {
	return []Entry{
		{ID: "e1", Territory: "North Delhi", State: "Delhi", Zone: "North", SubmittedBy: "U1"},
		{ID: "e2", Territory: "South Delhi", State: "Delhi", Zone: "North", SubmittedBy: "U2"},
		{ID: "e3", Territory: "Pune City", State: "Maharashtra", Zone: "West", SubmittedBy: "U3"},
		{ID: "e4", Territory: "Nagpur", State: "Maharashtra", Zone: "West", SubmittedBy: "U4"},
		{ID: "e5", Territory: "", State: "", Zone: "", SubmittedBy: "U9"},
	}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestFilterEntriesByScope(t *testing.T) {
	entries := sampleEntries()

	tests := []struct {
		name string
		user UserContext
		subs []string
		want []string
	}{
		{
			name: "territory scope keeps territory match plus own submissions",
			user: UserContext{ID: "U9", Role: hierarchy.RoleMDO, Territory: "North Delhi"},
			want: []string{"e1", "e5"},
		},
		{
			name: "TSM sees state+territory, subordinates, and self",
			user: UserContext{ID: "U9", Role: hierarchy.RoleTSM, Territory: "Pune City", State: "Maharashtra"},
			subs: []string{"U2"},
			want: []string{"e2", "e3", "e5"},
		},
		{
			name: "RBH sees whole state plus own submissions",
			user: UserContext{ID: "U9", Role: hierarchy.RoleRBH, State: "Maharashtra"},
			want: []string{"e3", "e4", "e5"},
		},
		{
			name: "RMM sees whole state like RBH",
			user: UserContext{ID: "U9", Role: hierarchy.RoleRMM, State: "Delhi"},
			want: []string{"e1", "e2", "e5"},
		},
		{
			name: "zone scope plus own submissions",
			user: UserContext{ID: "U9", Role: hierarchy.RoleZBH, Zone: "West"},
			want: []string{"e3", "e4", "e5"},
		},
		{
			name: "all scope keeps everything",
			user: UserContext{ID: "U9", Role: hierarchy.RoleVP},
			want: []string{"e1", "e2", "e3", "e4", "e5"},
		},
		{
			name: "unknown role falls back to territory scope",
			user: UserContext{ID: "U2", Role: hierarchy.Role("CONTRACTOR"), Territory: "Nagpur"},
			want: []string{"e2", "e4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterEntries(entries, tt.user, tt.subs))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterEntries() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Scenario from the source system: an MDO in North Delhi sees only the entry
// from their own territory.
func TestFilterEntriesMDOScenario(t *testing.T) {
	entries := []Entry{
		{ID: "a", SubmittedBy: "U1", Territory: "North Delhi"},
		{ID: "b", SubmittedBy: "U2", Territory: "South Delhi"},
	}
	user := UserContext{ID: "U9", Role: hierarchy.RoleMDO, Territory: "North Delhi"}

	got := FilterEntries(entries, user, nil)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("expected only the North Delhi entry, got %v", ids(got))
	}
}

// Filtering twice yields the same result as filtering once.
func TestFilterEntriesIdempotent(t *testing.T) {
	entries := sampleEntries()
	users := []UserContext{
		{ID: "U9", Role: hierarchy.RoleMDO, Territory: "North Delhi"},
		{ID: "U9", Role: hierarchy.RoleTSM, State: "Delhi", Territory: "North Delhi"},
		{ID: "U9", Role: hierarchy.RoleZBH, Zone: "West"},
		{ID: "U9", Role: hierarchy.RoleAdmin},
		{ID: "U9", Role: hierarchy.Role("???")},
	}

	for _, u := range users {
		once := FilterEntries(entries, u, nil)
		twice := FilterEntries(once, u, nil)
		if !reflect.DeepEqual(ids(once), ids(twice)) {
			t.Errorf("role %s: filter not idempotent: %v vs %v", u.Role, ids(once), ids(twice))
		}
	}
}

// Own submissions are always visible under every role's scope.
func TestFilterEntriesSelfVisibility(t *testing.T) {
	entries := sampleEntries() // e5 is submitted by U9 with blank geography

	for _, d := range hierarchy.Roles() {
		u := UserContext{ID: "U9", Role: d.Code, Territory: "Nowhere", State: "Nowhere", Zone: "Nowhere"}
		got := FilterEntries(entries, u, nil)
		found := false
		for _, e := range got {
			if e.ID == "e5" {
				found = true
			}
		}
		if !found {
			t.Errorf("role %s: own submission e5 not visible", d.Code)
		}
	}
}

// The "all" scope is a superset of every narrower scope over the same input.
func TestFilterEntriesScopeMonotonicity(t *testing.T) {
	entries := sampleEntries()
	all := FilterEntries(entries, UserContext{ID: "U9", Role: hierarchy.RoleAdmin}, nil)

	allSet := make(map[string]struct{}, len(all))
	for _, e := range all {
		allSet[e.ID] = struct{}{}
	}

	narrower := []UserContext{
		{ID: "U9", Role: hierarchy.RoleMDO, Territory: "North Delhi"},
		{ID: "U9", Role: hierarchy.RoleTSM, State: "Delhi", Territory: "North Delhi"},
		{ID: "U9", Role: hierarchy.RoleRBH, State: "Maharashtra"},
		{ID: "U9", Role: hierarchy.RoleZBH, Zone: "North"},
	}
	for _, u := range narrower {
		for _, e := range FilterEntries(entries, u, nil) {
			if _, ok := allSet[e.ID]; !ok {
				t.Errorf("role %s sees %s which the all scope does not", u.Role, e.ID)
			}
		}
	}
}

func TestFilterEntriesDoesNotMutateInput(t *testing.T) {
	entries := sampleEntries()
	before := ids(entries)
	FilterEntries(entries, UserContext{ID: "U9", Role: hierarchy.RoleMDO, Territory: "North Delhi"}, nil)
	if !reflect.DeepEqual(before, ids(entries)) {
		t.Error("input slice was reordered")
	}
}

func TestFilterEntriesEmptyInput(t *testing.T) {
	got := FilterEntries(nil, UserContext{ID: "U9", Role: hierarchy.RoleVP}, nil)
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", ids(got))
	}
}
