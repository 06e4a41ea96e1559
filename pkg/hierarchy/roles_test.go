package hierarchy

import "testing"

func TestScopeFor(t *testing.T) {
	tests := []struct {
		role     Role
		expected Scope
	}{
		{RoleMDO, ScopeTerritory},
		{RoleTSM, ScopeState},
		{RoleRBH, ScopeState},
		{RoleRMM, ScopeState},
		{RoleZBH, ScopeZone},
		{RoleMH, ScopeAll},
		{RoleVP, ScopeAll},
		{RoleMD, ScopeAll},
		{RoleCFO, ScopeAll},
		{RoleCHRO, ScopeAll},
		{RoleAdmin, ScopeAll},
		{Role("INTERN"), ScopeTerritory}, // unknown falls back to narrowest
		{Role(""), ScopeTerritory},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := ScopeFor(tt.role); got != tt.expected {
				t.Errorf("ScopeFor(%q) = %q, want %q", tt.role, got, tt.expected)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		role     Role
		expected int
	}{
		{RoleMDO, 1},
		{RoleTSM, 2},
		{RoleRBH, 3},
		{RoleRMM, 3},
		{RoleZBH, 4},
		{RoleMH, 5},
		{RoleVP, 6},
		{RoleMD, 7},
		{RoleCFO, 7},
		{RoleCHRO, 7},
		{RoleAdmin, 8},
		{Role("UNKNOWN"), 0},
	}

	for _, tt := range tests {
		if got := Level(tt.role); got != tt.expected {
			t.Errorf("Level(%q) = %d, want %d", tt.role, got, tt.expected)
		}
	}
}

func TestOutranks(t *testing.T) {
	if !Outranks(RoleZBH, RoleTSM) {
		t.Error("ZBH should outrank TSM")
	}
	if Outranks(RoleTSM, RoleZBH) {
		t.Error("TSM should not outrank ZBH")
	}
	// Peers never outrank each other.
	if Outranks(RoleRBH, RoleRMM) || Outranks(RoleRMM, RoleRBH) {
		t.Error("RBH and RMM are peers")
	}
	// Unknown roles are subordinate to everyone and superior to no one.
	if Outranks(Role("GHOST"), RoleMDO) {
		t.Error("unknown role should not outrank MDO")
	}
	if !Outranks(RoleMDO, Role("GHOST")) {
		t.Error("MDO should outrank an unknown role")
	}
	if Outranks(Role("GHOST"), Role("PHANTOM")) {
		t.Error("two unknown roles are level 0 peers")
	}
}

func TestKnownRole(t *testing.T) {
	if !KnownRole(RoleVP) {
		t.Error("VP should be known")
	}
	if KnownRole(Role("vp")) {
		t.Error("role codes are case sensitive")
	}
}

func TestRolesTableIsCopied(t *testing.T) {
	roles := Roles()
	roles[0].Level = 99
	if Level(RoleMDO) != 1 {
		t.Error("mutating the Roles() result must not affect the table")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(RoleMDO); got != "Market Development Officer" {
		t.Errorf("unexpected display name: %s", got)
	}
	if got := DisplayName(Role("X9")); got != "X9" {
		t.Errorf("unknown role should echo its code, got %s", got)
	}
}
