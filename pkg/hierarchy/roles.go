// Package hierarchy defines the organizational role ladder used across
// FieldOps: role codes, hierarchy levels, and the geographic scope each role
// is allowed to view. Roles are fixed at build time; there is no runtime
// role creation.
package hierarchy

// Role is an organizational role code (e.g. "MDO", "TSM").
type Role string

const (
	RoleMDO   Role = "MDO"  // Market Development Officer
	RoleTSM   Role = "TSM"  // Territory Sales Manager
	RoleRBH   Role = "RBH"  // Regional Business Head
	RoleRMM   Role = "RMM"  // Regional Marketing Manager
	RoleZBH   Role = "ZBH"  // Zonal Business Head
	RoleMH    Role = "MH"   // Marketing Head
	RoleVP    Role = "VP"   // Vice President
	RoleMD    Role = "MD"   // Managing Director
	RoleCFO   Role = "CFO"  // Chief Financial Officer
	RoleCHRO  Role = "CHRO" // Chief HR Officer
	RoleAdmin Role = "ADMIN"
)

// Scope is the geographic breadth a role may view.
type Scope string

const (
	ScopeTerritory Scope = "territory"
	ScopeState     Scope = "state"
	ScopeZone      Scope = "zone"
	ScopeAll       Scope = "all"
)

// Definition describes one role in the hierarchy table.
type Definition struct {
	Code        Role   `json:"code"`
	DisplayName string `json:"display_name"`
	Level       int    `json:"level"`
	Scope       Scope  `json:"scope"`
}

// RMM and RBH share a level: both are regional peers. MD/CFO/CHRO sit at the
// same executive level below ADMIN.
var table = []Definition{
	{Code: RoleMDO, DisplayName: "Market Development Officer", Level: 1, Scope: ScopeTerritory},
	{Code: RoleTSM, DisplayName: "Territory Sales Manager", Level: 2, Scope: ScopeState},
	{Code: RoleRBH, DisplayName: "Regional Business Head", Level: 3, Scope: ScopeState},
	{Code: RoleRMM, DisplayName: "Regional Marketing Manager", Level: 3, Scope: ScopeState},
	{Code: RoleZBH, DisplayName: "Zonal Business Head", Level: 4, Scope: ScopeZone},
	{Code: RoleMH, DisplayName: "Marketing Head", Level: 5, Scope: ScopeAll},
	{Code: RoleVP, DisplayName: "Vice President", Level: 6, Scope: ScopeAll},
	{Code: RoleMD, DisplayName: "Managing Director", Level: 7, Scope: ScopeAll},
	{Code: RoleCFO, DisplayName: "Chief Financial Officer", Level: 7, Scope: ScopeAll},
	{Code: RoleCHRO, DisplayName: "Chief HR Officer", Level: 7, Scope: ScopeAll},
	{Code: RoleAdmin, DisplayName: "Administrator", Level: 8, Scope: ScopeAll},
}

var byCode = func() map[Role]Definition {
	m := make(map[Role]Definition, len(table))
	for _, d := range table {
		m[d.Code] = d
	}
	return m
}()

// Roles returns the full hierarchy table in rank order.
func Roles() []Definition {
	out := make([]Definition, len(table))
	copy(out, table)
	return out
}

// KnownRole reports whether code is part of the hierarchy table.
func KnownRole(code Role) bool {
	_, ok := byCode[code]
	return ok
}

// Level returns the hierarchy level for a role. Unknown roles map to level 0,
// subordinate to every known role.
func Level(code Role) int {
	if d, ok := byCode[code]; ok {
		return d.Level
	}
	return 0
}

// DisplayName returns the human-readable name for a role, or the raw code
// when the role is unknown.
func DisplayName(code Role) string {
	if d, ok := byCode[code]; ok {
		return d.DisplayName
	}
	return string(code)
}

// ScopeFor resolves a role to its visibility scope. Unrecognized roles fall
// back to the narrowest scope rather than erroring.
func ScopeFor(code Role) Scope {
	if d, ok := byCode[code]; ok {
		return d.Scope
	}
	return ScopeTerritory
}

// Outranks reports whether a sits strictly above b in the hierarchy.
func Outranks(a, b Role) bool {
	return Level(a) > Level(b)
}
