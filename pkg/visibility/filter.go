package visibility

import "github.com/agroline/fieldops/pkg/hierarchy"

// FilterEntries returns the subset of entries the user may see, by the scope
// their role resolves to. An entry submitted by the user is always kept, no
// matter the scope. The result is a subsequence of the input: original order
// preserved, nothing duplicated. Visibility only — passing the filter says
// nothing about authorization to act.
func FilterEntries(entries []Entry, user UserContext, subordinateIDs []string) []Entry {
	out := make([]Entry, 0, len(entries))

	switch hierarchy.ScopeFor(user.Role) {
	case hierarchy.ScopeTerritory:
		for _, e := range entries {
			if e.Territory == user.Territory || e.SubmittedBy == user.ID {
				out = append(out, e)
			}
		}

	case hierarchy.ScopeState:
		// TSMs see their state narrowed to their territory, plus anything
		// their direct reports or they themselves submitted. Other
		// state-scope roles (RBH, RMM) see the whole state.
		if user.Role == hierarchy.RoleTSM {
			subs := make(map[string]struct{}, len(subordinateIDs))
			for _, id := range subordinateIDs {
				subs[id] = struct{}{}
			}
			for _, e := range entries {
				_, fromSub := subs[e.SubmittedBy]
				switch {
				case e.State == user.State && e.Territory == user.Territory:
					out = append(out, e)
				case fromSub:
					out = append(out, e)
				case e.SubmittedBy == user.ID:
					out = append(out, e)
				}
			}
		} else {
			for _, e := range entries {
				if e.State == user.State || e.SubmittedBy == user.ID {
					out = append(out, e)
				}
			}
		}

	case hierarchy.ScopeZone:
		for _, e := range entries {
			if e.Zone == user.Zone || e.SubmittedBy == user.ID {
				out = append(out, e)
			}
		}

	case hierarchy.ScopeAll:
		out = append(out, entries...)

	default:
		// Unrecognized scope: narrowest possible fallback, own submissions only.
		for _, e := range entries {
			if e.SubmittedBy == user.ID {
				out = append(out, e)
			}
		}
	}

	return out
}
