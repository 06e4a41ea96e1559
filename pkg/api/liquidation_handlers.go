package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/agroline/fieldops/pkg/hierarchy"
	"github.com/agroline/fieldops/pkg/httputil"
	"github.com/agroline/fieldops/pkg/liquidation"
	"github.com/agroline/fieldops/pkg/middleware"
)

// listLiquidationEntries handles GET /api/v1/liquidation/entries. The store
// is read in full and trimmed by the viewer's scope.
func (s *Server) listLiquidationEntries(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := s.liquidation.Entries(r.Context(), user.Context(), s.directReports(r))
	if err != nil {
		s.logger.WithError(err).Error("listing liquidation entries failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, entries)
}

// directReports resolves the viewer's direct reports for the TSM visibility
// rule. Only TSMs consult the list, so the lookup is skipped for everyone
// else; a failed lookup degrades to own-scope visibility rather than erroring
// the read.
func (s *Server) directReports(r *http.Request) []string {
	user := middleware.GetUser(r)
	if user == nil || s.users == nil || user.Role != hierarchy.RoleTSM {
		return nil
	}
	ids, err := s.users.DirectReports(r.Context(), user.ID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("resolving direct reports failed")
		return nil
	}
	return ids
}

// recordLiquidationEntry handles POST /api/v1/liquidation/entries. The
// snapshot is stamped with the submitter's identity and location; clients
// cannot submit on behalf of another territory.
func (s *Server) recordLiquidationEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var entry liquidation.Entry
	if !httputil.ParseJSONOrError(w, r, &entry) {
		return
	}
	if !httputil.RequireNonEmpty(w, entry.DistributorID, "distributor_id") {
		return
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.SubmittedBy = user.ID
	entry.SubmittedByRole = user.Role
	entry.Territory = user.Territory
	entry.State = user.State
	entry.Zone = user.Zone

	if err := s.liquidation.Record(r.Context(), &entry); err != nil {
		s.logger.WithError(err).Error("recording liquidation entry failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, entry)
}

// liquidationSummary handles GET /api/v1/liquidation/summary.
func (s *Server) liquidationSummary(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	summary, err := s.liquidation.Summary(r.Context(), user.Context(), s.directReports(r))
	if err != nil {
		s.logger.WithError(err).Error("liquidation summary failed")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, summary)
}

// liquidationRollups handles GET /api/v1/liquidation/rollups/{kind}.
// Rollups span every scope, so only zone-level roles and above may read them.
func (s *Server) liquidationRollups(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if hierarchy.Level(user.Role) < hierarchy.Level(hierarchy.RoleZBH) {
		httputil.WriteForbidden(w, "insufficient role permissions")
		return
	}
	kind, ok := httputil.ParsePathStringOrError(w, r, "kind")
	if !ok {
		return
	}

	rollups, err := s.rollups.Rollups(r.Context(), kind)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	httputil.WriteSuccess(w, rollups)
}
