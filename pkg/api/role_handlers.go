package api

import (
	"net/http"

	"github.com/agroline/fieldops/pkg/hierarchy"
	"github.com/agroline/fieldops/pkg/httputil"
)

// listRoles handles GET /api/v1/roles. The hierarchy table is compiled in;
// this endpoint is the mobile app's single source for role levels and scopes.
func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	httputil.WriteSuccess(w, hierarchy.Roles())
}
