// Package middleware provides the HTTP middleware chain: request IDs,
// bearer-token authentication, and role gates.
package middleware

import (
	"net/http"
	"strings"

	"github.com/agroline/fieldops/pkg/audit"
	"github.com/agroline/fieldops/pkg/auth"
	"github.com/agroline/fieldops/pkg/contextkeys"
	"github.com/agroline/fieldops/pkg/hierarchy"
)

// AuthMiddleware authenticates requests with opaque bearer tokens. Failed
// validations are written to the audit trail.
type AuthMiddleware struct {
	store    *auth.Store
	auditLog audit.Logger
	optional bool
}

func NewAuthMiddleware(store *auth.Store, auditLog audit.Logger, optional bool) *AuthMiddleware {
	if auditLog == nil {
		auditLog = audit.NewNopLogger()
	}
	return &AuthMiddleware{store: store, auditLog: auditLog, optional: optional}
}

// Handler wraps an HTTP handler with authentication.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		user, err := m.store.ValidateToken(r.Context(), parts[1])
		if err != nil {
			m.auditLog.LogEvent(r.Context(), &audit.Event{
				EventType: audit.EventTypeAuthzTokenValidateFail,
				Status:    audit.EventStatusFailure,
				Details: map[string]string{
					"path":        r.URL.Path,
					"remote_addr": r.RemoteAddr,
				},
			})
			unauthorizedResponse(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithUser(r.Context(), user)
		ctx = contextkeys.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser extracts the authenticated user from a request.
func GetUser(r *http.Request) *auth.User {
	v := r.Context().Value(contextkeys.UserKey)
	if v == nil {
		return nil
	}
	user, ok := v.(*auth.User)
	if !ok {
		return nil
	}
	return user
}

// RequireRole allows only the listed roles through.
func RequireRole(roles ...hierarchy.Role) func(http.Handler) http.Handler {
	allowed := make(map[hierarchy.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				forbiddenResponse(w, "authentication required")
				return
			}
			if !allowed[user.Role] {
				forbiddenResponse(w, "insufficient role permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMinLevel allows only roles at or above the given hierarchy level.
// Unknown roles sit at level 0 and never pass.
func RequireMinLevel(level int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				forbiddenResponse(w, "authentication required")
				return
			}
			if hierarchy.Level(user.Role) < level {
				forbiddenResponse(w, "insufficient role permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
