package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agroline/fieldops/pkg/audit"
	"github.com/agroline/fieldops/pkg/auth"
	"github.com/agroline/fieldops/pkg/contextkeys"
	"github.com/agroline/fieldops/pkg/hierarchy"
)

type captureAuditLogger struct {
	events []*audit.Event
}

func (l *captureAuditLogger) LogEvent(ctx context.Context, e *audit.Event) error {
	l.events = append(l.events, e)
	return nil
}

func (l *captureAuditLogger) Close() error { return nil }

func setupAuth(t *testing.T) (*auth.Store, string) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := auth.NewStore(db)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	if err := store.CreateUser(ctx, &auth.User{
		ID:        "tsm-1",
		Name:      "Test TSM",
		Role:      hierarchy.RoleTSM,
		Territory: "Ludhiana",
		State:     "Punjab",
		Active:    true,
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, token, err := store.CreateToken(ctx, "tsm-1", "test", nil)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	return store, token
}

func echoUserHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r)
		if user == nil {
			t.Error("expected user in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(user.ID))
	})
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	store, token := setupAuth(t)
	mw := NewAuthMiddleware(store, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.Handler(echoUserHandler(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "tsm-1" {
		t.Errorf("expected user id in body, got %q", rec.Body.String())
	}
}

func TestAuthMiddlewareRejections(t *testing.T) {
	store, _ := setupAuth(t)
	auditLog := &captureAuditLogger{}
	mw := NewAuthMiddleware(store, auditLog, false)

	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for rejected requests")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"bad token", "Bearer fops_bogus"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/approvals", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}

	// Only the failed validation (not the missing/malformed headers) hits
	// the audit trail.
	if len(auditLog.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(auditLog.events))
	}
	if auditLog.events[0].EventType != audit.EventTypeAuthzTokenValidateFail {
		t.Errorf("unexpected event type %s", auditLog.events[0].EventType)
	}
}

func TestAuthMiddlewareOptional(t *testing.T) {
	store, _ := setupAuth(t)
	mw := NewAuthMiddleware(store, nil, true)

	called := false
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if GetUser(r) != nil {
			t.Error("expected anonymous request to carry no user")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("optional middleware must pass anonymous requests through")
	}
}

func withUser(r *http.Request, user *auth.User) *http.Request {
	return r.WithContext(contextkeys.WithUser(r.Context(), user))
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(hierarchy.RoleVP, hierarchy.RoleMD)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, &auth.User{ID: "vp-1", Role: hierarchy.RoleVP}))
	if rec.Code != http.StatusOK {
		t.Errorf("expected VP allowed, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, withUser(req, &auth.User{ID: "mdo-1", Role: hierarchy.RoleMDO}))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected MDO forbidden, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected anonymous forbidden, got %d", rec.Code)
	}
}

func TestRequireMinLevel(t *testing.T) {
	handler := RequireMinLevel(4)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	cases := []struct {
		role hierarchy.Role
		code int
	}{
		{hierarchy.RoleZBH, http.StatusOK},
		{hierarchy.RoleVP, http.StatusOK},
		{hierarchy.RoleRBH, http.StatusForbidden},
		{hierarchy.Role("intern"), http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withUser(req, &auth.User{ID: "u", Role: tc.role}))
		if rec.Code != tc.code {
			t.Errorf("role %s: expected %d, got %d", tc.role, tc.code, rec.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = contextkeys.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen == "" {
		t.Error("expected generated request id in context")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Error("response header must echo the request id")
	}

	// Incoming IDs are preserved.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "gw-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "gw-123" {
		t.Errorf("expected incoming id preserved, got %q", seen)
	}
}
