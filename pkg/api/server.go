// Package api exposes the HTTP surface of the field operations service:
// approval workflows, liquidation reads, and the role hierarchy.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agroline/fieldops/pkg/approval"
	"github.com/agroline/fieldops/pkg/auth"
	"github.com/agroline/fieldops/pkg/liquidation"
	"github.com/agroline/fieldops/pkg/observability"
	"github.com/agroline/fieldops/pkg/storage"
)

// Server routes API requests to the domain services. Authentication happens
// in middleware before requests reach these handlers; every handler assumes
// a user in the request context.
type Server struct {
	router      *mux.Router
	approvals   *approval.Service
	liquidation *liquidation.Service
	rollups     *liquidation.Aggregator
	users       *auth.Store
	listCache   *storage.RedisCache
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// ServerOption tunes optional server dependencies.
type ServerOption func(*Server)

// WithListCache shares per-viewer approval lists through redis.
func WithListCache(c *storage.RedisCache) ServerOption {
	return func(s *Server) { s.listCache = c }
}

// WithMetrics records workflow counters on submit and decide.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithRollups serves precomputed liquidation rollups.
func WithRollups(a *liquidation.Aggregator) ServerOption {
	return func(s *Server) { s.rollups = a }
}

// WithUserDirectory resolves a viewer's direct reports for the TSM
// subordinate-visibility rule. Without it, subordinate submissions outside
// the viewer's own scope stay hidden.
func WithUserDirectory(store *auth.Store) ServerOption {
	return func(s *Server) { s.users = store }
}

// NewServer creates the API server and registers its routes.
func NewServer(approvals *approval.Service, liq *liquidation.Service, logger *observability.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	s := &Server{
		router:      mux.NewRouter(),
		approvals:   approvals,
		liquidation: liq,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Approval routes
	s.router.HandleFunc("/api/v1/approvals", s.listApprovals).Methods("GET")
	s.router.HandleFunc("/api/v1/approvals", s.submitApproval).Methods("POST")
	s.router.HandleFunc("/api/v1/approvals/{id}", s.getApproval).Methods("GET")
	s.router.HandleFunc("/api/v1/approvals/{id}/approve", s.approveWorkflow).Methods("POST")
	s.router.HandleFunc("/api/v1/approvals/{id}/reject", s.rejectWorkflow).Methods("POST")
	s.router.HandleFunc("/api/v1/approvals/{id}/gate", s.gateCheck).Methods("GET")

	// Liquidation routes
	s.router.HandleFunc("/api/v1/liquidation/entries", s.listLiquidationEntries).Methods("GET")
	s.router.HandleFunc("/api/v1/liquidation/entries", s.recordLiquidationEntry).Methods("POST")
	s.router.HandleFunc("/api/v1/liquidation/summary", s.liquidationSummary).Methods("GET")
	if s.rollups != nil {
		s.router.HandleFunc("/api/v1/liquidation/rollups/{kind}", s.liquidationRollups).Methods("GET")
	}

	// Role hierarchy
	s.router.HandleFunc("/api/v1/roles", s.listRoles).Methods("GET")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router so main can wrap it in middleware.
func (s *Server) Router() *mux.Router {
	return s.router
}
