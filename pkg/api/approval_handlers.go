package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agroline/fieldops/pkg/approval"
	"github.com/agroline/fieldops/pkg/async"
	"github.com/agroline/fieldops/pkg/auth"
	"github.com/agroline/fieldops/pkg/httputil"
	"github.com/agroline/fieldops/pkg/middleware"
	"github.com/agroline/fieldops/pkg/visibility"
)

// requireUser pulls the authenticated user or writes a 401. Handlers never
// proceed without a caller identity; visibility depends on it.
func requireUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user := middleware.GetUser(r)
	if user == nil {
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return user, true
}

// listApprovals handles GET /api/v1/approvals. The full list is fetched (or
// taken from the shared cache) and trimmed to the viewer's visibility.
func (s *Server) listApprovals(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	viewer := user.Context()

	if s.listCache != nil {
		if cached, hit, err := s.listCache.GetApprovals(r.Context(), user.ID); err == nil && hit {
			if s.metrics != nil {
				s.metrics.CacheHitsTotal.WithLabelValues("approvals_list").Inc()
			}
			httputil.WriteSuccess(w, cached)
			return
		}
		if s.metrics != nil {
			s.metrics.CacheMissesTotal.WithLabelValues("approvals_list").Inc()
		}
	}

	all, err := s.approvals.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("listing workflows failed")
		httputil.WriteInternalError(w, err)
		return
	}
	visible := visibility.FilterWorkflows(all, viewer)

	if s.listCache != nil {
		// Off the request path; the response must not wait on redis.
		userID := user.ID
		async.SafeGo(context.Background(), 2*time.Second, "cache approvals list", s.logger, func(ctx context.Context) error {
			return s.listCache.SetApprovals(ctx, userID, visible)
		})
	}
	httputil.WriteSuccess(w, visible)
}

// submitRequest is the POST /api/v1/approvals body. The payload is decoded
// against the declared type; a mismatched shape is a 400.
type submitRequest struct {
	Type    approval.Type   `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (s *Server) submitApproval(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, string(req.Type), "type") {
		return
	}

	payload, err := approval.DecodePayload(req.Type, req.Payload)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	workflow, err := s.approvals.Submit(r.Context(), approval.SubmitRequest{
		SubmitterID:   user.ID,
		SubmitterRole: user.Role,
		Type:          req.Type,
		Payload:       payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrUnknownType), errors.Is(err, approval.ErrNoTemplate):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, approval.ErrEmptyChain):
			httputil.WriteConflict(w, err.Error())
		default:
			s.logger.WithError(err).Error("workflow submit failed")
			httputil.WriteInternalError(w, err)
		}
		return
	}

	if s.metrics != nil {
		s.metrics.WorkflowSubmitsTotal.WithLabelValues(string(workflow.Type), string(user.Role)).Inc()
	}
	s.invalidateListCache(r)
	httputil.WriteCreated(w, workflow)
}

// getApproval handles GET /api/v1/approvals/{id}. A workflow outside the
// viewer's visibility reads as 404, not 403, so ids cannot be probed.
func (s *Server) getApproval(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	workflow, err := s.approvals.Get(r.Context(), id)
	if errors.Is(err, approval.ErrNotFound) {
		httputil.WriteNotFound(w, "workflow not found")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if len(visibility.FilterWorkflows([]approval.Workflow{*workflow}, user.Context())) == 0 {
		httputil.WriteNotFound(w, "workflow not found")
		return
	}
	httputil.WriteSuccess(w, workflow)
}

// decisionRequest is the approve/reject body.
type decisionRequest struct {
	Comments string `json:"comments,omitempty"`
}

func (s *Server) approveWorkflow(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, true)
}

func (s *Server) rejectWorkflow(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, false)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req decisionRequest
	if r.ContentLength > 0 && !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	var workflow *approval.Workflow
	var err error
	if approve {
		workflow, err = s.approvals.Approve(r.Context(), id, user.Role, user.ID, req.Comments)
	} else {
		workflow, err = s.approvals.Reject(r.Context(), id, user.Role, user.ID, req.Comments)
	}
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrNotFound):
			httputil.WriteNotFound(w, "workflow not found")
		case errors.Is(err, approval.ErrNotPending):
			httputil.WriteConflict(w, "workflow is already decided")
		case errors.Is(err, approval.ErrNotAuthorized):
			if s.metrics != nil {
				s.metrics.GateDenialsTotal.WithLabelValues("not_authorized").Inc()
			}
			httputil.WriteForbidden(w, "not your turn to act on this workflow")
		default:
			s.logger.WithError(err).Error("workflow decision failed")
			httputil.WriteInternalError(w, err)
		}
		return
	}

	if s.metrics != nil {
		decision := "reject"
		if approve {
			decision = "approve"
		}
		s.metrics.WorkflowDecisionsTotal.WithLabelValues(string(workflow.Type), decision).Inc()
	}
	s.invalidateListCache(r)
	httputil.WriteSuccess(w, workflow)
}

// gateCheck handles GET /api/v1/approvals/{id}/gate. Clients use it to
// decide whether to render action buttons; the same predicate runs again
// server-side on every decision.
func (s *Server) gateCheck(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	workflow, err := s.approvals.Get(r.Context(), id)
	if errors.Is(err, approval.ErrNotFound) {
		httputil.WriteNotFound(w, "workflow not found")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	// Same rule as getApproval: an invisible workflow reads as missing, so
	// this endpoint cannot be used to probe which ids exist.
	if len(visibility.FilterWorkflows([]approval.Workflow{*workflow}, user.Context())) == 0 {
		httputil.WriteNotFound(w, "workflow not found")
		return
	}

	httputil.WriteSuccess(w, map[string]bool{
		"can_approve": s.approvals.Gate().CanApprove(workflow, user.Role, user.ID),
	})
}

func (s *Server) invalidateListCache(r *http.Request) {
	if s.listCache == nil {
		return
	}
	if err := s.listCache.InvalidateApprovals(r.Context()); err != nil {
		s.logger.WithError(err).Warn("invalidating approvals cache failed")
	}
}
