package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agroline/fieldops/pkg/audit"
	"github.com/agroline/fieldops/pkg/cache"
	"github.com/agroline/fieldops/pkg/hierarchy"
)

// cacheScope prefixes every cache key this service invalidates on mutation.
const cacheScope = "approvals:"

// Service owns the workflow lifecycle: submission builds the chain from the
// type's template, and approve/reject re-check the gate server-side before
// any state changes. The HTTP layer never decides authorization on its own.
type Service struct {
	store     *Store
	gate      *Gate
	templates *Templates
	auditLog  audit.Logger
	cache     *cache.Cache
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewService wires a workflow service. auditLog and c may be nil, in which
// case auditing is a no-op and no cache is invalidated.
func NewService(store *Store, templates *Templates, auditLog audit.Logger, c *cache.Cache) *Service {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if auditLog == nil {
		auditLog = audit.NewNopLogger()
	}
	return &Service{
		store:     store,
		gate:      NewGate(),
		templates: templates,
		auditLog:  auditLog,
		cache:     c,
		cacheTTL:  cache.DefaultTTL,
		now:       time.Now,
	}
}

// SetCacheTTL bounds how stale a cached workflow list may be served. Values
// at or below zero keep the default.
func (s *Service) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// Gate exposes the service's approval gate for read-only checks.
func (s *Service) Gate() *Gate {
	return s.gate
}

// SubmitRequest carries a new workflow submission.
type SubmitRequest struct {
	SubmitterID   string
	SubmitterRole hierarchy.Role
	Type          Type
	Payload       Payload
}

// Submit creates a pending workflow with its approval chain. Steps whose role
// matches the submitter's own role are pre-skipped so the chain never asks a
// submitter to sign off on themselves; the first remaining step becomes
// current.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Workflow, error) {
	if !ValidType(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
	if req.SubmitterID == "" {
		return nil, fmt.Errorf("submitter id is required")
	}
	if req.Payload != nil && req.Payload.WorkflowType() != req.Type {
		return nil, fmt.Errorf("payload type %s does not match workflow type %s",
			req.Payload.WorkflowType(), req.Type)
	}

	roles, err := s.templates.ChainFor(req.Type)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	chain := make([]Step, 0, len(roles))
	currentRole := hierarchy.Role("")
	for _, role := range roles {
		step := Step{ApproverRole: role, Status: StepPending}
		if role == req.SubmitterRole {
			t := now
			step.Status = StepSkipped
			step.Date = &t
		} else if currentRole == "" {
			currentRole = role
		}
		chain = append(chain, step)
	}
	if currentRole == "" {
		return nil, ErrEmptyChain
	}

	w := &Workflow{
		ID:                  uuid.NewString(),
		Type:                req.Type,
		SubmittedBy:         req.SubmitterID,
		SubmittedByRole:     req.SubmitterRole,
		CurrentApproverRole: currentRole,
		Status:              StatusPending,
		SubmissionDate:      now,
		Payload:             req.Payload,
		Chain:               chain,
	}

	if err := s.store.Create(ctx, w); err != nil {
		return nil, err
	}

	s.invalidate()
	s.writeAudit(ctx, audit.EventTypeWorkflowSubmit, audit.EventStatusSuccess, w, req.SubmitterID, req.SubmitterRole, nil)
	return w, nil
}

// Approve records an approval by the actor. The gate is re-evaluated here
// regardless of what any client-side check concluded; a denied actor produces
// ErrNotAuthorized and an audit entry.
func (s *Service) Approve(ctx context.Context, id string, actorRole hierarchy.Role, actorID, comments string) (*Workflow, error) {
	return s.decide(ctx, id, actorRole, actorID, comments, true)
}

// Reject records a rejection by the actor. A rejection closes the workflow
// immediately; remaining steps stay pending in the record as never-reached.
func (s *Service) Reject(ctx context.Context, id string, actorRole hierarchy.Role, actorID, comments string) (*Workflow, error) {
	return s.decide(ctx, id, actorRole, actorID, comments, false)
}

func (s *Service) decide(ctx context.Context, id string, actorRole hierarchy.Role, actorID, comments string, approve bool) (*Workflow, error) {
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.gate.CanApprove(w, actorRole, actorID) {
		s.writeAudit(ctx, audit.EventTypeAuthzGateDenied, audit.EventStatusDenied, w, actorID, actorRole, map[string]string{
			"attempted": decisionName(approve),
		})
		if w.Status != StatusPending {
			return nil, ErrNotPending
		}
		return nil, ErrNotAuthorized
	}

	idx := currentStepIndex(w)
	if idx < 0 {
		// Pending workflow with no current step: the stored record violates
		// the chain invariant. Refuse rather than guess.
		return nil, ErrNotAuthorized
	}

	now := s.now().UTC()
	step := &w.Chain[idx]
	step.ApproverUserID = actorID
	step.Date = &now
	step.Comments = comments

	eventType := audit.EventTypeWorkflowApprove
	if approve {
		step.Status = StepApproved
		if next := nextPendingIndex(w, idx); next >= 0 {
			w.CurrentApprover = ""
			w.CurrentApproverRole = w.Chain[next].ApproverRole
		} else {
			w.Status = StatusApproved
			w.CurrentApprover = ""
			w.CurrentApproverRole = ""
			w.ApprovalDate = &now
		}
	} else {
		step.Status = StepRejected
		w.Status = StatusRejected
		w.CurrentApprover = ""
		w.CurrentApproverRole = ""
		w.ApprovalDate = &now
		eventType = audit.EventTypeWorkflowReject
	}

	if err := s.store.RecordDecision(ctx, w); err != nil {
		return nil, err
	}

	s.invalidate()
	s.writeAudit(ctx, eventType, audit.EventStatusSuccess, w, actorID, actorRole, map[string]string{
		"comments": comments,
	})
	return w, nil
}

// Get returns one workflow by id.
func (s *Service) Get(ctx context.Context, id string) (*Workflow, error) {
	return s.store.Get(ctx, id)
}

// List returns every workflow; callers apply visibility filtering. The
// unfiltered list is cached until the next mutation or TTL expiry.
func (s *Service) List(ctx context.Context) ([]Workflow, error) {
	const key = cacheScope + "list"
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if ws, ok := v.([]Workflow); ok {
				return ws, nil
			}
		}
	}
	ws, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, ws, s.cacheTTL)
	}
	return ws, nil
}

func currentStepIndex(w *Workflow) int {
	for i, step := range w.Chain {
		if step.Status == StepPending && step.ApproverRole == w.CurrentApproverRole {
			return i
		}
	}
	return -1
}

func nextPendingIndex(w *Workflow, after int) int {
	for i := after + 1; i < len(w.Chain); i++ {
		if w.Chain[i].Status == StepPending {
			return i
		}
	}
	return -1
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate(cacheScope)
	}
}

func (s *Service) writeAudit(ctx context.Context, et audit.EventType, status audit.EventStatus, w *Workflow, actorID string, actorRole hierarchy.Role, details map[string]string) {
	// Audit failures never fail the business operation.
	_ = s.auditLog.LogEvent(ctx, &audit.Event{
		EventType:    et,
		Status:       status,
		UserID:       actorID,
		UserRole:     string(actorRole),
		WorkflowID:   w.ID,
		WorkflowType: string(w.Type),
		Details:      details,
	})
}

func decisionName(approve bool) string {
	if approve {
		return "approve"
	}
	return "reject"
}
