package approval

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agroline/fieldops/pkg/hierarchy"
)

// Type identifies the kind of request a workflow carries.
type Type string

const (
	TypeMonthlyPlan        Type = "monthly_plan"
	TypeTravelClaim        Type = "travel_claim"
	TypeActivityClaim      Type = "activity_claim"
	TypeBudgetApproval     Type = "budget_approval"
	TypeStockVerification  Type = "stock_verification"
	TypeStockRectification Type = "stock_rectification"
	TypeTargetRevision     Type = "target_revision"
)

// Types returns all workflow types.
func Types() []Type {
	return []Type{
		TypeMonthlyPlan,
		TypeTravelClaim,
		TypeActivityClaim,
		TypeBudgetApproval,
		TypeStockVerification,
		TypeStockRectification,
		TypeTargetRevision,
	}
}

// ValidType reports whether t is a recognized workflow type.
func ValidType(t Type) bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a workflow.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// StepStatus is the state of a single sign-off step.
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
	StepSkipped  StepStatus = "skipped"
)

// Step is one sign-off in a workflow's approval chain. Once a step leaves
// StepPending it is never rewritten; the chain is an append-only audit trail.
type Step struct {
	ApproverRole   hierarchy.Role `json:"approver_role"`
	ApproverUserID string         `json:"approver_user_id,omitempty"`
	Status         StepStatus     `json:"status"`
	Date           *time.Time     `json:"date,omitempty"`
	Comments       string         `json:"comments,omitempty"`
}

// Workflow is one request moving through an ordered chain of approver roles.
// While Status is pending exactly one step is current, identified by
// CurrentApproverRole.
type Workflow struct {
	ID                  string         `json:"id"`
	Type                Type           `json:"type"`
	SubmittedBy         string         `json:"submitted_by"`
	SubmittedByRole     hierarchy.Role `json:"submitted_by_role"`
	CurrentApprover     string         `json:"current_approver,omitempty"`
	CurrentApproverRole hierarchy.Role `json:"current_approver_role,omitempty"`
	Status              Status         `json:"status"`
	SubmissionDate      time.Time      `json:"submission_date"`
	ApprovalDate        *time.Time     `json:"approval_date,omitempty"`
	Payload             Payload        `json:"payload,omitempty"`
	Chain               []Step         `json:"approval_chain"`
}

// UnmarshalJSON decodes the payload against the workflow's declared type so
// consumers get the concrete payload struct back, not a map.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	type alias Workflow
	aux := struct {
		*alias
		Payload json.RawMessage `json:"payload,omitempty"`
	}{alias: (*alias)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Payload) > 0 {
		p, err := DecodePayload(w.Type, aux.Payload)
		if err != nil {
			return err
		}
		w.Payload = p
	}
	return nil
}

// Payload is the typed request body attached to a workflow. Each workflow
// type has exactly one payload shape; consumers switch on the concrete type
// instead of digging through an untyped map.
type Payload interface {
	WorkflowType() Type
}

// MonthlyPlanPayload is the payload for monthly tour/work plans.
type MonthlyPlanPayload struct {
	Month         string   `json:"month"` // YYYY-MM
	PlannedVisits int      `json:"planned_visits"`
	Territories   []string `json:"territories,omitempty"`
	FocusProducts []string `json:"focus_products,omitempty"`
	Remarks       string   `json:"remarks,omitempty"`
}

func (MonthlyPlanPayload) WorkflowType() Type { return TypeMonthlyPlan }

// TravelClaimPayload is the payload for travel reimbursement claims.
type TravelClaimPayload struct {
	PeriodStart string  `json:"period_start"` // YYYY-MM-DD
	PeriodEnd   string  `json:"period_end"`
	DistanceKM  float64 `json:"distance_km"`
	Amount      float64 `json:"amount"`
	Mode        string  `json:"mode,omitempty"`
}

func (TravelClaimPayload) WorkflowType() Type { return TypeTravelClaim }

// ActivityClaimPayload is the payload for field activity expense claims.
type ActivityClaimPayload struct {
	Activity     string  `json:"activity"`
	ActivityDate string  `json:"activity_date"`
	Amount       float64 `json:"amount"`
	Attendees    int     `json:"attendees,omitempty"`
}

func (ActivityClaimPayload) WorkflowType() Type { return TypeActivityClaim }

// BudgetApprovalPayload is the payload for budget requests.
type BudgetApprovalPayload struct {
	Purpose string  `json:"purpose"`
	Amount  float64 `json:"amount"`
	Quarter string  `json:"quarter,omitempty"`
}

func (BudgetApprovalPayload) WorkflowType() Type { return TypeBudgetApproval }

// StockItem is one product line inside a stock payload.
type StockItem struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	Value     float64 `json:"value,omitempty"`
}

// StockVerificationPayload records a physical stock count at a distributor.
type StockVerificationPayload struct {
	DistributorID string      `json:"distributor_id"`
	Territory     string      `json:"territory,omitempty"`
	Items         []StockItem `json:"items"`
}

func (StockVerificationPayload) WorkflowType() Type { return TypeStockVerification }

// StockRectificationPayload proposes corrections to recorded stock.
type StockRectificationPayload struct {
	DistributorID string      `json:"distributor_id"`
	Reason        string      `json:"reason"`
	Adjustments   []StockItem `json:"adjustments"`
}

func (StockRectificationPayload) WorkflowType() Type { return TypeStockRectification }

// TargetRevisionPayload requests a change to a sales target.
type TargetRevisionPayload struct {
	Metric         string  `json:"metric"` // e.g. "volume", "value"
	CurrentTarget  float64 `json:"current_target"`
	ProposedTarget float64 `json:"proposed_target"`
	Justification  string  `json:"justification,omitempty"`
}

func (TargetRevisionPayload) WorkflowType() Type { return TypeTargetRevision }

// DecodePayload unmarshals raw JSON into the payload shape for t.
func DecodePayload(t Type, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var p Payload
	switch t {
	case TypeMonthlyPlan:
		p = &MonthlyPlanPayload{}
	case TypeTravelClaim:
		p = &TravelClaimPayload{}
	case TypeActivityClaim:
		p = &ActivityClaimPayload{}
	case TypeBudgetApproval:
		p = &BudgetApprovalPayload{}
	case TypeStockVerification:
		p = &StockVerificationPayload{}
	case TypeStockRectification:
		p = &StockRectificationPayload{}
	case TypeTargetRevision:
		p = &TargetRevisionPayload{}
	default:
		return nil, fmt.Errorf("unknown workflow type %q", t)
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// EncodePayload marshals a payload for storage. A nil payload encodes as nil.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.WorkflowType(), err)
	}
	return data, nil
}
