package approval

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agroline/fieldops/pkg/hierarchy"
)

// Store persists workflows and their approval chains on database/sql.
// Placeholders use the $N form, which PostgreSQL and the sqlite driver used
// in tests both accept.
type Store struct {
	db *sql.DB
}

// NewStore creates a workflow store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is the DDL for workflow storage.
const Schema = `
CREATE TABLE IF NOT EXISTS approval_workflows (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	submitted_by TEXT NOT NULL,
	submitted_by_role TEXT NOT NULL,
	current_approver TEXT NOT NULL DEFAULT '',
	current_approver_role TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	submission_date TIMESTAMP NOT NULL,
	approval_date TIMESTAMP,
	payload TEXT
);
CREATE TABLE IF NOT EXISTS approval_steps (
	workflow_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	approver_role TEXT NOT NULL,
	approver_user_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	decided_at TIMESTAMP,
	comments TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (workflow_id, position)
)`

// EnsureSchema creates the workflow tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create approval schema: %w", err)
	}
	return nil
}

// Create inserts a workflow and its chain in one transaction.
func (s *Store) Create(ctx context.Context, w *Workflow) error {
	payload, err := EncodePayload(w.Payload)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create workflow: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO approval_workflows (id, type, submitted_by, submitted_by_role, current_approver, current_approver_role, status, submission_date, approval_date, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, string(w.Type), w.SubmittedBy, string(w.SubmittedByRole),
		w.CurrentApprover, string(w.CurrentApproverRole), string(w.Status),
		w.SubmissionDate, w.ApprovalDate, nullableString(payload),
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}

	if err := insertSteps(ctx, tx, w.ID, w.Chain); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create workflow: %w", err)
	}
	return nil
}

// Get loads one workflow with its chain.
func (s *Store) Get(ctx context.Context, id string) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, submitted_by, submitted_by_role, current_approver, current_approver_role, status, submission_date, approval_date, payload
		FROM approval_workflows WHERE id = $1`, id)

	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	chain, err := s.loadChain(ctx, id)
	if err != nil {
		return nil, err
	}
	w.Chain = chain
	return w, nil
}

// List returns all workflows ordered by submission date descending, chains
// included. Visibility filtering is the caller's concern.
func (s *Store) List(ctx context.Context) ([]Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, submitted_by, submitted_by_role, current_approver, current_approver_role, status, submission_date, approval_date, payload
		FROM approval_workflows ORDER BY submission_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range workflows {
		chain, err := s.loadChain(ctx, workflows[i].ID)
		if err != nil {
			return nil, err
		}
		workflows[i].Chain = chain
	}
	return workflows, nil
}

// RecordDecision rewrites a workflow's mutable header fields and replaces its
// chain, in one transaction. Decided steps are immutable at the domain layer;
// the full-chain rewrite here is a storage detail.
func (s *Store) RecordDecision(ctx context.Context, w *Workflow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record decision: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE approval_workflows
		SET current_approver = $1, current_approver_role = $2, status = $3, approval_date = $4
		WHERE id = $5`,
		w.CurrentApprover, string(w.CurrentApproverRole), string(w.Status), w.ApprovalDate, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM approval_steps WHERE workflow_id = $1`, w.ID); err != nil {
		return fmt.Errorf("clear chain: %w", err)
	}
	if err := insertSteps(ctx, tx, w.ID, w.Chain); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record decision: %w", err)
	}
	return nil
}

func (s *Store) loadChain(ctx context.Context, workflowID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT approver_role, approver_user_id, status, decided_at, comments
		FROM approval_steps WHERE workflow_id = $1 ORDER BY position`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load chain: %w", err)
	}
	defer rows.Close()

	var chain []Step
	for rows.Next() {
		var step Step
		var role, status string
		var decidedAt sql.NullTime
		if err := rows.Scan(&role, &step.ApproverUserID, &status, &decidedAt, &step.Comments); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.ApproverRole = hierarchy.Role(role)
		step.Status = StepStatus(status)
		if decidedAt.Valid {
			t := decidedAt.Time
			step.Date = &t
		}
		chain = append(chain, step)
	}
	return chain, rows.Err()
}

func insertSteps(ctx context.Context, tx *sql.Tx, workflowID string, chain []Step) error {
	for i, step := range chain {
		var decidedAt interface{}
		if step.Date != nil {
			decidedAt = *step.Date
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO approval_steps (workflow_id, position, approver_role, approver_user_id, status, decided_at, comments)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			workflowID, i, string(step.ApproverRole), step.ApproverUserID, string(step.Status), decidedAt, step.Comments,
		)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", i, err)
		}
	}
	return nil
}

func scanWorkflow(scanner interface{ Scan(dest ...interface{}) error }) (*Workflow, error) {
	var w Workflow
	var typ, subRole, curRole, status string
	var approvalDate sql.NullTime
	var submissionDate time.Time
	var payload sql.NullString

	err := scanner.Scan(&w.ID, &typ, &w.SubmittedBy, &subRole, &w.CurrentApprover,
		&curRole, &status, &submissionDate, &approvalDate, &payload)
	if err != nil {
		return nil, err
	}

	w.Type = Type(typ)
	w.SubmittedByRole = hierarchy.Role(subRole)
	w.CurrentApproverRole = hierarchy.Role(curRole)
	w.Status = Status(status)
	w.SubmissionDate = submissionDate
	if approvalDate.Valid {
		t := approvalDate.Time
		w.ApprovalDate = &t
	}
	if payload.Valid && payload.String != "" {
		p, err := DecodePayload(w.Type, []byte(payload.String))
		if err != nil {
			// A row with an undecodable payload is still listable; the
			// payload is dropped rather than failing the whole read.
			p = nil
		}
		w.Payload = p
	}
	return &w, nil
}

func nullableString(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
