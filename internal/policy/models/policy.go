// Package models defines the insurance policy entity, its request shapes,
// and the status state machine.
package models

import (
	"strings"
	"time"

	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
)

// Status is a policy's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// ParseStatus validates a status value from the outside world.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusActive, StatusCancelled, StatusExpired:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "invalid policy status")
}

// CanTransitionTo reports whether the state machine permits moving from s
// to target. Cancelled and expired are terminal.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusActive || target == StatusCancelled || target == StatusExpired
	case StatusActive:
		return target == StatusCancelled || target == StatusExpired
	}
	return false
}

// Policy is an insurance contract. BranchID mirrors the client's branch at
// creation time and does not follow the client on later reassignment.
type Policy struct {
	ID           domain.PolicyID `json:"id"`
	PolicyNumber string          `json:"policy_number"`
	ClientID     domain.ClientID `json:"client_id"`
	BranchID     domain.BranchID `json:"branch_id"`
	Type         string          `json:"type"`
	Coverage     string          `json:"coverage"`
	Premium      domain.Money    `json:"premium"`
	StartDate    domain.Date     `json:"start_date"`
	EndDate      domain.Date     `json:"end_date"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateRequest carries the fields required to issue a policy. The owning
// branch is derived from the client, and the initial status is always
// pending, so neither appears here.
type CreateRequest struct {
	PolicyNumber string          `json:"policy_number"`
	ClientID     domain.ClientID `json:"client_id"`
	Type         string          `json:"type"`
	Coverage     string          `json:"coverage"`
	Premium      domain.Money    `json:"premium"`
	StartDate    domain.Date     `json:"start_date"`
	EndDate      domain.Date     `json:"end_date"`
}

func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.PolicyNumber) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "policy_number is required")
	}
	if r.ClientID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "client_id is required")
	}
	if strings.TrimSpace(r.Type) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "type is required")
	}
	if strings.TrimSpace(r.Coverage) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "coverage is required")
	}
	if !r.Premium.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "premium must be positive")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "start_date and end_date are required")
	}
	if !r.EndDate.After(r.StartDate) {
		return dErrors.New(dErrors.CodeInvalidInput, "end_date must be after start_date")
	}
	return nil
}

// UpdateRequest is a partial update. Nil fields are left untouched.
// PolicyNumber, ClientID and BranchID are immutable after creation.
type UpdateRequest struct {
	Type      *string       `json:"type,omitempty"`
	Coverage  *string       `json:"coverage,omitempty"`
	Premium   *domain.Money `json:"premium,omitempty"`
	StartDate *domain.Date  `json:"start_date,omitempty"`
	EndDate   *domain.Date  `json:"end_date,omitempty"`
	Status    *Status       `json:"status,omitempty"`
}

func (r UpdateRequest) Validate() error {
	if r.Type != nil && strings.TrimSpace(*r.Type) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "type cannot be empty")
	}
	if r.Coverage != nil && strings.TrimSpace(*r.Coverage) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "coverage cannot be empty")
	}
	if r.Premium != nil && !r.Premium.IsPositive() {
		return dErrors.New(dErrors.CodeInvalidInput, "premium must be positive")
	}
	if r.Status != nil {
		if _, err := ParseStatus(string(*r.Status)); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns the policy's mutable fields for audit capture.
func (p *Policy) Snapshot() map[string]any {
	return map[string]any{
		"policy_number": p.PolicyNumber,
		"client_id":     p.ClientID,
		"branch_id":     p.BranchID,
		"type":          p.Type,
		"coverage":      p.Coverage,
		"premium":       p.Premium,
		"start_date":    p.StartDate,
		"end_date":      p.EndDate,
		"status":        string(p.Status),
	}
}

// Apply mutates the policy with the fields present in the patch and returns
// before/after snapshots limited to the fields that actually changed.
// The coverage window is validated against the effective dates, and a status
// change must be a legal transition.
func (p *Policy) Apply(patch UpdateRequest, now time.Time) (before, after map[string]any, err error) {
	startDate := p.StartDate
	if patch.StartDate != nil {
		startDate = *patch.StartDate
	}
	endDate := p.EndDate
	if patch.EndDate != nil {
		endDate = *patch.EndDate
	}
	if !endDate.After(startDate) {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "end_date must be after start_date")
	}
	if patch.Status != nil && *patch.Status != p.Status && !p.Status.CanTransitionTo(*patch.Status) {
		return nil, nil, dErrors.New(dErrors.CodeConflict,
			"cannot change policy status from "+string(p.Status)+" to "+string(*patch.Status))
	}

	before = map[string]any{}
	after = map[string]any{}

	if patch.Type != nil && *patch.Type != p.Type {
		before["type"], after["type"] = p.Type, *patch.Type
		p.Type = *patch.Type
	}
	if patch.Coverage != nil && *patch.Coverage != p.Coverage {
		before["coverage"], after["coverage"] = p.Coverage, *patch.Coverage
		p.Coverage = *patch.Coverage
	}
	if patch.Premium != nil && *patch.Premium != p.Premium {
		before["premium"], after["premium"] = p.Premium, *patch.Premium
		p.Premium = *patch.Premium
	}
	if patch.StartDate != nil && !p.StartDate.Equal(*patch.StartDate) {
		before["start_date"], after["start_date"] = p.StartDate, *patch.StartDate
		p.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil && !p.EndDate.Equal(*patch.EndDate) {
		before["end_date"], after["end_date"] = p.EndDate, *patch.EndDate
		p.EndDate = *patch.EndDate
	}
	if patch.Status != nil && *patch.Status != p.Status {
		before["status"], after["status"] = string(p.Status), string(*patch.Status)
		p.Status = *patch.Status
	}

	if len(after) > 0 {
		p.UpdatedAt = now
	}
	return before, after, nil
}
