// Package models defines the client entity and its request shapes.
package models

import (
	"strings"
	"time"

	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
)

// Client is an insured person attached to exactly one branch.
type Client struct {
	ID          domain.ClientID `json:"id"`
	BranchID    domain.BranchID `json:"branch_id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	DateOfBirth *domain.Date    `json:"date_of_birth,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateRequest carries the fields required to register a client.
type CreateRequest struct {
	BranchID    domain.BranchID `json:"branch_id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	DateOfBirth *domain.Date    `json:"date_of_birth,omitempty"`
}

// Validate checks required fields before any store access.
func (r CreateRequest) Validate() error {
	if r.BranchID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "branch_id is required")
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "first_name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "last_name is required")
	}
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "phone is required")
	}
	if strings.TrimSpace(r.Address) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	return nil
}

// UpdateRequest is a partial update. Nil fields are left untouched.
type UpdateRequest struct {
	BranchID    *domain.BranchID `json:"branch_id,omitempty"`
	FirstName   *string          `json:"first_name,omitempty"`
	LastName    *string          `json:"last_name,omitempty"`
	Email       *string          `json:"email,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	Address     *string          `json:"address,omitempty"`
	DateOfBirth *domain.Date     `json:"date_of_birth,omitempty"`
}

// Validate rejects patches that would blank out required fields.
func (r UpdateRequest) Validate() error {
	if r.FirstName != nil && strings.TrimSpace(*r.FirstName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "first_name cannot be empty")
	}
	if r.LastName != nil && strings.TrimSpace(*r.LastName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "last_name cannot be empty")
	}
	if r.Email != nil && !strings.Contains(*r.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if r.Phone != nil && strings.TrimSpace(*r.Phone) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "phone cannot be empty")
	}
	if r.Address != nil && strings.TrimSpace(*r.Address) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	return nil
}

// EffectiveBranch resolves the branch the client will belong to after the
// patch is applied.
func (r UpdateRequest) EffectiveBranch(current domain.BranchID) domain.BranchID {
	if r.BranchID != nil {
		return *r.BranchID
	}
	return current
}

// Snapshot returns the client's mutable fields for audit capture.
func (c *Client) Snapshot() map[string]any {
	return map[string]any{
		"branch_id":     c.BranchID,
		"first_name":    c.FirstName,
		"last_name":     c.LastName,
		"email":         c.Email,
		"phone":         c.Phone,
		"address":       c.Address,
		"date_of_birth": c.DateOfBirth,
	}
}

// Apply mutates the client with the fields present in the patch and returns
// before/after snapshots limited to the fields that actually changed.
func (c *Client) Apply(patch UpdateRequest, now time.Time) (before, after map[string]any) {
	before = map[string]any{}
	after = map[string]any{}

	if patch.BranchID != nil && *patch.BranchID != c.BranchID {
		before["branch_id"], after["branch_id"] = c.BranchID, *patch.BranchID
		c.BranchID = *patch.BranchID
	}
	if patch.FirstName != nil && *patch.FirstName != c.FirstName {
		before["first_name"], after["first_name"] = c.FirstName, *patch.FirstName
		c.FirstName = *patch.FirstName
	}
	if patch.LastName != nil && *patch.LastName != c.LastName {
		before["last_name"], after["last_name"] = c.LastName, *patch.LastName
		c.LastName = *patch.LastName
	}
	if patch.Email != nil && *patch.Email != c.Email {
		before["email"], after["email"] = c.Email, *patch.Email
		c.Email = *patch.Email
	}
	if patch.Phone != nil && *patch.Phone != c.Phone {
		before["phone"], after["phone"] = c.Phone, *patch.Phone
		c.Phone = *patch.Phone
	}
	if patch.Address != nil && *patch.Address != c.Address {
		before["address"], after["address"] = c.Address, *patch.Address
		c.Address = *patch.Address
	}
	if patch.DateOfBirth != nil && !sameDate(c.DateOfBirth, patch.DateOfBirth) {
		before["date_of_birth"], after["date_of_birth"] = c.DateOfBirth, patch.DateOfBirth
		c.DateOfBirth = patch.DateOfBirth
	}

	if len(after) > 0 {
		c.UpdatedAt = now
	}
	return before, after
}

func sameDate(a, b *domain.Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
