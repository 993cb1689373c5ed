package models

import (
	"time"

	"intia/internal/access"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
)

// User is a staff account.
//
// Invariants:
//   - Username and Email are non-empty and unique across users
//   - Role is one of ADMIN, AGENT, VIEWER
//   - BranchID is nil only when Role is ADMIN
//   - PasswordHash is a bcrypt hash and never serialized
type User struct {
	ID           domain.UserID    `json:"id"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	Role         access.Role      `json:"role"`
	BranchID     *domain.BranchID `json:"branch_id,omitempty"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewUser validates and constructs a staff account.
func NewUser(
	userID domain.UserID,
	username, email, passwordHash string,
	role access.Role,
	branchID *domain.BranchID,
	now time.Time,
) (*User, error) {
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if role != access.RoleAdmin && branchID == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "non-admin users require a home branch")
	}
	return &User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		BranchID:     branchID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Actor returns the access identity this user operates as.
func (u *User) Actor() access.Actor {
	return access.Actor{ID: u.ID, Username: u.Username, Role: u.Role, BranchID: u.BranchID}
}
