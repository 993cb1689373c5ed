// Package access holds the branch-scoping rules shared by every service.
//
// The three staff roles form a closed enumeration with a single pure
// predicate. ADMIN is branch-unscoped; AGENT and VIEWER are pinned to their
// home branch. Keeping the decision here, free of storage and HTTP concerns,
// is what makes the rules unit-testable in isolation.
package access

import (
	"intia/pkg/domain"
)

// Role is a staff user's role.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleAgent  Role = "AGENT"
	RoleViewer Role = "VIEWER"
)

// IsValid reports whether the role is one of the three known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleViewer:
		return true
	}
	return false
}

// Actor is the authenticated identity a service operation runs as.
// BranchID is nil only for ADMIN users. Username is carried for audit
// attribution only; authorization decisions never consult it.
type Actor struct {
	ID       domain.UserID
	Username string
	Role     Role
	BranchID *domain.BranchID
}

// CanAccess reports whether the actor may touch a resource owned by the given
// branch. ADMIN may touch everything; everyone else only their home branch.
// A resource with no branch is admin-only.
func CanAccess(actor Actor, branchID *domain.BranchID) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	if branchID == nil || actor.BranchID == nil {
		return false
	}
	return *actor.BranchID == *branchID
}

// CanWrite reports whether the actor's role permits mutations at all.
// VIEWER is read-only; branch scoping is checked separately via CanAccess.
func CanWrite(actor Actor) bool {
	return actor.Role == RoleAdmin || actor.Role == RoleAgent
}

// ListScope resolves the branch filter a list query must apply.
// Non-admin actors are always confined to their own branch; any requested
// filter is ignored. ADMIN may narrow to a requested branch or see all
// branches when none is requested (nil return).
func ListScope(actor Actor, requested *domain.BranchID) *domain.BranchID {
	if actor.Role != RoleAdmin {
		return actor.BranchID
	}
	return requested
}
