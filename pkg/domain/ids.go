// Package domain defines the typed identifiers shared across services.
//
// Each entity gets its own UUID wrapper so the compiler rejects a branch ID
// where a client ID is expected. Parse helpers enforce the invariant that
// IDs arriving at trust boundaries are valid, non-nil UUIDs.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "intia/pkg/domain-errors"
)

type (
	// BranchID identifies a physical branch office.
	BranchID uuid.UUID
	// UserID identifies a staff user.
	UserID uuid.UUID
	// ClientID identifies an insured client.
	ClientID uuid.UUID
	// PolicyID identifies an insurance policy.
	PolicyID uuid.UUID
	// AuditLogID identifies an audit trail entry.
	AuditLogID uuid.UUID
)

func (id BranchID) String() string   { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id ClientID) String() string   { return uuid.UUID(id).String() }
func (id PolicyID) String() string   { return uuid.UUID(id).String() }
func (id AuditLogID) String() string { return uuid.UUID(id).String() }

func (id BranchID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PolicyID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id AuditLogID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders IDs as canonical UUID strings in JSON and text output.
func (id BranchID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ClientID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id PolicyID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id AuditLogID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *BranchID) UnmarshalText(b []byte) error {
	parsed, err := ParseBranchID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ClientID) UnmarshalText(b []byte) error {
	parsed, err := ParseClientID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PolicyID) UnmarshalText(b []byte) error {
	parsed, err := ParsePolicyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewBranchID returns a fresh random branch ID.
func NewBranchID() BranchID { return BranchID(uuid.New()) }

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewClientID returns a fresh random client ID.
func NewClientID() ClientID { return ClientID(uuid.New()) }

// NewPolicyID returns a fresh random policy ID.
func NewPolicyID() PolicyID { return PolicyID(uuid.New()) }

// NewAuditLogID returns a fresh random audit log ID.
func NewAuditLogID() AuditLogID { return AuditLogID(uuid.New()) }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid %s id", kind))
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s id cannot be nil", kind))
	}
	return parsed, nil
}

// ParseBranchID parses and validates a branch ID string.
func ParseBranchID(raw string) (BranchID, error) {
	parsed, err := parseUUID(raw, "branch")
	return BranchID(parsed), err
}

// ParseUserID parses and validates a user ID string.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

// ParseClientID parses and validates a client ID string.
func ParseClientID(raw string) (ClientID, error) {
	parsed, err := parseUUID(raw, "client")
	return ClientID(parsed), err
}

// ParsePolicyID parses and validates a policy ID string.
func ParsePolicyID(raw string) (PolicyID, error) {
	parsed, err := parseUUID(raw, "policy")
	return PolicyID(parsed), err
}
