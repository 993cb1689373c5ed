package models

import (
	"time"

	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
)

// Action identifies what the actor did to the resource.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
)

// ParseAction validates an action value from the outside world.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionLogin, ActionLogout:
		return Action(s), nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "invalid audit action")
}

// ResourceType names the kind of entity an entry refers to.
type ResourceType string

const (
	ResourceClient ResourceType = "client"
	ResourcePolicy ResourceType = "policy"
	ResourceUser   ResourceType = "user"
	ResourceBranch ResourceType = "branch"
)

// ParseResourceType validates a resource type value from the outside world.
func ParseResourceType(s string) (ResourceType, error) {
	switch ResourceType(s) {
	case ResourceClient, ResourcePolicy, ResourceUser, ResourceBranch:
		return ResourceType(s), nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "invalid resource type")
}

// Entry is one immutable audit record. Entries are only ever inserted;
// there is no update or delete path anywhere in the codebase.
type Entry struct {
	ID           domain.AuditLogID `json:"id"`
	UserID       domain.UserID     `json:"user_id"`
	Username     string            `json:"username"`
	Action       Action            `json:"action"`
	ResourceType ResourceType      `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	OldValues    map[string]any    `json:"old_values,omitempty"`
	NewValues    map[string]any    `json:"new_values,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Filter narrows an audit listing. All fields are optional and combine
// with AND semantics. From/To bound the entry timestamp inclusively.
type Filter struct {
	ActorID      *domain.UserID
	Action       *Action
	ResourceType *ResourceType
	From         *time.Time
	To           *time.Time
}
