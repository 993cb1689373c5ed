// Package service implements client CRUD with branch-scoped access control.
// Every mutation appends an audit entry inside the same transaction as the
// primary write.
package service

import (
	"context"
	"errors"
	"log/slog"

	"intia/internal/access"
	auditmodels "intia/internal/audit/models"
	auditsvc "intia/internal/audit/service"
	"intia/internal/client/models"
	"intia/internal/client/store"
	policymodels "intia/internal/policy/models"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/pagination"
	"intia/pkg/platform/sentinel"
	"intia/pkg/platform/tx"
	"intia/pkg/requestcontext"
)

// Store persists clients.
type Store interface {
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, clientID domain.ClientID) (*models.Client, error)
	FindByEmail(ctx context.Context, email string) (*models.Client, error)
	List(ctx context.Context, filter store.Filter, page pagination.Page) ([]*models.Client, error)
	Count(ctx context.Context, filter store.Filter) (int, error)
	Update(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, clientID domain.ClientID) error
}

// PolicyReader answers policy questions the client lifecycle depends on.
type PolicyReader interface {
	ListByClient(ctx context.Context, clientID domain.ClientID) ([]*policymodels.Policy, error)
	HasActive(ctx context.Context, clientID domain.ClientID) (bool, error)
}

// Auditor records the audit trail.
type Auditor interface {
	Append(ctx context.Context, rec auditsvc.Record) (*auditmodels.Entry, error)
}

// ListOptions carries the optional list filters.
type ListOptions struct {
	Search   string
	BranchID *domain.BranchID
}

type Service struct {
	store    Store
	policies PolicyReader
	audit    Auditor
	runner   tx.Runner
	logger   *slog.Logger
}

func New(store Store, policies PolicyReader, audit Auditor, runner tx.Runner, logger *slog.Logger) *Service {
	return &Service{store: store, policies: policies, audit: audit, runner: runner, logger: logger}
}

// List returns the page of clients the actor may see plus the total count
// over the identical filter set.
func (s *Service) List(ctx context.Context, actor access.Actor, opts ListOptions, page pagination.Page) ([]*models.Client, int, error) {
	filter := store.Filter{
		BranchID: access.ListScope(actor, opts.BranchID),
		Search:   opts.Search,
	}

	clients, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count clients")
	}
	return clients, total, nil
}

// Get loads one client. NotFound before Forbidden: a caller may learn that
// an id does not exist, but not which branch an existing id belongs to.
func (s *Service) Get(ctx context.Context, actor access.Actor, clientID domain.ClientID) (*models.Client, error) {
	client, err := s.store.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	branchID := client.BranchID
	if !access.CanAccess(actor, &branchID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "client belongs to another branch")
	}
	return client, nil
}

// GetWithPolicies loads one client and its policies.
func (s *Service) GetWithPolicies(ctx context.Context, actor access.Actor, clientID domain.ClientID) (*models.Client, []*policymodels.Policy, error) {
	client, err := s.Get(ctx, actor, clientID)
	if err != nil {
		return nil, nil, err
	}
	policies, err := s.policies.ListByClient(ctx, clientID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client policies")
	}
	return client, policies, nil
}

// Create registers a client and records a CREATE audit entry with the full
// new-value snapshot, atomically.
func (s *Service) Create(ctx context.Context, actor access.Actor, req models.CreateRequest) (*models.Client, error) {
	if !access.CanWrite(actor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "role does not permit modifications")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	branchID := req.BranchID
	if !access.CanAccess(actor, &branchID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot create clients in another branch")
	}

	if _, err := s.store.FindByEmail(ctx, req.Email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "a client with this email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email uniqueness")
	}

	now := requestcontext.Now(ctx)
	client := &models.Client{
		ID:          domain.NewClientID(),
		BranchID:    req.BranchID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		DateOfBirth: req.DateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, client); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a client with this email already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create client")
		}
		_, err := s.audit.Append(ctx, auditsvc.Record{
			ActorID:      actor.ID,
			Username:     actor.Username,
			Action:       auditmodels.ActionCreate,
			ResourceType: auditmodels.ResourceClient,
			ResourceID:   client.ID.String(),
			NewValues:    client.Snapshot(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "client created",
		"client_id", client.ID,
		"branch_id", client.BranchID,
		"actor_id", actor.ID,
	)
	return client, nil
}

// Update applies a partial patch. The branch gate is re-checked against the
// effective target branch so a caller can neither edit a client in a branch
// they cannot touch nor move one into such a branch.
func (s *Service) Update(ctx context.Context, actor access.Actor, clientID domain.ClientID, patch models.UpdateRequest) (*models.Client, error) {
	if !access.CanWrite(actor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "role does not permit modifications")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	client, err := s.Get(ctx, actor, clientID)
	if err != nil {
		return nil, err
	}

	effective := patch.EffectiveBranch(client.BranchID)
	if !access.CanAccess(actor, &effective) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot move client to another branch")
	}

	if patch.Email != nil && *patch.Email != client.Email {
		existing, err := s.store.FindByEmail(ctx, *patch.Email)
		if err == nil && existing.ID != clientID {
			return nil, dErrors.New(dErrors.CodeConflict, "a client with this email already exists")
		}
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email uniqueness")
		}
	}

	before, after := client.Apply(patch, requestcontext.Now(ctx))
	if len(after) == 0 {
		return client, nil
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, client); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a client with this email already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client")
		}
		_, err := s.audit.Append(ctx, auditsvc.Record{
			ActorID:      actor.ID,
			Username:     actor.Username,
			Action:       auditmodels.ActionUpdate,
			ResourceType: auditmodels.ResourceClient,
			ResourceID:   client.ID.String(),
			OldValues:    before,
			NewValues:    after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Delete removes a client unless any of its policies is still active, and
// records a DELETE audit entry with the full old-value snapshot.
func (s *Service) Delete(ctx context.Context, actor access.Actor, clientID domain.ClientID) error {
	if !access.CanWrite(actor) {
		return dErrors.New(dErrors.CodeForbidden, "role does not permit modifications")
	}

	client, err := s.Get(ctx, actor, clientID)
	if err != nil {
		return err
	}

	hasActive, err := s.policies.HasActive(ctx, clientID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check client policies")
	}
	if hasActive {
		return dErrors.New(dErrors.CodeConflict, "cannot delete client with active policies")
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Delete(ctx, clientID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete client")
		}
		_, err := s.audit.Append(ctx, auditsvc.Record{
			ActorID:      actor.ID,
			Username:     actor.Username,
			Action:       auditmodels.ActionDelete,
			ResourceType: auditmodels.ResourceClient,
			ResourceID:   clientID.String(),
			OldValues:    client.Snapshot(),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "client deleted",
		"client_id", clientID,
		"actor_id", actor.ID,
	)
	return nil
}
