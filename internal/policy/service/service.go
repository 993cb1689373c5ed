// Package service implements insurance policy CRUD. A policy's branch is
// derived from its client at creation time and gates later mutations even
// if the client is reassigned.
package service

import (
	"context"
	"errors"
	"log/slog"

	"intia/internal/access"
	auditmodels "intia/internal/audit/models"
	auditsvc "intia/internal/audit/service"
	clientmodels "intia/internal/client/models"
	"intia/internal/policy/models"
	"intia/internal/policy/store"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/pagination"
	"intia/pkg/platform/sentinel"
	"intia/pkg/platform/tx"
	"intia/pkg/requestcontext"
)

// Store persists policies.
type Store interface {
	Create(ctx context.Context, policy *models.Policy) error
	FindByID(ctx context.Context, policyID domain.PolicyID) (*models.Policy, error)
	FindByNumber(ctx context.Context, policyNumber string) (*models.Policy, error)
	List(ctx context.Context, filter store.Filter, page pagination.Page) ([]*models.Policy, error)
	Count(ctx context.Context, filter store.Filter) (int, error)
	Update(ctx context.Context, policy *models.Policy) error
	Delete(ctx context.Context, policyID domain.PolicyID) error
}

// ClientReader resolves the owning client at policy creation.
type ClientReader interface {
	FindByID(ctx context.Context, clientID domain.ClientID) (*clientmodels.Client, error)
}

// Auditor records the audit trail.
type Auditor interface {
	Append(ctx context.Context, rec auditsvc.Record) (*auditmodels.Entry, error)
}

// ListOptions carries the optional list filters. BranchID only takes effect
// for ADMIN actors; everyone else is confined to their own branch.
type ListOptions struct {
	ClientID *domain.ClientID
	Status   *models.Status
	BranchID *domain.BranchID
}

type Service struct {
	store   Store
	clients ClientReader
	audit   Auditor
	runner  tx.Runner
	logger  *slog.Logger
}

func New(store Store, clients ClientReader, audit Auditor, runner tx.Runner, logger *slog.Logger) *Service {
	return &Service{store: store, clients: clients, audit: audit, runner: runner, logger: logger}
}

// List returns the page of policies the actor may see plus the total count
// over the identical filter set.
func (s *Service) List(ctx context.Context, actor access.Actor, opts ListOptions, page pagination.Page) ([]*models.Policy, int, error) {
	filter := store.Filter{
		ClientID: opts.ClientID,
		Status:   opts.Status,
		BranchID: access.ListScope(actor, opts.BranchID),
	}

	policies, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list policies")
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count policies")
	}
	return policies, total, nil
}

// Get loads one policy, gated on the policy's stored branch.
func (s *Service) Get(ctx context.Context, actor access.Actor, policyID domain.PolicyID) (*models.Policy, error) {
	policy, err := s.store.FindByID(ctx, policyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "policy not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	branchID := policy.BranchID
	if !access.CanAccess(actor, &branchID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "policy belongs to another branch")
	}
	return policy, nil
}

// Create issues a policy. The owning branch is the client's current branch,
// any caller-supplied status is ignored, and the initial status is pending.
func (s *Service) Create(ctx context.Context, actor access.Actor, req models.CreateRequest) (*models.Policy, error) {
	if !access.CanWrite(actor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "role does not permit modifications")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := s.clients.FindByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "client does not exist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	branchID := client.BranchID
	if !access.CanAccess(actor, &branchID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "client belongs to another branch")
	}

	if _, err := s.store.FindByNumber(ctx, req.PolicyNumber); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "a policy with this number already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check policy number uniqueness")
	}

	now := requestcontext.Now(ctx)
	policy := &models.Policy{
		ID:           domain.NewPolicyID(),
		PolicyNumber: req.PolicyNumber,
		ClientID:     req.ClientID,
		BranchID:     client.BranchID,
		Type:         req.Type,
		Coverage:     req.Coverage,
		Premium:      req.Premium,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, policy); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "a policy with this number already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create policy")
		}
		_, err := s.audit.Append(ctx, auditsvc.Record{
			ActorID:      actor.ID,
			Username:     actor.Username,
			Action:       auditmodels.ActionCreate,
			ResourceType: auditmodels.ResourcePolicy,
			ResourceID:   policy.ID.String(),
			NewValues:    policy.Snapshot(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "policy created",
		"policy_id", policy.ID,
		"policy_number", policy.PolicyNumber,
		"client_id", policy.ClientID,
		"actor_id", actor.ID,
	)
	return policy, nil
}

// Update applies a partial patch. Status changes must follow the state
// machine; illegal transitions surface as Conflict.
func (s *Service) Update(ctx context.Context, actor access.Actor, policyID domain.PolicyID, patch models.UpdateRequest) (*models.Policy, error) {
	if !access.CanWrite(actor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "role does not permit modifications")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	policy, err := s.Get(ctx, actor, policyID)
	if err != nil {
		return nil, err
	}

	before, after, err := policy.Apply(patch, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if len(after) == 0 {
		return policy, nil
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Update(ctx, policy); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update policy")
		}
		_, err := s.audit.Append(ctx, auditsvc.Record{
			ActorID:      actor.ID,
			Username:     actor.Username,
			Action:       auditmodels.ActionUpdate,
			ResourceType: auditmodels.ResourcePolicy,
			ResourceID:   policy.ID.String(),
			OldValues:    before,
			NewValues:    after,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return policy, nil
}

// Delete removes a policy and records a DELETE audit entry with the full
// old-value snapshot. There is no active-status precondition; any policy
// an authorized user can reach may be deleted.
func (s *Service) Delete(ctx context.Context, actor access.Actor, policyID domain.PolicyID) error {
	if !access.CanWrite(actor) {
		return dErrors.New(dErrors.CodeForbidden, "role does not permit modifications")
	}

	policy, err := s.Get(ctx, actor, policyID)
	if err != nil {
		return err
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Delete(ctx, policyID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete policy")
		}
		_, err := s.audit.Append(ctx, auditsvc.Record{
			ActorID:      actor.ID,
			Username:     actor.Username,
			Action:       auditmodels.ActionDelete,
			ResourceType: auditmodels.ResourcePolicy,
			ResourceID:   policyID.String(),
			OldValues:    policy.Snapshot(),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "policy deleted",
		"policy_id", policyID,
		"actor_id", actor.ID,
	)
	return nil
}
