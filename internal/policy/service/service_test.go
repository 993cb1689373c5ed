package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"intia/internal/access"
	auditmodels "intia/internal/audit/models"
	auditsvc "intia/internal/audit/service"
	auditstore "intia/internal/audit/store"
	clientmodels "intia/internal/client/models"
	clientstore "intia/internal/client/store"
	"intia/internal/policy/models"
	"intia/internal/policy/store"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/pagination"
	"intia/pkg/platform/tx"
)

type PolicyServiceSuite struct {
	suite.Suite
	ctx      context.Context
	policies *store.InMemory
	clients  *clientstore.InMemory
	audit    *auditstore.InMemory
	svc      *Service

	branchA domain.BranchID
	branchB domain.BranchID
	admin   access.Actor
	agentA  access.Actor
	viewerA access.Actor
	clientA *clientmodels.Client
	clientB *clientmodels.Client
}

func TestPolicyServiceSuite(t *testing.T) {
	suite.Run(t, new(PolicyServiceSuite))
}

func (s *PolicyServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.policies = store.NewInMemory()
	s.clients = clientstore.NewInMemory()
	s.audit = auditstore.NewInMemory()
	auditService := auditsvc.New(s.audit, nil, slog.Default())
	s.svc = New(s.policies, s.clients, auditService, tx.PassthroughRunner{}, slog.Default())

	s.branchA = domain.NewBranchID()
	s.branchB = domain.NewBranchID()
	s.admin = access.Actor{ID: domain.NewUserID(), Username: "admin", Role: access.RoleAdmin}
	s.agentA = access.Actor{ID: domain.NewUserID(), Username: "agent_a", Role: access.RoleAgent, BranchID: &s.branchA}
	s.viewerA = access.Actor{ID: domain.NewUserID(), Username: "viewer_a", Role: access.RoleViewer, BranchID: &s.branchA}

	s.clientA = s.seedClient(s.branchA, "amina@example.com")
	s.clientB = s.seedClient(s.branchB, "paul@example.com")
}

func (s *PolicyServiceSuite) seedClient(branchID domain.BranchID, email string) *clientmodels.Client {
	now := time.Now().UTC()
	client := &clientmodels.Client{
		ID:        domain.NewClientID(),
		BranchID:  branchID,
		FirstName: "Test",
		LastName:  "Client",
		Email:     email,
		Phone:     "+237",
		Address:   "Rue 1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.clients.Create(s.ctx, client))
	return client
}

func (s *PolicyServiceSuite) premium(raw string) domain.Money {
	m, err := domain.ParseMoney(raw)
	s.Require().NoError(err)
	return m
}

func (s *PolicyServiceSuite) createRequest(client *clientmodels.Client, number string) models.CreateRequest {
	return models.CreateRequest{
		PolicyNumber: number,
		ClientID:     client.ID,
		Type:         "auto",
		Coverage:     "third party liability",
		Premium:      s.premium("450.00"),
		StartDate:    domain.NewDate(2024, time.January, 1),
		EndDate:      domain.NewDate(2025, time.January, 1),
	}
}

func (s *PolicyServiceSuite) defaultPage() pagination.Page {
	return pagination.Page{Skip: 0, Limit: 20}
}

func (s *PolicyServiceSuite) TestCreateDerivesBranchFromClient() {
	policy, err := s.svc.Create(s.ctx, s.admin, s.createRequest(s.clientB, "POL-1"))
	s.Require().NoError(err)
	s.Equal(s.branchB, policy.BranchID)
	s.Equal(models.StatusPending, policy.Status)
}

func (s *PolicyServiceSuite) TestCreateMissingClientBadRequest() {
	req := s.createRequest(s.clientA, "POL-1")
	req.ClientID = domain.NewClientID()

	_, err := s.svc.Create(s.ctx, s.admin, req)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *PolicyServiceSuite) TestCreateCrossBranchForbidden() {
	_, err := s.svc.Create(s.ctx, s.agentA, s.createRequest(s.clientB, "POL-1"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *PolicyServiceSuite) TestCreateViewerForbidden() {
	_, err := s.svc.Create(s.ctx, s.viewerA, s.createRequest(s.clientA, "POL-1"))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *PolicyServiceSuite) TestCreateDuplicateNumberConflict() {
	_, err := s.svc.Create(s.ctx, s.admin, s.createRequest(s.clientA, "POL-1"))
	s.Require().NoError(err)

	_, err = s.svc.Create(s.ctx, s.admin, s.createRequest(s.clientB, "POL-1"))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PolicyServiceSuite) TestCreateRecordsAudit() {
	policy, err := s.svc.Create(s.ctx, s.agentA, s.createRequest(s.clientA, "POL-1"))
	s.Require().NoError(err)

	entries := s.audit.All()
	s.Require().Len(entries, 1)
	s.Equal(auditmodels.ActionCreate, entries[0].Action)
	s.Equal(auditmodels.ResourcePolicy, entries[0].ResourceType)
	s.Equal(policy.ID.String(), entries[0].ResourceID)
	s.Equal("POL-1", entries[0].NewValues["policy_number"])
	s.Equal(450.0, entries[0].NewValues["premium"])
	s.Equal("2024-01-01", entries[0].NewValues["start_date"])
}

func (s *PolicyServiceSuite) TestUpdateGatesOnStoredBranch() {
	policy, err := s.svc.Create(s.ctx, s.admin, s.createRequest(s.clientA, "POL-1"))
	s.Require().NoError(err)

	// Reassigning the client does not move the policy; the agent's branch
	// still matches the stored one.
	s.clientA.BranchID = s.branchB
	s.Require().NoError(s.clients.Update(s.ctx, s.clientA))

	coverage := "comprehensive"
	updated, err := s.svc.Update(s.ctx, s.agentA, policy.ID, models.UpdateRequest{Coverage: &coverage})
	s.Require().NoError(err)
	s.Equal("comprehensive", updated.Coverage)
	s.Equal(s.branchA, updated.BranchID)
}

func (s *PolicyServiceSuite) TestUpdateLegalTransition() {
	policy, err := s.svc.Create(s.ctx, s.agentA, s.createRequest(s.clientA, "POL-1"))
	s.Require().NoError(err)

	status := models.StatusActive
	updated, err := s.svc.Update(s.ctx, s.agentA, policy.ID, models.UpdateRequest{Status: &status})
	s.Require().NoError(err)
	s.Equal(models.StatusActive, updated.Status)

	entries := s.audit.All()
	s.Require().Len(entries, 2)
	s.Equal(map[string]any{"status": "pending"}, entries[1].OldValues)
	s.Equal(map[string]any{"status": "active"}, entries[1].NewValues)
}

func (s *PolicyServiceSuite) TestUpdateIllegalTransitionConflict() {
	policy, err := s.svc.Create(s.ctx, s.agentA, s.createRequest(s.clientA, "POL-1"))
	s.Require().NoError(err)

	cancelled := models.StatusCancelled
	_, err = s.svc.Update(s.ctx, s.agentA, policy.ID, models.UpdateRequest{Status: &cancelled})
	s.Require().NoError(err)

	active := models.StatusActive
	_, err = s.svc.Update(s.ctx, s.agentA, policy.ID, models.UpdateRequest{Status: &active})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PolicyServiceSuite) TestUpdateInvalidWindow() {
	policy, err := s.svc.Create(s.ctx, s.agentA, s.createRequest(s.clientA, "POL-1"))
	s.Require().NoError(err)

	badEnd := domain.NewDate(2023, time.June, 1)
	_, err = s.svc.Update(s.ctx, s.agentA, policy.ID, models.UpdateRequest{EndDate: &badEnd})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *PolicyServiceSuite) TestListScopesAndFilters() {
	_, err := s.svc.Create(s.ctx, s.admin, s.createRequest(s.clientA, "POL-A"))
	s.Require().NoError(err)
	created, err := s.svc.Create(s.ctx, s.admin, s.createRequest(s.clientB, "POL-B"))
	s.Require().NoError(err)

	// Non-admin confined to own branch.
	policies, total, err := s.svc.List(s.ctx, s.agentA, ListOptions{BranchID: &s.branchB}, s.defaultPage())
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal("POL-A", policies[0].PolicyNumber)

	// Status filter combines with scoping.
	active := models.StatusActive
	_, total, err = s.svc.List(s.ctx, s.agentA, ListOptions{Status: &active}, s.defaultPage())
	s.Require().NoError(err)
	s.Equal(0, total)

	// Admin filter by client.
	policies, total, err = s.svc.List(s.ctx, s.admin, ListOptions{ClientID: &s.clientB.ID}, s.defaultPage())
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(created.ID, policies[0].ID)
}

func (s *PolicyServiceSuite) TestDeleteRecordsFullSnapshot() {
	policy, err := s.svc.Create(s.ctx, s.agentA, s.createRequest(s.clientA, "POL-1"))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.ctx, s.agentA, policy.ID))

	_, err = s.svc.Get(s.ctx, s.admin, policy.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	entries := s.audit.All()
	s.Require().Len(entries, 2)
	s.Equal(auditmodels.ActionDelete, entries[1].Action)
	s.Equal("POL-1", entries[1].OldValues["policy_number"])
}

func (s *PolicyServiceSuite) TestDeleteCrossBranchForbidden() {
	policy, err := s.svc.Create(s.ctx, s.admin, s.createRequest(s.clientB, "POL-1"))
	s.Require().NoError(err)

	err = s.svc.Delete(s.ctx, s.agentA, policy.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
