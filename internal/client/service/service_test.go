package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"intia/internal/access"
	auditmodels "intia/internal/audit/models"
	auditsvc "intia/internal/audit/service"
	auditstore "intia/internal/audit/store"
	"intia/internal/client/models"
	"intia/internal/client/store"
	policymodels "intia/internal/policy/models"
	policystore "intia/internal/policy/store"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/pagination"
	"intia/pkg/platform/tx"
)

type ClientServiceSuite struct {
	suite.Suite
	ctx      context.Context
	clients  *store.InMemory
	policies *policystore.InMemory
	audit    *auditstore.InMemory
	svc      *Service

	branchA domain.BranchID
	branchB domain.BranchID
	admin   access.Actor
	agentA  access.Actor
	viewerA access.Actor
}

func TestClientServiceSuite(t *testing.T) {
	suite.Run(t, new(ClientServiceSuite))
}

func (s *ClientServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.clients = store.NewInMemory()
	s.policies = policystore.NewInMemory()
	s.audit = auditstore.NewInMemory()
	auditService := auditsvc.New(s.audit, nil, slog.Default())
	s.svc = New(s.clients, s.policies, auditService, tx.PassthroughRunner{}, slog.Default())

	s.branchA = domain.NewBranchID()
	s.branchB = domain.NewBranchID()
	s.admin = access.Actor{ID: domain.NewUserID(), Username: "admin", Role: access.RoleAdmin}
	s.agentA = access.Actor{ID: domain.NewUserID(), Username: "agent_a", Role: access.RoleAgent, BranchID: &s.branchA}
	s.viewerA = access.Actor{ID: domain.NewUserID(), Username: "viewer_a", Role: access.RoleViewer, BranchID: &s.branchA}
}

func (s *ClientServiceSuite) seedClient(branchID domain.BranchID, first, last, email string) *models.Client {
	client, err := s.svc.Create(s.ctx, s.admin, models.CreateRequest{
		BranchID:  branchID,
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     "+237 600 000 001",
		Address:   "Rue 1",
	})
	s.Require().NoError(err)
	return client
}

func (s *ClientServiceSuite) defaultPage() pagination.Page {
	return pagination.Page{Skip: 0, Limit: 20}
}

func (s *ClientServiceSuite) TestListScopesNonAdminToOwnBranch() {
	s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")
	s.seedClient(s.branchB, "Paul", "Biyick", "paul@example.com")

	// The agent's request to see branch B is ignored.
	clients, total, err := s.svc.List(s.ctx, s.agentA, ListOptions{BranchID: &s.branchB}, s.defaultPage())
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(clients, 1)
	s.Equal(s.branchA, clients[0].BranchID)
}

func (s *ClientServiceSuite) TestListAdminSeesAllAndCanNarrow() {
	s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")
	s.seedClient(s.branchB, "Paul", "Biyick", "paul@example.com")

	_, total, err := s.svc.List(s.ctx, s.admin, ListOptions{}, s.defaultPage())
	s.Require().NoError(err)
	s.Equal(2, total)

	clients, total, err := s.svc.List(s.ctx, s.admin, ListOptions{BranchID: &s.branchB}, s.defaultPage())
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(s.branchB, clients[0].BranchID)
}

func (s *ClientServiceSuite) TestListSearchMatchesNamesAndEmail() {
	s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")
	s.seedClient(s.branchA, "Paul", "Biyick", "paul@example.com")

	for _, needle := range []string{"amina", "NDONGO", "amina@example.com"} {
		clients, total, err := s.svc.List(s.ctx, s.admin, ListOptions{Search: needle}, s.defaultPage())
		s.Require().NoError(err)
		s.Equal(1, total, "search %q", needle)
		s.Equal("Amina", clients[0].FirstName)
	}
}

func (s *ClientServiceSuite) TestGetNotFoundBeforeForbidden() {
	client := s.seedClient(s.branchB, "Paul", "Biyick", "paul@example.com")

	_, err := s.svc.Get(s.ctx, s.agentA, domain.NewClientID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.Get(s.ctx, s.agentA, client.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	got, err := s.svc.Get(s.ctx, s.admin, client.ID)
	s.Require().NoError(err)
	s.Equal(client.ID, got.ID)
}

func (s *ClientServiceSuite) TestCreateViewerForbidden() {
	_, err := s.svc.Create(s.ctx, s.viewerA, models.CreateRequest{
		BranchID:  s.branchA,
		FirstName: "Amina",
		LastName:  "Ndongo",
		Email:     "amina@example.com",
		Phone:     "+237",
		Address:   "Rue 1",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Empty(s.audit.All())
}

func (s *ClientServiceSuite) TestCreateCrossBranchForbidden() {
	_, err := s.svc.Create(s.ctx, s.agentA, models.CreateRequest{
		BranchID:  s.branchB,
		FirstName: "Paul",
		LastName:  "Biyick",
		Email:     "paul@example.com",
		Phone:     "+237",
		Address:   "Rue 1",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ClientServiceSuite) TestCreateDuplicateEmailConflict() {
	s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")

	_, err := s.svc.Create(s.ctx, s.agentA, models.CreateRequest{
		BranchID:  s.branchA,
		FirstName: "Other",
		LastName:  "Person",
		Email:     "Amina@Example.com",
		Phone:     "+237",
		Address:   "Rue 2",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ClientServiceSuite) TestCreateRecordsAudit() {
	client := s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")

	entries := s.audit.All()
	s.Require().Len(entries, 1)
	s.Equal(auditmodels.ActionCreate, entries[0].Action)
	s.Equal(auditmodels.ResourceClient, entries[0].ResourceType)
	s.Equal(client.ID.String(), entries[0].ResourceID)
	s.Equal("admin", entries[0].Username)
	s.Equal("Amina", entries[0].NewValues["first_name"])
	s.Nil(entries[0].OldValues)
}

func (s *ClientServiceSuite) TestUpdateReGatesEffectiveBranch() {
	client := s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")

	// Agent may edit within their branch but not move the client out of it.
	_, err := s.svc.Update(s.ctx, s.agentA, client.ID, models.UpdateRequest{BranchID: &s.branchB})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	updated, err := s.svc.Update(s.ctx, s.admin, client.ID, models.UpdateRequest{BranchID: &s.branchB})
	s.Require().NoError(err)
	s.Equal(s.branchB, updated.BranchID)
}

func (s *ClientServiceSuite) TestUpdateEmailConflict() {
	s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")
	client := s.seedClient(s.branchA, "Paul", "Biyick", "paul@example.com")

	email := "amina@example.com"
	_, err := s.svc.Update(s.ctx, s.agentA, client.ID, models.UpdateRequest{Email: &email})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ClientServiceSuite) TestUpdateAuditsChangedFieldsOnly() {
	client := s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")

	phone := "+237 699 999 999"
	_, err := s.svc.Update(s.ctx, s.agentA, client.ID, models.UpdateRequest{Phone: &phone})
	s.Require().NoError(err)

	entries := s.audit.All()
	s.Require().Len(entries, 2)
	update := entries[1]
	s.Equal(auditmodels.ActionUpdate, update.Action)
	s.Equal(map[string]any{"phone": "+237 600 000 001"}, update.OldValues)
	s.Equal(map[string]any{"phone": phone}, update.NewValues)
}

func (s *ClientServiceSuite) TestUpdateNoopWritesNoAudit() {
	client := s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")

	first := "Amina"
	_, err := s.svc.Update(s.ctx, s.agentA, client.ID, models.UpdateRequest{FirstName: &first})
	s.Require().NoError(err)
	s.Len(s.audit.All(), 1)
}

func (s *ClientServiceSuite) TestDeleteBlockedByActivePolicy() {
	client := s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")
	premium, err := domain.ParseMoney("100.00")
	s.Require().NoError(err)
	s.Require().NoError(s.policies.Create(s.ctx, &policymodels.Policy{
		ID:           domain.NewPolicyID(),
		PolicyNumber: "POL-1",
		ClientID:     client.ID,
		BranchID:     s.branchA,
		Premium:      premium,
		Status:       policymodels.StatusActive,
	}))

	err = s.svc.Delete(s.ctx, s.agentA, client.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.svc.Get(s.ctx, s.agentA, client.ID)
	s.NoError(err)
}

func (s *ClientServiceSuite) TestDeleteRecordsFullSnapshot() {
	client := s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")

	s.Require().NoError(s.svc.Delete(s.ctx, s.agentA, client.ID))

	_, err := s.svc.Get(s.ctx, s.admin, client.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	entries := s.audit.All()
	s.Require().Len(entries, 2)
	del := entries[1]
	s.Equal(auditmodels.ActionDelete, del.Action)
	s.Equal("amina@example.com", del.OldValues["email"])
	s.Nil(del.NewValues)
}

func (s *ClientServiceSuite) TestGetWithPolicies() {
	client := s.seedClient(s.branchA, "Amina", "Ndongo", "amina@example.com")
	premium, err := domain.ParseMoney("100.00")
	s.Require().NoError(err)
	s.Require().NoError(s.policies.Create(s.ctx, &policymodels.Policy{
		ID:           domain.NewPolicyID(),
		PolicyNumber: "POL-1",
		ClientID:     client.ID,
		BranchID:     s.branchA,
		Premium:      premium,
		Status:       policymodels.StatusPending,
	}))

	got, policies, err := s.svc.GetWithPolicies(s.ctx, s.agentA, client.ID)
	s.Require().NoError(err)
	s.Equal(client.ID, got.ID)
	s.Require().Len(policies, 1)
	s.Equal("POL-1", policies[0].PolicyNumber)
}
