package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"intia/internal/access"
	audithandler "intia/internal/audit/handler"
	auditsvc "intia/internal/audit/service"
	auditstore "intia/internal/audit/store"
	authhandler "intia/internal/auth/handler"
	authsvc "intia/internal/auth/service"
	branchhandler "intia/internal/branch/handler"
	branchmodels "intia/internal/branch/models"
	branchstore "intia/internal/branch/store"
	clienthandler "intia/internal/client/handler"
	clientsvc "intia/internal/client/service"
	clientstore "intia/internal/client/store"
	"intia/internal/jwttoken"
	policyhandler "intia/internal/policy/handler"
	policysvc "intia/internal/policy/service"
	policystore "intia/internal/policy/store"
	userhandler "intia/internal/user/handler"
	usermodels "intia/internal/user/models"
	userstore "intia/internal/user/store"
	"intia/pkg/domain"
	"intia/pkg/platform/tx"
)

type RouterSuite struct {
	suite.Suite
	router  http.Handler
	branchA *branchmodels.Branch
	branchB *branchmodels.Branch
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.Default()
	ctx := context.Background()

	users := userstore.NewInMemory()
	branches := branchstore.NewInMemory()
	clients := clientstore.NewInMemory()
	policies := policystore.NewInMemory()
	audit := auditstore.NewInMemory()

	now := time.Now().UTC()
	s.branchA = &branchmodels.Branch{ID: domain.NewBranchID(), Name: "Yaoundé Centre", Code: "YAO001", Address: "Avenue Kennedy", Phone: "+237", CreatedAt: now, UpdatedAt: now}
	s.branchB = &branchmodels.Branch{ID: domain.NewBranchID(), Name: "Douala Akwa", Code: "DOU001", Address: "Boulevard de la Liberté", Phone: "+237", CreatedAt: now, UpdatedAt: now}
	s.Require().NoError(branches.Create(ctx, s.branchA))
	s.Require().NoError(branches.Create(ctx, s.branchB))

	s.seedUser(users, "admin", access.RoleAdmin, nil)
	s.seedUser(users, "agent_a", access.RoleAgent, &s.branchA.ID)
	s.seedUser(users, "viewer_a", access.RoleViewer, &s.branchA.ID)

	tokens := jwttoken.NewService("router-test-key", "intia")
	auditService := auditsvc.New(audit, nil, logger)
	clientService := clientsvc.New(clients, policies, auditService, tx.PassthroughRunner{}, logger)
	policyService := policysvc.New(policies, clients, auditService, tx.PassthroughRunner{}, logger)
	authService := authsvc.New(users, tokens, auditService, nil, 30*time.Minute, nil, logger)

	s.router = NewRouter(Handlers{
		Auth:     authhandler.New(authService, logger),
		Branches: branchhandler.New(branches, logger),
		Clients:  clienthandler.New(clientService, logger),
		Policies: policyhandler.New(policyService, logger),
		Users:    userhandler.New(users, logger),
		Audit:    audithandler.New(auditService, logger),
	}, Deps{
		Logger:         logger,
		TokenValidator: tokens,
		UserLoader:     users,
	})
}

func (s *RouterSuite) seedUser(users *userstore.InMemory, username string, role access.Role, branchID *domain.BranchID) {
	hash, err := bcrypt.GenerateFromPassword([]byte(username+"-pass"), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(users.Create(context.Background(), &usermodels.User{
		ID:           domain.NewUserID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		BranchID:     branchID,
		IsActive:     true,
	}))
}

func (s *RouterSuite) login(username string) string {
	form := url.Values{"username": {username}, "password": {username + "-pass"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	s.Require().Equal("bearer", body.TokenType)
	return body.AccessToken
}

func (s *RouterSuite) do(token, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) TestHealthUnauthenticated() {
	rec := s.do("", http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestUnauthenticatedRejected() {
	rec := s.do("", http.MethodGet, "/api/v1/clients", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestLoginSetsCookie() {
	form := url.Values{"username": {"admin"}, "password": {"admin-pass"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	s.Require().NotEmpty(cookies)
	s.Equal("token", cookies[0].Name)
	s.True(cookies[0].HttpOnly)
}

func (s *RouterSuite) TestClientLifecycleEndToEnd() {
	agent := s.login("agent_a")

	rec := s.do(agent, http.MethodPost, "/api/v1/clients", map[string]any{
		"branch_id":  s.branchA.ID,
		"first_name": "Amina",
		"last_name":  "Ndongo",
		"email":      "amina@example.com",
		"phone":      "+237 600 000 001",
		"address":    "Rue 1",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID domain.ClientID `json:"id"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&created))

	rec = s.do(agent, http.MethodGet, "/api/v1/clients/"+created.ID.String(), nil)
	s.Equal(http.StatusOK, rec.Code)

	// The mutation shows up in the audit trail, admin-only.
	admin := s.login("admin")
	rec = s.do(admin, http.MethodGet, "/api/v1/audit-logs/?action=CREATE", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var auditBody struct {
		Data []struct {
			ResourceID string `json:"resource_id"`
			Username   string `json:"username"`
		} `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&auditBody))
	s.Require().Len(auditBody.Data, 1)
	s.Equal(created.ID.String(), auditBody.Data[0].ResourceID)
	s.Equal("agent_a", auditBody.Data[0].Username)
}

func (s *RouterSuite) TestViewerCannotWrite() {
	viewer := s.login("viewer_a")

	rec := s.do(viewer, http.MethodPost, "/api/v1/clients", map[string]any{
		"branch_id":  s.branchA.ID,
		"first_name": "Amina",
		"last_name":  "Ndongo",
		"email":      "amina@example.com",
		"phone":      "+237",
		"address":    "Rue 1",
	})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *RouterSuite) TestAdminGates() {
	agent := s.login("agent_a")
	rec := s.do(agent, http.MethodGet, "/api/v1/users", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(agent, http.MethodGet, "/api/v1/audit-logs", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	admin := s.login("admin")
	rec = s.do(admin, http.MethodGet, "/api/v1/users", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestMe() {
	agent := s.login("agent_a")
	rec := s.do(agent, http.MethodGet, "/api/v1/auth/me", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var me usermodels.User
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&me))
	s.Equal("agent_a", me.Username)
	s.Equal(access.RoleAgent, me.Role)
}

func (s *RouterSuite) TestContentTypeEnforced() {
	agent := s.login("agent_a")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", strings.NewReader("first_name=Amina"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+agent)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}
