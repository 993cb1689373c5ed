package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"intia/internal/access"
	"intia/internal/platform/middleware"
	"intia/internal/policy/models"
	"intia/internal/policy/service"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/pagination"
	"intia/pkg/platform/httputil"
)

// Service is the policy operations surface the handler binds to HTTP.
type Service interface {
	List(ctx context.Context, actor access.Actor, opts service.ListOptions, page pagination.Page) ([]*models.Policy, int, error)
	Get(ctx context.Context, actor access.Actor, policyID domain.PolicyID) (*models.Policy, error)
	Create(ctx context.Context, actor access.Actor, req models.CreateRequest) (*models.Policy, error)
	Update(ctx context.Context, actor access.Actor, policyID domain.PolicyID, patch models.UpdateRequest) (*models.Policy, error)
	Delete(ctx context.Context, actor access.Actor, policyID domain.PolicyID) error
}

type Handler struct {
	policies Service
	logger   *slog.Logger
}

func New(policies Service, logger *slog.Logger) *Handler {
	return &Handler{policies: policies, logger: logger}
}

type listResponse struct {
	Data []*models.Policy `json:"data"`
	Meta pagination.Meta  `json:"meta"`
}

// List serves GET /policies with optional client_id, status, and branch_id
// filters. A status outside the enum is rejected before any query.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var opts service.ListOptions
	q := r.URL.Query()
	if raw := q.Get("client_id"); raw != "" {
		clientID, err := domain.ParseClientID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid client_id filter"))
			return
		}
		opts.ClientID = &clientID
	}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		opts.Status = &status
	}
	if raw := q.Get("branch_id"); raw != "" {
		branchID, err := domain.ParseBranchID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid branch_id filter"))
			return
		}
		opts.BranchID = &branchID
	}

	policies, total, err := h.policies.List(r.Context(), actor, opts, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if policies == nil {
		policies = []*models.Policy{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Data: policies, Meta: page.MetaFor(total)})
}

// Get serves GET /policies/{policyID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	policyID, err := domain.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid policy id"))
		return
	}

	policy, err := h.policies.Get(r.Context(), actor, policyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, policy)
}

// Create serves POST /policies.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	var req models.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	policy, err := h.policies.Create(r.Context(), actor, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, policy)
}

// Update serves PUT /policies/{policyID} with a partial patch.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	policyID, err := domain.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid policy id"))
		return
	}

	var patch models.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	policy, err := h.policies.Update(r.Context(), actor, policyID, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, policy)
}

// Delete serves DELETE /policies/{policyID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	policyID, err := domain.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid policy id"))
		return
	}

	if err := h.policies.Delete(r.Context(), actor, policyID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
