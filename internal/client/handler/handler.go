package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"intia/internal/access"
	"intia/internal/client/models"
	"intia/internal/client/service"
	"intia/internal/platform/middleware"
	policymodels "intia/internal/policy/models"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/pagination"
	"intia/pkg/platform/httputil"
)

// Service is the client operations surface the handler binds to HTTP.
type Service interface {
	List(ctx context.Context, actor access.Actor, opts service.ListOptions, page pagination.Page) ([]*models.Client, int, error)
	GetWithPolicies(ctx context.Context, actor access.Actor, clientID domain.ClientID) (*models.Client, []*policymodels.Policy, error)
	Create(ctx context.Context, actor access.Actor, req models.CreateRequest) (*models.Client, error)
	Update(ctx context.Context, actor access.Actor, clientID domain.ClientID, patch models.UpdateRequest) (*models.Client, error)
	Delete(ctx context.Context, actor access.Actor, clientID domain.ClientID) error
}

type Handler struct {
	clients Service
	logger  *slog.Logger
}

func New(clients Service, logger *slog.Logger) *Handler {
	return &Handler{clients: clients, logger: logger}
}

type listResponse struct {
	Data []*models.Client `json:"data"`
	Meta pagination.Meta  `json:"meta"`
}

type clientResponse struct {
	*models.Client
	Policies []*policymodels.Policy `json:"policies"`
}

// List serves GET /clients with optional search and branch_id filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	page, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	opts := service.ListOptions{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("branch_id"); raw != "" {
		branchID, err := domain.ParseBranchID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid branch_id filter"))
			return
		}
		opts.BranchID = &branchID
	}

	clients, total, err := h.clients.List(r.Context(), actor, opts, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Data: clients, Meta: page.MetaFor(total)})
}

// Get serves GET /clients/{clientID}, including the client's policies.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	clientID, err := domain.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid client id"))
		return
	}

	client, policies, err := h.clients.GetWithPolicies(r.Context(), actor, clientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if policies == nil {
		policies = []*policymodels.Policy{}
	}
	httputil.WriteJSON(w, http.StatusOK, clientResponse{Client: client, Policies: policies})
}

// Create serves POST /clients.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	var req models.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	client, err := h.clients.Create(r.Context(), actor, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, client)
}

// Update serves PUT /clients/{clientID} with a partial patch.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	clientID, err := domain.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid client id"))
		return
	}

	var patch models.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	client, err := h.clients.Update(r.Context(), actor, clientID, patch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, client)
}

// Delete serves DELETE /clients/{clientID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context()).Actor()

	clientID, err := domain.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid client id"))
		return
	}

	if err := h.clients.Delete(r.Context(), actor, clientID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
