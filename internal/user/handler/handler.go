package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"intia/internal/user/models"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/platform/httputil"
	"intia/pkg/platform/sentinel"
)

// Store reads staff accounts.
type Store interface {
	FindByID(ctx context.Context, userID domain.UserID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// Handler serves the staff directory. The router mounts it behind the
// admin gate.
type Handler struct {
	users  Store
	logger *slog.Logger
}

func New(users Store, logger *slog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

// List serves GET /users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list users", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users"))
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": users})
}

// Get serves GET /users/{userID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := domain.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "user not found"))
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to load user", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}
