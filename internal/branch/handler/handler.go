package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"intia/internal/branch/models"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/platform/httputil"
	"intia/pkg/platform/sentinel"
)

// Store reads the branch directory.
type Store interface {
	FindByID(ctx context.Context, branchID domain.BranchID) (*models.Branch, error)
	List(ctx context.Context) ([]*models.Branch, error)
}

type Handler struct {
	branches Store
	logger   *slog.Logger
}

func New(branches Store, logger *slog.Logger) *Handler {
	return &Handler{branches: branches, logger: logger}
}

// List serves GET /branches. Any authenticated user may read the
// directory; it holds no branch-scoped data.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	branches, err := h.branches.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list branches", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list branches"))
		return
	}
	if branches == nil {
		branches = []*models.Branch{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": branches})
}

// Get serves GET /branches/{branchID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, err := domain.ParseBranchID(chi.URLParam(r, "branchID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid branch id"))
		return
	}

	branch, err := h.branches.FindByID(r.Context(), branchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "branch not found"))
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to load branch", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load branch"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, branch)
}
