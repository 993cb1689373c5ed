package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intia/internal/branch/models"
	"intia/internal/branch/store"
	"intia/pkg/domain"
)

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/branches", h.List)
	r.Get("/branches/{branchID}", h.Get)
	return r
}

func seedBranch(t *testing.T, s *store.InMemory, code, name string) *models.Branch {
	t.Helper()
	now := time.Now().UTC()
	branch := &models.Branch{
		ID:        domain.NewBranchID(),
		Name:      name,
		Code:      code,
		Address:   "Main street",
		Phone:     "+237 600 000 000",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Create(context.Background(), branch))
	return branch
}

func TestListBranchesOrderedByCode(t *testing.T) {
	s := store.NewInMemory()
	seedBranch(t, s, "YAO001", "Yaoundé Centre")
	seedBranch(t, s, "DOU001", "Douala Akwa")

	rec := httptest.NewRecorder()
	newRouter(New(s, slog.Default())).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/branches", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []models.Branch `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, "DOU001", body.Data[0].Code)
	assert.Equal(t, "YAO001", body.Data[1].Code)
}

func TestGetBranch(t *testing.T) {
	s := store.NewInMemory()
	branch := seedBranch(t, s, "BAF001", "Bafoussam")

	rec := httptest.NewRecorder()
	newRouter(New(s, slog.Default())).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/branches/"+branch.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Branch
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, branch.ID, got.ID)
	assert.Equal(t, "BAF001", got.Code)
}

func TestGetBranchNotFound(t *testing.T) {
	s := store.NewInMemory()

	rec := httptest.NewRecorder()
	newRouter(New(s, slog.Default())).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/branches/"+domain.NewBranchID().String(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBranchBadID(t *testing.T) {
	s := store.NewInMemory()

	rec := httptest.NewRecorder()
	newRouter(New(s, slog.Default())).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/branches/42", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
