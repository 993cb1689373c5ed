package store

import (
	"context"
	"sort"
	"sync"

	"intia/internal/branch/models"
	"intia/pkg/domain"
	"intia/pkg/platform/sentinel"
)

// InMemory is a map-backed branch store for tests and handler suites.
type InMemory struct {
	mu       sync.RWMutex
	branches map[domain.BranchID]models.Branch
}

func NewInMemory() *InMemory {
	return &InMemory{branches: make(map[domain.BranchID]models.Branch)}
}

func (s *InMemory) Create(_ context.Context, branch *models.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.branches {
		if existing.Code == branch.Code {
			return sentinel.ErrConflict
		}
	}
	s.branches[branch.ID] = *branch
	return nil
}

func (s *InMemory) FindByID(_ context.Context, branchID domain.BranchID) (*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branch, ok := s.branches[branchID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &branch, nil
}

func (s *InMemory) FindByCode(_ context.Context, code string) (*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, branch := range s.branches {
		if branch.Code == code {
			b := branch
			return &b, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branches := make([]*models.Branch, 0, len(s.branches))
	for _, branch := range s.branches {
		b := branch
		branches = append(branches, &b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Code < branches[j].Code })
	return branches, nil
}
