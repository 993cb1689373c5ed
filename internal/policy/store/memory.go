package store

import (
	"context"
	"sort"
	"sync"

	"intia/internal/policy/models"
	"intia/pkg/domain"
	"intia/pkg/pagination"
	"intia/pkg/platform/sentinel"
)

// InMemory is a map-backed policy store for tests and handler suites.
type InMemory struct {
	mu       sync.RWMutex
	policies map[domain.PolicyID]models.Policy
}

func NewInMemory() *InMemory {
	return &InMemory{policies: make(map[domain.PolicyID]models.Policy)}
}

func (s *InMemory) Create(_ context.Context, policy *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.policies {
		if existing.PolicyNumber == policy.PolicyNumber {
			return sentinel.ErrConflict
		}
	}
	s.policies[policy.ID] = *policy
	return nil
}

func (s *InMemory) FindByID(_ context.Context, policyID domain.PolicyID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &policy, nil
}

func (s *InMemory) FindByNumber(_ context.Context, policyNumber string) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, policy := range s.policies {
		if policy.PolicyNumber == policyNumber {
			p := policy
			return &p, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context, filter Filter, page pagination.Page) ([]*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filtered(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if page.Skip >= len(matched) {
		return nil, nil
	}
	matched = matched[page.Skip:]
	if page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}

	out := make([]*models.Policy, len(matched))
	for i := range matched {
		p := matched[i]
		out[i] = &p
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context, filter Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(filter)), nil
}

func (s *InMemory) ListByClient(_ context.Context, clientID domain.ClientID) ([]*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filtered(Filter{ClientID: &clientID})
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	out := make([]*models.Policy, len(matched))
	for i := range matched {
		p := matched[i]
		out[i] = &p
	}
	return out, nil
}

func (s *InMemory) HasActive(_ context.Context, clientID domain.ClientID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, policy := range s.policies {
		if policy.ClientID == clientID && policy.Status == models.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) Update(_ context.Context, policy *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[policy.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.policies[policy.ID] = *policy
	return nil
}

func (s *InMemory) Delete(_ context.Context, policyID domain.PolicyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.policies[policyID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.policies, policyID)
	return nil
}

func (s *InMemory) filtered(filter Filter) []models.Policy {
	var matched []models.Policy
	for _, policy := range s.policies {
		if filter.ClientID != nil && policy.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != nil && policy.Status != *filter.Status {
			continue
		}
		if filter.BranchID != nil && policy.BranchID != *filter.BranchID {
			continue
		}
		matched = append(matched, policy)
	}
	return matched
}
