package store

import (
	"context"
	"sort"
	"sync"

	"intia/internal/audit/models"
	"intia/pkg/pagination"
)

// InMemory is an append-only in-memory audit store for tests and handler
// suites.
type InMemory struct {
	mu      sync.RWMutex
	entries []models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *InMemory) List(_ context.Context, filter models.Filter, page pagination.Page) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filtered(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if page.Skip >= len(matched) {
		return nil, nil
	}
	matched = matched[page.Skip:]
	if page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

func (s *InMemory) Count(_ context.Context, filter models.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(filter)), nil
}

func (s *InMemory) filtered(filter models.Filter) []models.Entry {
	var matched []models.Entry
	for _, entry := range s.entries {
		if filter.ActorID != nil && entry.UserID != *filter.ActorID {
			continue
		}
		if filter.Action != nil && entry.Action != *filter.Action {
			continue
		}
		if filter.ResourceType != nil && entry.ResourceType != *filter.ResourceType {
			continue
		}
		if filter.From != nil && entry.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.Timestamp.After(*filter.To) {
			continue
		}
		matched = append(matched, entry)
	}
	return matched
}

// All returns every stored entry in insertion order. Test helper.
func (s *InMemory) All() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
