package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"intia/internal/client/models"
	"intia/pkg/domain"
	"intia/pkg/pagination"
	"intia/pkg/platform/sentinel"
)

// InMemory is a map-backed client store for tests and handler suites.
type InMemory struct {
	mu      sync.RWMutex
	clients map[domain.ClientID]models.Client
}

func NewInMemory() *InMemory {
	return &InMemory{clients: make(map[domain.ClientID]models.Client)}
}

func (s *InMemory) Create(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.clients {
		if strings.EqualFold(existing.Email, client.Email) {
			return sentinel.ErrConflict
		}
	}
	s.clients[client.ID] = *client
	return nil
}

func (s *InMemory) FindByID(_ context.Context, clientID domain.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &client, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		if strings.EqualFold(client.Email, email) {
			c := client
			return &c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context, filter Filter, page pagination.Page) ([]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filtered(filter)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
	})

	if page.Skip >= len(matched) {
		return nil, nil
	}
	matched = matched[page.Skip:]
	if page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}

	out := make([]*models.Client, len(matched))
	for i := range matched {
		c := matched[i]
		out[i] = &c
	}
	return out, nil
}

func (s *InMemory) Count(_ context.Context, filter Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(filter)), nil
}

func (s *InMemory) Update(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.clients {
		if id != client.ID && strings.EqualFold(existing.Email, client.Email) {
			return sentinel.ErrConflict
		}
	}
	s.clients[client.ID] = *client
	return nil
}

func (s *InMemory) Delete(_ context.Context, clientID domain.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[clientID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.clients, clientID)
	return nil
}

func (s *InMemory) filtered(filter Filter) []models.Client {
	var matched []models.Client
	for _, client := range s.clients {
		if filter.BranchID != nil && client.BranchID != *filter.BranchID {
			continue
		}
		if filter.Search != "" && !matchesSearch(client, filter.Search) {
			continue
		}
		matched = append(matched, client)
	}
	return matched
}

func matchesSearch(client models.Client, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(client.FirstName), needle) ||
		strings.Contains(strings.ToLower(client.LastName), needle) ||
		strings.Contains(strings.ToLower(client.Email), needle)
}
