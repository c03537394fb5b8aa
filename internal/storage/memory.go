package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// MemoryRepository keeps attempts in process memory. Used when no database
// is configured and in tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	attempts map[string]*models.Attempt
	clients  map[string]*models.ApiClient
}

// NewMemoryRepository creates a repository seeded with API clients
func NewMemoryRepository(clients ...*models.ApiClient) *MemoryRepository {
	r := &MemoryRepository{
		attempts: make(map[string]*models.Attempt),
		clients:  make(map[string]*models.ApiClient),
	}
	for _, c := range clients {
		r.clients[c.ApiKey] = c
	}
	return r
}

func (r *MemoryRepository) CreateAttempt(_ context.Context, a *models.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.attempts[a.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetAttempt(_ context.Context, id string) (*models.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) ListAttempts(_ context.Context, filters models.AttemptFilters) ([]*models.Attempt, error) {
	r.mu.RLock()
	var out []*models.Attempt
	for _, a := range r.attempts {
		if filters.Slug != "" && a.Slug != filters.Slug {
			continue
		}
		if filters.LearnerID != "" && a.LearnerID != filters.LearnerID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) DeleteAttemptsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.attempts {
		if a.SubmittedAt.Before(cutoff) {
			delete(r.attempts, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) GetClientByApiKey(_ context.Context, apiKey string) (*models.ApiClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[apiKey]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) UpdateClientLastUsed(_ context.Context, apiKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[apiKey]; ok {
		now := time.Now()
		c.LastUsedAt = &now
	}
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
func (r *MemoryRepository) Close() error               { return nil }
