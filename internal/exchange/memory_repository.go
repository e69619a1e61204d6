package exchange

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Petition
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Petition)}
}

func (r *memoryRepository) Create(_ context.Context, p Petition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[p.ID]; exists {
		return errors.New("petition exists")
	}
	r.storage[p.ID] = p
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Petition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[id]
	if !ok {
		return Petition{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) Update(_ context.Context, p Petition) (Petition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.storage[p.ID]
	if !ok {
		return Petition{}, ErrNotFound
	}
	if current.Version != p.Version {
		return Petition{}, ErrVersionConflict
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	r.storage[p.ID] = p
	return p, nil
}

func (r *memoryRepository) ListSettlingBefore(_ context.Context, cutoff time.Time) ([]Petition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Petition
	for _, p := range r.storage {
		if p.Status == StatusSettling && p.UpdatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}
