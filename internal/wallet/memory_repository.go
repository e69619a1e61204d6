package wallet

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Wallet
	applied map[string]struct{}
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		storage: make(map[string]Wallet),
		applied: make(map[string]struct{}),
	}
}

func (r *memoryRepository) Create(_ context.Context, w Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[w.ID]; exists {
		return errors.New("wallet exists")
	}
	r.storage[w.ID] = w
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return w, nil
}

func (r *memoryRepository) Update(_ context.Context, w Wallet) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.storage[w.ID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	if current.Version != w.Version {
		return Wallet{}, ErrVersionConflict
	}
	w.Version++
	r.storage[w.ID] = w
	return w, nil
}

func (r *memoryRepository) Transfer(_ context.Context, fromID, toID string, amount decimal.Decimal, clientTxID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.applied[clientTxID]; done {
		return nil
	}
	from, ok := r.storage[fromID]
	if !ok {
		return ErrNotFound
	}
	to, ok := r.storage[toID]
	if !ok {
		return ErrNotFound
	}
	if from.Status != StatusActive || to.Status != StatusActive {
		return ErrInactive
	}
	if from.Balance.LessThan(amount) {
		return ErrInsufficientBootCoin
	}

	from.Balance = from.Balance.Sub(amount)
	from.Version++
	to.Balance = to.Balance.Add(amount)
	to.Version++
	r.storage[fromID] = from
	r.storage[toID] = to
	r.applied[clientTxID] = struct{}{}
	return nil
}
