package transaction

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records []Transaction
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Append(_ context.Context, t Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, t)
	return nil
}

func (r *memoryRepository) ListByWallet(_ context.Context, walletID string) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Transaction
	for i := len(r.records) - 1; i >= 0; i-- {
		t := r.records[i]
		if t.BuyerWalletID == walletID || t.SellerWalletID == walletID {
			out = append(out, t)
		}
	}
	return out, nil
}
