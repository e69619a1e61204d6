package rate

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu    sync.RWMutex
	rates []Rate
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Append(_ context.Context, rate Rate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = append(r.rates, rate)
	return nil
}

func (r *memoryRepository) LatestAt(_ context.Context, asOf time.Time) (Rate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best  Rate
		found bool
	)
	for _, rate := range r.rates {
		if rate.EffectiveAt.After(asOf) {
			continue
		}
		if !found || rate.EffectiveAt.After(best.EffectiveAt) {
			best = rate
			found = true
		}
	}
	if !found {
		return Rate{}, ErrNoRateAvailable
	}
	return best, nil
}
