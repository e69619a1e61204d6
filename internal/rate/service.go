package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service resolves and appends exchange rates.
type Service struct {
	repo Repository
}

// NewService builds a rate service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve returns the rate effective at asOf. Fails with ErrNoRateAvailable
// when no rate exists at or before that time.
func (s *Service) Resolve(ctx context.Context, asOf time.Time) (Rate, error) {
	return s.repo.LatestAt(ctx, asOf)
}

// Append stores a new effective-dated rate. Both legs must be positive.
func (s *Service) Append(ctx context.Context, effectiveAt time.Time, buyRate, sellRate decimal.Decimal) (Rate, error) {
	if !buyRate.IsPositive() || !sellRate.IsPositive() {
		return Rate{}, fmt.Errorf("buy and sell rates must be positive")
	}
	if effectiveAt.IsZero() {
		effectiveAt = time.Now().UTC()
	}
	r := Rate{
		ID:          uuid.NewString(),
		EffectiveAt: effectiveAt.UTC(),
		BuyRate:     buyRate,
		SellRate:    sellRate,
	}
	if err := s.repo.Append(ctx, r); err != nil {
		return Rate{}, err
	}
	return r, nil
}
