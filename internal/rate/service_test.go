package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestServiceResolvePicksLatestEffective(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []int{1, 5, 10} {
		buy := decimal.NewFromInt(int64(offset))
		sell := buy.Sub(decimal.RequireFromString("0.5"))
		if _, err := svc.Append(ctx, base.Add(time.Duration(offset)*time.Hour), buy, sell); err != nil {
			t.Fatalf("append rate at +%dh: %v", offset, err)
		}
	}

	// Before the first rate there is nothing to resolve.
	if _, err := svc.Resolve(ctx, base); !errors.Is(err, ErrNoRateAvailable) {
		t.Fatalf("expected ErrNoRateAvailable, got %v", err)
	}

	// Exactly at an effective time that rate applies.
	r, err := svc.Resolve(ctx, base.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("resolve at +5h: %v", err)
	}
	if !r.BuyRate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected buy rate 5, got %s", r.BuyRate)
	}

	// Between effective times the most recent earlier rate applies.
	r, err = svc.Resolve(ctx, base.Add(7*time.Hour))
	if err != nil {
		t.Fatalf("resolve at +7h: %v", err)
	}
	if !r.BuyRate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected buy rate 5 at +7h, got %s", r.BuyRate)
	}

	// Past the last rate the newest one applies.
	r, err = svc.Resolve(ctx, base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("resolve at +48h: %v", err)
	}
	if !r.BuyRate.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected buy rate 10, got %s", r.BuyRate)
	}
}

func TestServiceAppendRejectsNonPositiveRates(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.Append(ctx, time.Now(), decimal.Zero, decimal.NewFromInt(1)); err == nil {
		t.Fatalf("expected error for zero buy rate")
	}
	if _, err := svc.Append(ctx, time.Now(), decimal.NewFromInt(1), decimal.NewFromInt(-1)); err == nil {
		t.Fatalf("expected error for negative sell rate")
	}
}

func TestServiceAppendDefaultsEffectiveAt(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	before := time.Now().UTC()
	r, err := svc.Append(ctx, time.Time{}, decimal.NewFromInt(3), decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if r.EffectiveAt.Before(before) {
		t.Fatalf("expected effective_at defaulted to now, got %s", r.EffectiveAt)
	}
}
