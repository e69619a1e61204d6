package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/logging"
	"github.com/boot-pay/boot_pay/internal/payment"
)

func TestSweeperFailsTimedOutPetitions(t *testing.T) {
	fx := newExchangeFixture(t, 10_000, nil)
	ctx := context.Background()

	stale := Petition{
		ID:                   "petition-stale",
		BootCoinAmount:       decimal.NewFromInt(10),
		FiatAmount:           decimal.RequireFromString("35.00"),
		BuyerWalletID:        fx.buyer.ID,
		BuyerPaymentType:     payment.TypeBankAccount,
		BuyerPaymentMethodID: "acc-buyer",
		Status:               StatusSettling,
		CreatedAt:            time.Now().UTC().Add(-time.Hour),
		UpdatedAt:            time.Now().UTC().Add(-time.Hour),
	}
	if err := fx.petitions.Create(ctx, stale); err != nil {
		t.Fatalf("create stale petition: %v", err)
	}

	fresh := stale
	fresh.ID = "petition-fresh"
	fresh.UpdatedAt = time.Now().UTC()
	if err := fx.petitions.Create(ctx, fresh); err != nil {
		t.Fatalf("create fresh petition: %v", err)
	}

	sweeper := NewSweeper(fx.svc, 2*time.Minute, time.Minute, logging.Discard())
	swept, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept petition, got %d", swept)
	}

	failed, err := fx.svc.Get(ctx, stale.ID)
	if err != nil {
		t.Fatalf("get stale petition: %v", err)
	}
	if failed.Status != StatusFailed {
		t.Fatalf("expected FAILED, got %s", failed.Status)
	}
	if failed.FailureReason != reasonSettleTimeout {
		t.Fatalf("expected reason %q, got %q", reasonSettleTimeout, failed.FailureReason)
	}

	untouched, err := fx.svc.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("get fresh petition: %v", err)
	}
	if untouched.Status != StatusSettling {
		t.Fatalf("petition inside the timeout must stay SETTLING, got %s", untouched.Status)
	}
}

func TestSweeperRefundsConfirmedFiat(t *testing.T) {
	fx := newExchangeFixture(t, 10_000, nil)
	ctx := context.Background()

	// Move the fiat leg first so the sweep has something to compensate.
	res := fx.svc.dispatcher.Transfer(ctx,
		payment.Method{Type: payment.TypeBankAccount, ID: "acc-buyer"},
		payment.Method{Type: payment.TypeBankAccount, ID: "acc-seller"},
		decimal.RequireFromString("35.00"), "petition-stuck:fiat")
	if res.Outcome != payment.Confirmed {
		t.Fatalf("seed fiat leg: %s (%v)", res.Outcome, res.Err)
	}

	stuck := Petition{
		ID:                    "petition-stuck",
		BootCoinAmount:        decimal.NewFromInt(10),
		FiatAmount:            decimal.RequireFromString("35.00"),
		BuyerWalletID:         fx.buyer.ID,
		SellerWalletID:        fx.seller.ID,
		BuyerPaymentType:      payment.TypeBankAccount,
		BuyerPaymentMethodID:  "acc-buyer",
		SellerPaymentType:     payment.TypeBankAccount,
		SellerPaymentMethodID: "acc-seller",
		Status:                StatusSettling,
		FiatConfirmed:         true,
		CreatedAt:             time.Now().UTC().Add(-time.Hour),
		UpdatedAt:             time.Now().UTC().Add(-time.Hour),
	}
	if err := fx.petitions.Create(ctx, stuck); err != nil {
		t.Fatalf("create stuck petition: %v", err)
	}

	sweeper := NewSweeper(fx.svc, 2*time.Minute, time.Minute, logging.Discard())
	swept, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 swept petition, got %d", swept)
	}

	buyerFiat, _ := fx.bank.Balance(ctx, "acc-buyer")
	if buyerFiat != 10_000 {
		t.Fatalf("expected buyer fiat restored, got %d", buyerFiat)
	}
}
