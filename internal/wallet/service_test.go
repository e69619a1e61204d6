package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestServiceCreateAndGet(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	w, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.Status != StatusActive {
		t.Fatalf("expected active wallet, got %s", w.Status)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", w.Balance)
	}
	if w.Linked() {
		t.Fatalf("new wallet must not be linked")
	}

	fetched, err := svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if fetched.ID != w.ID {
		t.Fatalf("expected wallet ID %s, got %s", w.ID, fetched.ID)
	}
}

func TestServiceLinkAccountIdempotent(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	w, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	// Redelivered associations with the same account must be no-ops.
	for i := 0; i < 3; i++ {
		if err := svc.LinkAccount(ctx, w.ID, "ACC-001"); err != nil {
			t.Fatalf("link account attempt %d: %v", i+1, err)
		}
	}

	linked, err := svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if linked.AccountNumber != "ACC-001" {
		t.Fatalf("expected account ACC-001, got %q", linked.AccountNumber)
	}
	if !linked.Linked() {
		t.Fatalf("wallet should report linked")
	}
}

func TestServiceLinkAccountConflict(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	w, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if err := svc.LinkAccount(ctx, w.ID, "ACC-001"); err != nil {
		t.Fatalf("link account: %v", err)
	}

	err = svc.LinkAccount(ctx, w.ID, "ACC-002")
	if !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}

	// The first association must survive the conflicting attempt.
	kept, err := svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if kept.AccountNumber != "ACC-001" {
		t.Fatalf("expected account ACC-001 to win, got %q", kept.AccountNumber)
	}
}

func TestServiceLinkYankiWallet(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	w, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if err := svc.LinkYankiWallet(ctx, w.ID, "yanki-1"); err != nil {
		t.Fatalf("link yanki wallet: %v", err)
	}
	if err := svc.LinkYankiWallet(ctx, w.ID, "yanki-1"); err != nil {
		t.Fatalf("replayed link should be a no-op: %v", err)
	}
	if err := svc.LinkYankiWallet(ctx, w.ID, "yanki-2"); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}
}

func TestServiceCreditAndDebit(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	w, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	if _, err := svc.Credit(ctx, w.ID, decimal.RequireFromString("10.50")); err != nil {
		t.Fatalf("credit: %v", err)
	}
	updated, err := svc.Debit(ctx, w.ID, decimal.RequireFromString("4.25"))
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("6.25")) {
		t.Fatalf("expected balance 6.25, got %s", updated.Balance)
	}

	_, err = svc.Debit(ctx, w.ID, decimal.RequireFromString("100"))
	if !errors.Is(err, ErrInsufficientBootCoin) {
		t.Fatalf("expected ErrInsufficientBootCoin, got %v", err)
	}

	// A failed debit must not move the balance.
	after, err := svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !after.Balance.Equal(decimal.RequireFromString("6.25")) {
		t.Fatalf("expected balance unchanged at 6.25, got %s", after.Balance)
	}
}

func TestServiceDeactivate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	w, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if err := svc.Deactivate(ctx, w.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	// Deactivating twice is a no-op, not an error.
	if err := svc.Deactivate(ctx, w.ID); err != nil {
		t.Fatalf("second deactivate: %v", err)
	}

	if _, err := svc.Credit(ctx, w.ID, decimal.NewFromInt(1)); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive on credit, got %v", err)
	}
	if _, err := svc.Debit(ctx, w.ID, decimal.NewFromInt(1)); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive on debit, got %v", err)
	}
}

func TestServiceTransferAppliesOnce(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	from, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create source wallet: %v", err)
	}
	to, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create destination wallet: %v", err)
	}
	if _, err := svc.Credit(ctx, from.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("seed source wallet: %v", err)
	}

	if err := svc.Transfer(ctx, from.ID, to.ID, decimal.NewFromInt(30), "xfer-1"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	// Replaying the same client transaction must not move coins again.
	if err := svc.Transfer(ctx, from.ID, to.ID, decimal.NewFromInt(30), "xfer-1"); err != nil {
		t.Fatalf("replayed transfer: %v", err)
	}

	src, _ := svc.Get(ctx, from.ID)
	dst, _ := svc.Get(ctx, to.ID)
	if !src.Balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected source balance 70, got %s", src.Balance)
	}
	if !dst.Balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected destination balance 30, got %s", dst.Balance)
	}

	if err := svc.Transfer(ctx, from.ID, to.ID, decimal.NewFromInt(1_000), "xfer-2"); !errors.Is(err, ErrInsufficientBootCoin) {
		t.Fatalf("expected ErrInsufficientBootCoin, got %v", err)
	}
	if err := svc.Deactivate(ctx, to.ID); err != nil {
		t.Fatalf("deactivate destination: %v", err)
	}
	if err := svc.Transfer(ctx, from.ID, to.ID, decimal.NewFromInt(1), "xfer-3"); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}

	// Failed transfers must leave both balances untouched.
	src, _ = svc.Get(ctx, from.ID)
	if !src.Balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("failed transfers must not move coins, got %s", src.Balance)
	}
}

// staleRepo forces version conflicts on the first writes to exercise the
// optimistic retry loop.
type staleRepo struct {
	Repository
	conflicts int
}

func (r *staleRepo) Update(ctx context.Context, w Wallet) (Wallet, error) {
	if r.conflicts > 0 {
		r.conflicts--
		return Wallet{}, ErrVersionConflict
	}
	return r.Repository.Update(ctx, w)
}

func TestServiceRetriesVersionConflicts(t *testing.T) {
	repo := &staleRepo{Repository: NewMemoryRepository(), conflicts: 2}
	svc := NewService(repo)
	ctx := context.Background()

	w, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	updated, err := svc.Credit(ctx, w.ID, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("credit with transient conflicts: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected balance 5, got %s", updated.Balance)
	}
}

func TestServiceGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &staleRepo{Repository: NewMemoryRepository(), conflicts: conflictRetries + 1}
	svc := NewService(repo)
	ctx := context.Background()

	w, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	if _, err := svc.Credit(ctx, w.ID, decimal.NewFromInt(5)); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict after exhausted retries, got %v", err)
	}
}
