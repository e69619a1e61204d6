package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/fiatledger"
	"github.com/boot-pay/boot_pay/internal/logging"
)

// flakyLedger wraps a real ledger and fails the first failures calls with the
// configured error.
type flakyLedger struct {
	fiatledger.Ledger
	failures int
	err      error
	calls    int
}

func (l *flakyLedger) Transfer(ctx context.Context, from, to, kind, clientTxID string, amount int64) (fiatledger.TransactionResult, error) {
	l.calls++
	if l.failures > 0 {
		l.failures--
		return fiatledger.TransactionResult{}, l.err
	}
	return l.Ledger.Transfer(ctx, from, to, kind, clientTxID, amount)
}

func (l *flakyLedger) Credit(ctx context.Context, code, kind, clientTxID string, amount int64) (fiatledger.Posting, error) {
	l.calls++
	if l.failures > 0 {
		l.failures--
		return fiatledger.Posting{}, l.err
	}
	return l.Ledger.Credit(ctx, code, kind, clientTxID, amount)
}

func newBankLedger(t *testing.T, accounts map[string]int64) fiatledger.Ledger {
	t.Helper()
	led := fiatledger.NewInMemory()
	ctx := context.Background()
	for _, code := range []string{fiatledger.TreasuryAccountCode, fiatledger.InterchangeAccountCode} {
		if err := led.EnsureAccount(ctx, code); err != nil {
			t.Fatalf("ensure %s: %v", code, err)
		}
	}
	for code, balance := range accounts {
		if err := led.EnsureAccount(ctx, code); err != nil {
			t.Fatalf("ensure %s: %v", code, err)
		}
		fiatledger.SeedBalance(led, code, balance)
	}
	return led
}

func newTestDispatcher(bank, yanki fiatledger.Ledger, retries int) *Dispatcher {
	d := NewDispatcher(bank, yanki, retries, logging.Discard())
	d.backoff = time.Millisecond
	return d
}

func TestDispatcherSameRailTransfer(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 10_000, "acc-b": 0})
	d := newTestDispatcher(bank, fiatledger.NewInMemory(), 3)

	res := d.Transfer(context.Background(),
		Method{Type: TypeBankAccount, ID: "acc-a"},
		Method{Type: TypeBankAccount, ID: "acc-b"},
		decimal.RequireFromString("25.00"), "tx-1")
	if res.Outcome != Confirmed {
		t.Fatalf("expected confirmed, got %s (%v)", res.Outcome, res.Err)
	}

	balA, _ := bank.Balance(context.Background(), "acc-a")
	balB, _ := bank.Balance(context.Background(), "acc-b")
	if balA != 7_500 || balB != 2_500 {
		t.Fatalf("unexpected balances: a=%d b=%d", balA, balB)
	}
}

func TestDispatcherRetriesWhileUnavailable(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 1_000, "acc-b": 0})
	flaky := &flakyLedger{Ledger: bank, failures: 2, err: fiatledger.ErrUnavailable}
	d := newTestDispatcher(flaky, fiatledger.NewInMemory(), 3)

	res := d.Transfer(context.Background(),
		Method{Type: TypeBankAccount, ID: "acc-a"},
		Method{Type: TypeBankAccount, ID: "acc-b"},
		decimal.RequireFromString("1.00"), "tx-1")
	if res.Outcome != Confirmed {
		t.Fatalf("expected confirmed after retries, got %s (%v)", res.Outcome, res.Err)
	}
	if flaky.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", flaky.calls)
	}
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 1_000, "acc-b": 0})
	flaky := &flakyLedger{Ledger: bank, failures: 10, err: fiatledger.ErrUnavailable}
	d := newTestDispatcher(flaky, fiatledger.NewInMemory(), 3)

	res := d.Transfer(context.Background(),
		Method{Type: TypeBankAccount, ID: "acc-a"},
		Method{Type: TypeBankAccount, ID: "acc-b"},
		decimal.RequireFromString("1.00"), "tx-1")
	if res.Outcome != Unavailable {
		t.Fatalf("expected unavailable, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, fiatledger.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", res.Err)
	}
	if flaky.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", flaky.calls)
	}
}

func TestDispatcherDeclineIsNotRetried(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 100, "acc-b": 0})
	flaky := &flakyLedger{Ledger: bank}
	d := newTestDispatcher(flaky, fiatledger.NewInMemory(), 3)

	res := d.Transfer(context.Background(),
		Method{Type: TypeBankAccount, ID: "acc-a"},
		Method{Type: TypeBankAccount, ID: "acc-b"},
		decimal.RequireFromString("50.00"), "tx-1")
	if res.Outcome != Declined {
		t.Fatalf("expected declined, got %s", res.Outcome)
	}
	if !errors.Is(res.Err, fiatledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", res.Err)
	}
	if flaky.calls != 1 {
		t.Fatalf("declines must not be retried, got %d attempts", flaky.calls)
	}
}

func TestDispatcherDuplicateIsConfirmed(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 1_000, "acc-b": 0})
	d := newTestDispatcher(bank, fiatledger.NewInMemory(), 3)

	from := Method{Type: TypeBankAccount, ID: "acc-a"}
	to := Method{Type: TypeBankAccount, ID: "acc-b"}
	amount := decimal.RequireFromString("2.00")

	if res := d.Transfer(context.Background(), from, to, amount, "tx-1"); res.Outcome != Confirmed {
		t.Fatalf("first transfer: %s (%v)", res.Outcome, res.Err)
	}
	if res := d.Transfer(context.Background(), from, to, amount, "tx-1"); res.Outcome != Confirmed {
		t.Fatalf("replayed transfer must confirm, got %s (%v)", res.Outcome, res.Err)
	}

	balB, _ := bank.Balance(context.Background(), "acc-b")
	if balB != 200 {
		t.Fatalf("replay must not move funds twice, got %d", balB)
	}
}

func TestDispatcherCrossRailTransfer(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 10_000})
	yanki := newBankLedger(t, map[string]int64{"yanki-b": 0})
	d := newTestDispatcher(bank, yanki, 3)

	res := d.Transfer(context.Background(),
		Method{Type: TypeBankAccount, ID: "acc-a"},
		Method{Type: TypeYankiWallet, ID: "yanki-b"},
		decimal.RequireFromString("30.00"), "tx-1")
	if res.Outcome != Confirmed {
		t.Fatalf("expected confirmed, got %s (%v)", res.Outcome, res.Err)
	}

	balA, _ := bank.Balance(context.Background(), "acc-a")
	balB, _ := yanki.Balance(context.Background(), "yanki-b")
	if balA != 7_000 || balB != 3_000 {
		t.Fatalf("unexpected balances: bank=%d yanki=%d", balA, balB)
	}
}

func TestDispatcherCrossRailRollsBackFailedCredit(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 10_000})
	// The receiving account does not exist on the Yanki rail.
	yanki := newBankLedger(t, nil)
	d := newTestDispatcher(bank, yanki, 3)

	res := d.Transfer(context.Background(),
		Method{Type: TypeBankAccount, ID: "acc-a"},
		Method{Type: TypeYankiWallet, ID: "yanki-missing"},
		decimal.RequireFromString("30.00"), "tx-1")
	if res.Outcome != Declined {
		t.Fatalf("expected declined, got %s (%v)", res.Outcome, res.Err)
	}

	balA, _ := bank.Balance(context.Background(), "acc-a")
	if balA != 10_000 {
		t.Fatalf("debit must be rolled back, got %d", balA)
	}
}

func TestDispatcherCollect(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 5_000})
	d := newTestDispatcher(bank, fiatledger.NewInMemory(), 3)

	res := d.Collect(context.Background(),
		Method{Type: TypeBankAccount, ID: "acc-a"},
		decimal.RequireFromString("12.50"), "tx-1")
	if res.Outcome != Confirmed {
		t.Fatalf("expected confirmed, got %s (%v)", res.Outcome, res.Err)
	}

	treasury, _ := bank.Balance(context.Background(), fiatledger.TreasuryAccountCode)
	if treasury != 1_250 {
		t.Fatalf("expected treasury 1250, got %d", treasury)
	}
}

func TestDispatcherRejectsSubCentAmounts(t *testing.T) {
	bank := newBankLedger(t, map[string]int64{"acc-a": 5_000, "acc-b": 0})
	d := newTestDispatcher(bank, fiatledger.NewInMemory(), 3)

	res := d.Transfer(context.Background(),
		Method{Type: TypeBankAccount, ID: "acc-a"},
		Method{Type: TypeBankAccount, ID: "acc-b"},
		decimal.RequireFromString("0.005"), "tx-1")
	if res.Outcome != Declined {
		t.Fatalf("expected declined for sub-cent amount, got %s", res.Outcome)
	}
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("CASH"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	got, err := ParseType("MOBILE_WALLET")
	if err != nil {
		t.Fatalf("parse alias: %v", err)
	}
	if got != TypeYankiWallet {
		t.Fatalf("expected MOBILE_WALLET to map to YANKI_WALLET, got %s", got)
	}
}
