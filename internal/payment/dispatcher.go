package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/fiatledger"
)

// Type selects the fiat rail a payment method settles on.
type Type string

const (
	// TypeBankAccount settles against the bank-account ledger.
	TypeBankAccount Type = "BANK_ACCOUNT"
	// TypeYankiWallet settles against the Yanki mobile-wallet ledger.
	TypeYankiWallet Type = "YANKI_WALLET"
)

// ParseType normalizes an inbound payment-type string. MOBILE_WALLET is an
// accepted alias for YANKI_WALLET.
func ParseType(s string) (Type, error) {
	switch s {
	case string(TypeBankAccount):
		return TypeBankAccount, nil
	case string(TypeYankiWallet), "MOBILE_WALLET":
		return TypeYankiWallet, nil
	default:
		return "", fmt.Errorf("unknown payment type %q", s)
	}
}

// Method identifies a fiat payment method: an account number on the bank rail
// or a wallet identifier/phone number on the Yanki rail.
type Method struct {
	Type Type
	ID   string
}

// Outcome classifies a settlement attempt.
type Outcome string

const (
	// Confirmed means the fiat moved.
	Confirmed Outcome = "confirmed"
	// Declined is a business rejection (e.g. insufficient funds); terminal for
	// this attempt.
	Declined Outcome = "declined"
	// Unavailable is a transport or backend failure; the dispatcher already
	// retried, the caller decides whether to try again later.
	Unavailable Outcome = "unavailable"
)

// Result reports a dispatched payment.
type Result struct {
	Outcome       Outcome
	TransactionID string
	// Duplicate marks a confirmed result that was already applied by an
	// earlier delivery of the same client transaction.
	Duplicate bool
	Err       error
}

// Dispatcher routes fiat legs to the bank-account or Yanki ledger based on the
// payment type, so saga code never branches on rails itself.
type Dispatcher struct {
	bank    fiatledger.Ledger
	yanki   fiatledger.Ledger
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

// NewDispatcher constructs a payment dispatcher. retries bounds attempts per
// leg when the backend is unavailable.
func NewDispatcher(bank, yanki fiatledger.Ledger, retries int, logger *slog.Logger) *Dispatcher {
	if retries < 1 {
		retries = 1
	}
	return &Dispatcher{bank: bank, yanki: yanki, retries: retries, backoff: 200 * time.Millisecond, logger: logger}
}

// Transfer moves fiat from one payment method to another. Same-rail transfers
// post a single balanced entry; cross-rail transfers debit one ledger and
// credit the other, rolling the debit back if the credit leg cannot complete.
func (d *Dispatcher) Transfer(ctx context.Context, from, to Method, amount decimal.Decimal, clientTxID string) Result {
	minor, err := minorUnits(amount)
	if err != nil {
		return Result{Outcome: Declined, Err: err}
	}

	if from.Type == to.Type {
		ledger, err := d.ledgerFor(from.Type)
		if err != nil {
			return Result{Outcome: Declined, Err: err}
		}
		return d.attempt(ctx, func() (string, error) {
			res, err := ledger.Transfer(ctx, from.ID, to.ID, "exchange_fiat", clientTxID, minor)
			return res.TransactionID, err
		})
	}

	fromLedger, err := d.ledgerFor(from.Type)
	if err != nil {
		return Result{Outcome: Declined, Err: err}
	}
	toLedger, err := d.ledgerFor(to.Type)
	if err != nil {
		return Result{Outcome: Declined, Err: err}
	}

	debit := d.attempt(ctx, func() (string, error) {
		res, err := fromLedger.Debit(ctx, from.ID, "xfer_out", clientTxID, minor)
		return res.TransactionID, err
	})
	if debit.Outcome != Confirmed {
		return debit
	}

	credit := d.attempt(ctx, func() (string, error) {
		res, err := toLedger.Credit(ctx, to.ID, "xfer_in", clientTxID, minor)
		return res.TransactionID, err
	})
	if credit.Outcome == Confirmed {
		return credit
	}

	// Credit leg failed: put the debited fiat back before reporting.
	rollback := d.attempt(ctx, func() (string, error) {
		res, err := fromLedger.Credit(ctx, from.ID, "xfer_rollback", clientTxID, minor)
		return res.TransactionID, err
	})
	if rollback.Outcome != Confirmed {
		d.logger.Error("cross-rail rollback failed",
			"client_tx_id", clientTxID, "from", from.ID, "error", rollback.Err)
		return Result{Outcome: Unavailable, Err: fmt.Errorf("credit leg failed and rollback incomplete: %w", credit.Err)}
	}
	return credit
}

// Refund reverses a previously confirmed transfer. The refund carries its own
// client transaction identifier so it is idempotent under redelivery.
func (d *Dispatcher) Refund(ctx context.Context, from, to Method, amount decimal.Decimal, clientTxID string) Result {
	return d.Transfer(ctx, to, from, amount, clientTxID+":refund")
}

// Collect debits the payer's method into the BootCoin treasury on the same
// rail, funding a one-sided purchase.
func (d *Dispatcher) Collect(ctx context.Context, from Method, amount decimal.Decimal, clientTxID string) Result {
	minor, err := minorUnits(amount)
	if err != nil {
		return Result{Outcome: Declined, Err: err}
	}
	ledger, err := d.ledgerFor(from.Type)
	if err != nil {
		return Result{Outcome: Declined, Err: err}
	}
	return d.attempt(ctx, func() (string, error) {
		res, err := ledger.Transfer(ctx, from.ID, fiatledger.TreasuryAccountCode, "purchase", clientTxID, minor)
		return res.TransactionID, err
	})
}

func (d *Dispatcher) ledgerFor(t Type) (fiatledger.Ledger, error) {
	switch t {
	case TypeBankAccount:
		return d.bank, nil
	case TypeYankiWallet:
		return d.yanki, nil
	default:
		return nil, fmt.Errorf("unknown payment type %q", t)
	}
}

// attempt runs one ledger operation, retrying with backoff while the backend
// is unavailable and classifying the terminal error.
func (d *Dispatcher) attempt(ctx context.Context, op func() (string, error)) Result {
	var lastErr error
	for i := 0; i < d.retries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return Result{Outcome: Unavailable, Err: ctx.Err()}
			case <-time.After(d.backoff * time.Duration(i)):
			}
		}

		txID, err := op()
		switch {
		case err == nil:
			return Result{Outcome: Confirmed, TransactionID: txID}
		case errors.Is(err, fiatledger.ErrDuplicateTransaction):
			// Already applied on a previous delivery.
			return Result{Outcome: Confirmed, TransactionID: txID, Duplicate: true}
		case errors.Is(err, fiatledger.ErrUnavailable):
			lastErr = err
			continue
		case errors.Is(err, fiatledger.ErrInsufficientFunds), errors.Is(err, fiatledger.ErrAccountNotFound):
			return Result{Outcome: Declined, Err: err}
		default:
			return Result{Outcome: Declined, Err: err}
		}
	}
	return Result{Outcome: Unavailable, Err: lastErr}
}

func minorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive")
	}
	shifted := amount.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has sub-cent precision", amount)
	}
	return shifted.IntPart(), nil
}
