package fiatledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountNotFound indicates the referenced account number is unknown to
	// this ledger.
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnavailable indicates the ledger backend could not be reached. Callers
	// may retry; the books were not touched.
	ErrUnavailable = errors.New("ledger unavailable")
)

const (
	// TreasuryAccountCode receives the fiat leg of one-sided BootCoin purchases.
	TreasuryAccountCode = "treasury:bootcoin"
	// InterchangeAccountCode is the clearing account used when a transfer's
	// counter-leg settles on another rail. It may run negative.
	InterchangeAccountCode = "suspense:interchange"
)

// TransactionResult captures the outcome of a balanced two-account posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// Posting captures the outcome of a single-account posting against the
// interchange account.
type Posting struct {
	TransactionID string
	Balance       int64
}

// Ledger is a fiat ledger for one settlement rail (bank accounts or Yanki
// wallets), accounting in minor currency units.
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	// Transfer posts a balanced entry between two accounts on this rail.
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	// Debit moves funds from the account into the interchange account, for
	// transfers whose credit leg settles on another rail.
	Debit(ctx context.Context, code, kind, clientTxID string, amount int64) (Posting, error)
	// Credit moves funds from the interchange account into the account.
	Credit(ctx context.Context, code, kind, clientTxID string, amount int64) (Posting, error)
}
