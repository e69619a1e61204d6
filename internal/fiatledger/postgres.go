package fiatledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists fiat postings for one rail in PostgreSQL ensuring
// double-entry balance.
type PostgresLedger struct {
	db   *pgxpool.Pool
	rail string
}

// NewPostgresLedger constructs a Postgres-backed ledger for the named rail
// ("bank" or "yanki"). Account codes are scoped per rail.
func NewPostgresLedger(db *pgxpool.Pool, rail string) *PostgresLedger {
	return &PostgresLedger{db: db, rail: rail}
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO fiat_accounts (id, rail, code) VALUES ($1, $2, $3)
        ON CONFLICT (rail, code) DO NOTHING`, uuid.New(), l.rail, code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	const query = `
        SELECT COALESCE(SUM(e.amount), 0)
        FROM fiat_entries e
        INNER JOIN fiat_accounts a ON a.id = e.account_id
        WHERE a.rail = $1 AND a.code = $2`
	var balance int64
	if err := l.db.QueryRow(ctx, query, l.rail, code).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Transfer records a balanced posting between two accounts on this rail.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromAccountID, err := l.lockAccount(ctx, tx, fromCode)
	if err != nil {
		return TransactionResult{}, err
	}
	toAccountID, err := l.lockAccount(ctx, tx, toCode)
	if err != nil {
		return TransactionResult{}, err
	}

	existingID, err := l.findExisting(ctx, tx, kind, clientTxID)
	if err != nil {
		return TransactionResult{}, err
	}
	if existingID != uuid.Nil {
		fromBal, err := balanceForAccount(ctx, tx, fromAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		toBal, err := balanceForAccount(ctx, tx, toAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return TransactionResult{TransactionID: existingID.String(), FromBalance: fromBal, ToBalance: toBal}, ErrDuplicateTransaction
	}

	fromBalance, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}
	toBalance, err := balanceForAccount(ctx, tx, toAccountID)
	if err != nil {
		return TransactionResult{}, err
	}

	txID, err := l.post(ctx, tx, kind, clientTxID, fromAccountID, toAccountID, amount)
	if err != nil {
		return TransactionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{
		TransactionID: txID.String(),
		FromBalance:   fromBalance - amount,
		ToBalance:     toBalance + amount,
	}, nil
}

// Debit moves funds from the account into the interchange clearing account.
func (l *PostgresLedger) Debit(ctx context.Context, code, kind, clientTxID string, amount int64) (Posting, error) {
	return l.interchangePosting(ctx, code, kind, clientTxID, amount, true)
}

// Credit moves funds from the interchange clearing account into the account.
// The interchange account may run negative.
func (l *PostgresLedger) Credit(ctx context.Context, code, kind, clientTxID string, amount int64) (Posting, error) {
	return l.interchangePosting(ctx, code, kind, clientTxID, amount, false)
}

func (l *PostgresLedger) interchangePosting(ctx context.Context, code, kind, clientTxID string, amount int64, debit bool) (Posting, error) {
	if amount <= 0 {
		return Posting{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Posting{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountID, err := l.lockAccount(ctx, tx, code)
	if err != nil {
		return Posting{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO fiat_accounts (id, rail, code) VALUES ($1, $2, $3)
        ON CONFLICT (rail, code) DO NOTHING`, uuid.New(), l.rail, InterchangeAccountCode); err != nil {
		return Posting{}, err
	}
	interchangeID, err := l.lockAccount(ctx, tx, InterchangeAccountCode)
	if err != nil {
		return Posting{}, err
	}

	existingID, err := l.findExisting(ctx, tx, kind, clientTxID)
	if err != nil {
		return Posting{}, err
	}
	if existingID != uuid.Nil {
		balance, err := balanceForAccount(ctx, tx, accountID)
		if err != nil {
			return Posting{}, err
		}
		return Posting{TransactionID: existingID.String(), Balance: balance}, ErrDuplicateTransaction
	}

	balance, err := balanceForAccount(ctx, tx, accountID)
	if err != nil {
		return Posting{}, err
	}

	from, to := interchangeID, accountID
	newBalance := balance + amount
	if debit {
		if balance < amount {
			return Posting{}, ErrInsufficientFunds
		}
		from, to = accountID, interchangeID
		newBalance = balance - amount
	}

	txID, err := l.post(ctx, tx, kind, clientTxID, from, to, amount)
	if err != nil {
		return Posting{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Posting{}, err
	}

	return Posting{TransactionID: txID.String(), Balance: newBalance}, nil
}

func (l *PostgresLedger) lockAccount(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	var accountID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM fiat_accounts WHERE rail = $1 AND code = $2 FOR UPDATE`, l.rail, code).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%s account %s: %w", l.rail, code, ErrAccountNotFound)
		}
		return uuid.Nil, err
	}
	return accountID, nil
}

func (l *PostgresLedger) findExisting(ctx context.Context, tx pgx.Tx, kind, clientTxID string) (uuid.UUID, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM fiat_transactions WHERE rail = $1 AND client_tx_id = $2 AND kind = $3`,
		l.rail, clientTxID, kind).Scan(&existingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return existingID, nil
}

func (l *PostgresLedger) post(ctx context.Context, tx pgx.Tx, kind, clientTxID string, fromAccountID, toAccountID uuid.UUID, amount int64) (uuid.UUID, error) {
	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO fiat_transactions (id, rail, client_tx_id, kind) VALUES ($1, $2, $3, $4)`,
		txID, l.rail, clientTxID, kind); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO fiat_entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`,
		uuid.New(), txID, fromAccountID, -amount); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO fiat_entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`,
		uuid.New(), txID, toAccountID, amount); err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM fiat_entries WHERE account_id = $1`, accountID).Scan(&balance)
	return balance, err
}
