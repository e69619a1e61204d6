package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the wallet does not exist.
	ErrNotFound = errors.New("wallet not found")

	// ErrVersionConflict indicates a concurrent writer updated the wallet
	// between read and write. Callers retry with a fresh read.
	ErrVersionConflict = errors.New("wallet version conflict")
)

// Repository persists BootCoin wallets.
type Repository interface {
	Create(ctx context.Context, w Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	// Update writes the wallet only if the stored version still matches
	// w.Version, then bumps it. Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, w Wallet) (Wallet, error)
	// Transfer atomically moves BootCoin between two wallets, deduplicated by
	// client transaction identifier: a transfer that already applied is a
	// no-op. Both wallets must be active and the source must cover the amount.
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, clientTxID string) error
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO bootcoin_wallets (id, account_number, yanki_wallet_id, balance, status, version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		walletID, w.AccountNumber, w.YankiWalletID, w.Balance.String(), w.Status, w.Version, w.CreatedAt.UTC())
	return err
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletUUID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, account_number, yanki_wallet_id, balance, status, version, created_at
        FROM bootcoin_wallets WHERE id = $1`, walletUUID)
	return scanWallet(row)
}

// Update performs a compare-and-swap on the wallet's version column.
func (r *PostgresRepository) Update(ctx context.Context, w Wallet) (Wallet, error) {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE bootcoin_wallets
        SET account_number = $1, yanki_wallet_id = $2, balance = $3, status = $4, version = version + 1
        WHERE id = $5 AND version = $6`,
		w.AccountNumber, w.YankiWalletID, w.Balance.String(), w.Status, walletID, w.Version)
	if err != nil {
		return Wallet{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, w.ID); getErr != nil {
			return Wallet{}, getErr
		}
		return Wallet{}, ErrVersionConflict
	}
	w.Version++
	return w, nil
}

// Transfer applies a balanced two-wallet move inside one transaction. The
// dedup row is inserted first: a client transaction that already committed
// makes the insert a no-op and the move is skipped entirely.
func (r *PostgresRepository) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, clientTxID string) error {
	fromUUID, err := uuid.Parse(fromID)
	if err != nil {
		return ErrNotFound
	}
	toUUID, err := uuid.Parse(toID)
	if err != nil {
		return ErrNotFound
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, `INSERT INTO bootcoin_wallet_transfers (client_tx_id, from_wallet_id, to_wallet_id, amount, created_at)
        VALUES ($1, $2, $3, $4, $5) ON CONFLICT (client_tx_id) DO NOTHING`,
		clientTxID, fromUUID, toUUID, amount.String(), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Already applied by an earlier delivery.
		return nil
	}

	from, err := lockWallet(ctx, tx, fromUUID)
	if err != nil {
		return err
	}
	to, err := lockWallet(ctx, tx, toUUID)
	if err != nil {
		return err
	}
	if from.Status != StatusActive || to.Status != StatusActive {
		return ErrInactive
	}
	if from.Balance.LessThan(amount) {
		return ErrInsufficientBootCoin
	}

	if _, err := tx.Exec(ctx, `UPDATE bootcoin_wallets SET balance = $1, version = version + 1 WHERE id = $2`,
		from.Balance.Sub(amount).String(), fromUUID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE bootcoin_wallets SET balance = $1, version = version + 1 WHERE id = $2`,
		to.Balance.Add(amount).String(), toUUID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockWallet(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Wallet, error) {
	row := tx.QueryRow(ctx, `SELECT id, account_number, yanki_wallet_id, balance, status, version, created_at
        FROM bootcoin_wallets WHERE id = $1 FOR UPDATE`, id)
	return scanWallet(row)
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		idVal     uuid.UUID
		balance   string
		createdAt time.Time
	)
	if err := row.Scan(&idVal, &w.AccountNumber, &w.YankiWalletID, &balance, &w.Status, &w.Version, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return Wallet{}, err
	}
	w.ID = idVal.String()
	w.Balance = parsed
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
