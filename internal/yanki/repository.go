package yanki

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the Yanki wallet does not exist.
var ErrNotFound = errors.New("yanki wallet not found")

// Repository persists Yanki wallet records.
type Repository interface {
	Create(ctx context.Context, w Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	Update(ctx context.Context, w Wallet) error
}

// PostgresRepository stores Yanki wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a Yanki wallet record.
func (r *PostgresRepository) Create(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO yanki_wallets (id, phone_number, debit_card_number, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		walletID, w.PhoneNumber, w.DebitCardNumber, w.Status, w.CreatedAt.UTC())
	return err
}

// Get fetches a Yanki wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletUUID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, phone_number, debit_card_number, status, created_at
        FROM yanki_wallets WHERE id = $1`, walletUUID)

	var (
		w         Wallet
		idVal     uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&idVal, &w.PhoneNumber, &w.DebitCardNumber, &w.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.ID = idVal.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}

// Update overwrites the mutable fields of a Yanki wallet.
func (r *PostgresRepository) Update(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE yanki_wallets SET debit_card_number = $1, status = $2 WHERE id = $3`,
		w.DebitCardNumber, w.Status, walletID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
