package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository appends and lists BootCoin transaction records.
type Repository interface {
	Append(ctx context.Context, t Transaction) error
	ListByWallet(ctx context.Context, walletID string) ([]Transaction, error)
}

// PostgresRepository stores BootCoin transactions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts an audit record.
func (r *PostgresRepository) Append(ctx context.Context, t Transaction) error {
	txID, err := uuid.Parse(t.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO bootcoin_transactions
        (id, petition_id, buyer_wallet_id, seller_wallet_id, fiat_amount, bootcoin_amount, payment_type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txID, t.PetitionID, t.BuyerWalletID, t.SellerWalletID,
		t.FiatAmount.String(), t.BootCoinAmount.String(), t.PaymentType, t.CreatedAt.UTC())
	return err
}

// ListByWallet returns records where the wallet appears on either side, newest first.
func (r *PostgresRepository) ListByWallet(ctx context.Context, walletID string) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, petition_id, buyer_wallet_id, seller_wallet_id, fiat_amount, bootcoin_amount, payment_type, created_at
        FROM bootcoin_transactions
        WHERE buyer_wallet_id = $1 OR seller_wallet_id = $1
        ORDER BY created_at DESC`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			t          Transaction
			idVal      uuid.UUID
			fiat, coin string
			createdAt  time.Time
		)
		if err := rows.Scan(&idVal, &t.PetitionID, &t.BuyerWalletID, &t.SellerWalletID, &fiat, &coin, &t.PaymentType, &createdAt); err != nil {
			return nil, err
		}
		fiatAmount, err := decimal.NewFromString(fiat)
		if err != nil {
			return nil, err
		}
		coinAmount, err := decimal.NewFromString(coin)
		if err != nil {
			return nil, err
		}
		t.ID = idVal.String()
		t.FiatAmount = fiatAmount
		t.BootCoinAmount = coinAmount
		t.CreatedAt = createdAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}
