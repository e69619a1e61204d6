package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/payment"
)

var (
	// ErrNotFound indicates the petition does not exist.
	ErrNotFound = errors.New("petition not found")

	// ErrVersionConflict indicates a concurrent writer updated the petition
	// between read and write.
	ErrVersionConflict = errors.New("petition version conflict")
)

// Repository persists exchange petitions.
type Repository interface {
	Create(ctx context.Context, p Petition) error
	Get(ctx context.Context, id string) (Petition, error)
	// Update writes the petition only if the stored version still matches,
	// then bumps it. Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, p Petition) (Petition, error)
	// ListSettlingBefore returns petitions stuck in SETTLING whose last update
	// precedes the cutoff. The sweeper drives them to FAILED.
	ListSettlingBefore(ctx context.Context, cutoff time.Time) ([]Petition, error)
}

// PostgresRepository stores petitions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const petitionColumns = `id, bootcoin_amount, fiat_amount, buyer_wallet_id, seller_wallet_id,
    buyer_payment_type, buyer_payment_method_id, seller_payment_type, seller_payment_method_id,
    locked_sell_rate, status, fiat_confirmed, failure_reason, version, created_at, updated_at`

// Create inserts a petition record.
func (r *PostgresRepository) Create(ctx context.Context, p Petition) error {
	petitionID, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO exchange_petitions (`+petitionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		petitionID, p.BootCoinAmount.String(), p.FiatAmount.String(), p.BuyerWalletID, p.SellerWalletID,
		string(p.BuyerPaymentType), p.BuyerPaymentMethodID, string(p.SellerPaymentType), p.SellerPaymentMethodID,
		p.LockedSellRate.String(), string(p.Status), p.FiatConfirmed, p.FailureReason, p.Version,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return err
}

// Get fetches a petition by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Petition, error) {
	petitionID, err := uuid.Parse(id)
	if err != nil {
		return Petition{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+petitionColumns+` FROM exchange_petitions WHERE id = $1`, petitionID)
	return scanPetition(row)
}

// Update performs a compare-and-swap on the petition's version column.
func (r *PostgresRepository) Update(ctx context.Context, p Petition) (Petition, error) {
	petitionID, err := uuid.Parse(p.ID)
	if err != nil {
		return Petition{}, ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, `UPDATE exchange_petitions
        SET seller_wallet_id = $1, seller_payment_type = $2, seller_payment_method_id = $3,
            locked_sell_rate = $4, status = $5, fiat_confirmed = $6, failure_reason = $7,
            version = version + 1, updated_at = $8
        WHERE id = $9 AND version = $10`,
		p.SellerWalletID, string(p.SellerPaymentType), p.SellerPaymentMethodID,
		p.LockedSellRate.String(), string(p.Status), p.FiatConfirmed, p.FailureReason,
		p.UpdatedAt, petitionID, p.Version)
	if err != nil {
		return Petition{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, p.ID); getErr != nil {
			return Petition{}, getErr
		}
		return Petition{}, ErrVersionConflict
	}
	p.Version++
	return p, nil
}

// ListSettlingBefore returns SETTLING petitions last touched before the cutoff.
func (r *PostgresRepository) ListSettlingBefore(ctx context.Context, cutoff time.Time) ([]Petition, error) {
	rows, err := r.db.Query(ctx, `SELECT `+petitionColumns+` FROM exchange_petitions
        WHERE status = $1 AND updated_at < $2 ORDER BY updated_at`,
		string(StatusSettling), cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Petition
	for rows.Next() {
		p, err := scanPetition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPetition(row pgx.Row) (Petition, error) {
	var (
		p                      Petition
		idVal                  uuid.UUID
		coin, fiat, lockedRate string
		buyerType, sellerType  string
		status                 string
		createdAt, updatedAt   time.Time
	)
	err := row.Scan(&idVal, &coin, &fiat, &p.BuyerWalletID, &p.SellerWalletID,
		&buyerType, &p.BuyerPaymentMethodID, &sellerType, &p.SellerPaymentMethodID,
		&lockedRate, &status, &p.FiatConfirmed, &p.FailureReason, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Petition{}, ErrNotFound
		}
		return Petition{}, err
	}

	coinAmount, err := decimal.NewFromString(coin)
	if err != nil {
		return Petition{}, err
	}
	fiatAmount, err := decimal.NewFromString(fiat)
	if err != nil {
		return Petition{}, err
	}
	locked, err := decimal.NewFromString(lockedRate)
	if err != nil {
		return Petition{}, err
	}

	p.ID = idVal.String()
	p.BootCoinAmount = coinAmount
	p.FiatAmount = fiatAmount
	p.LockedSellRate = locked
	p.BuyerPaymentType = payment.Type(buyerType)
	p.SellerPaymentType = payment.Type(sellerType)
	p.Status = Status(status)
	p.CreatedAt = createdAt.UTC()
	p.UpdatedAt = updatedAt.UTC()
	return p, nil
}
