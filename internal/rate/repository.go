package rate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNoRateAvailable indicates no rate is effective at or before the requested
// time. Callers must refuse the exchange, never substitute a default rate.
var ErrNoRateAvailable = errors.New("no exchange rate available")

// Repository persists exchange rates.
type Repository interface {
	Append(ctx context.Context, r Rate) error
	// LatestAt returns the rate with the greatest effective timestamp not
	// exceeding asOf, or ErrNoRateAvailable.
	LatestAt(ctx context.Context, asOf time.Time) (Rate, error)
}

// PostgresRepository stores exchange rates in PostgreSQL, indexed by effective
// timestamp.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts a new effective-dated rate.
func (r *PostgresRepository) Append(ctx context.Context, rate Rate) error {
	rateID, err := uuid.Parse(rate.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO exchange_rates (id, effective_at, buy_rate, sell_rate)
        VALUES ($1, $2, $3, $4)`,
		rateID, rate.EffectiveAt.UTC(), rate.BuyRate.String(), rate.SellRate.String())
	return err
}

// LatestAt selects the newest rate effective at or before asOf.
func (r *PostgresRepository) LatestAt(ctx context.Context, asOf time.Time) (Rate, error) {
	row := r.db.QueryRow(ctx, `SELECT id, effective_at, buy_rate, sell_rate
        FROM exchange_rates WHERE effective_at <= $1
        ORDER BY effective_at DESC LIMIT 1`, asOf.UTC())

	var (
		rate        Rate
		idVal       uuid.UUID
		effectiveAt time.Time
		buy, sell   string
	)
	if err := row.Scan(&idVal, &effectiveAt, &buy, &sell); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, ErrNoRateAvailable
		}
		return Rate{}, err
	}
	buyRate, err := decimal.NewFromString(buy)
	if err != nil {
		return Rate{}, err
	}
	sellRate, err := decimal.NewFromString(sell)
	if err != nil {
		return Rate{}, err
	}
	rate.ID = idVal.String()
	rate.EffectiveAt = effectiveAt.UTC()
	rate.BuyRate = buyRate
	rate.SellRate = sellRate
	return rate, nil
}
