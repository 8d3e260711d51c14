package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
)

// RateRepository implements usecase.RateRepository.
type RateRepository struct {
	pool *pgxpool.Pool
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

// Set records a rate observation, replacing an existing one for the same
// pair and date.
func (r *RateRepository) Set(ctx context.Context, rate *domain.Rate) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rates (asset_from, asset_to, at, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (asset_from, asset_to, at) DO UPDATE SET value = EXCLUDED.value`,
		rate.AssetFrom, rate.AssetTo, rate.At, decimalToNumeric(rate.Value),
	)

	return err
}

// Delete removes a rate observation.
func (r *RateRepository) Delete(ctx context.Context, from, to string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM rates WHERE asset_from = $1 AND asset_to = $2 AND at = $3`,
		from, to, at,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRateNotFound
	}

	return nil
}

// GetLatest returns the most recent rate for the pair effective at or
// before asOf.
func (r *RateRepository) GetLatest(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	var value pgtype.Numeric

	err := r.pool.QueryRow(ctx,
		`SELECT value FROM rates
		 WHERE asset_from = $1 AND asset_to = $2 AND at <= $3
		 ORDER BY at DESC
		 LIMIT 1`,
		from, to, asOf,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrRateNotFound
		}

		return decimal.Zero, err
	}

	return numericToDecimal(value), nil
}

// ListAsOf returns the latest observation per pair effective at or
// before asOf.
func (r *RateRepository) ListAsOf(ctx context.Context, asOf time.Time) ([]*domain.Rate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (asset_from, asset_to) asset_from, asset_to, at, value
		 FROM rates
		 WHERE at <= $1
		 ORDER BY asset_from, asset_to, at DESC`,
		asOf,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRates(rows)
}

// List returns all observations for a pair in chronological order.
func (r *RateRepository) List(ctx context.Context, from, to string) ([]*domain.Rate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT asset_from, asset_to, at, value
		 FROM rates
		 WHERE asset_from = $1 AND asset_to = $2
		 ORDER BY at`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRates(rows)
}

func scanRates(rows pgx.Rows) ([]*domain.Rate, error) {
	var rates []*domain.Rate
	for rows.Next() {
		var (
			rate  domain.Rate
			value pgtype.Numeric
		)
		if err := rows.Scan(&rate.AssetFrom, &rate.AssetTo, &rate.At, &value); err != nil {
			return nil, err
		}
		rate.Value = numericToDecimal(value)
		rates = append(rates, &rate)
	}

	return rates, rows.Err()
}
