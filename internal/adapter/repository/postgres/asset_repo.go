package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fxledger/fxledger/internal/domain"
)

// AssetRepository implements usecase.AssetRepository.
type AssetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{pool: pool}
}

// Create inserts a new asset.
func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO assets (code, scale, created_at) VALUES ($1, $2, $3)`,
		asset.Code, asset.Precision, asset.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}

	return err
}

// GetByCode retrieves an asset by code.
func (r *AssetRepository) GetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	var asset domain.Asset

	err := r.pool.QueryRow(ctx,
		`SELECT code, scale, created_at FROM assets WHERE code = $1`,
		code,
	).Scan(&asset.Code, &asset.Precision, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}

		return nil, err
	}

	return &asset, nil
}

// List retrieves all assets ordered by code.
func (r *AssetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code, scale, created_at FROM assets ORDER BY code`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.Code, &asset.Precision, &asset.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, &asset)
	}

	return assets, rows.Err()
}

// Update renames an asset and/or changes its precision. Nil fields are
// left untouched.
func (r *AssetRepository) Update(ctx context.Context, code string, newCode *string, precision *int32) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE assets
		 SET code = COALESCE($2, code), scale = COALESCE($3, scale)
		 WHERE code = $1`,
		code, newCode, precision,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAssetNotFound
	}

	return nil
}

// Delete removes an asset. Fails while accounts still reference it.
func (r *AssetRepository) Delete(ctx context.Context, code string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAssetNotFound
	}

	return nil
}
