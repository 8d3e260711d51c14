package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/ratecache"
)

// AssetService manages the asset registry.
type AssetService struct {
	assetRepo AssetRepository
	cache     *ratecache.Cache
	log       zerolog.Logger
}

// NewAssetService creates an AssetService. The cache is purged on asset
// mutations so precision changes take effect immediately.
func NewAssetService(assetRepo AssetRepository, cache *ratecache.Cache, log zerolog.Logger) *AssetService {
	return &AssetService{assetRepo: assetRepo, cache: cache, log: log}
}

// CreateAsset registers a new asset. Codes are stored upper-case; a zero
// precision falls back to the default.
func (s *AssetService) CreateAsset(ctx context.Context, code string, precision int32) (*domain.Asset, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrInvalidAssetPair
	}
	if precision <= 0 {
		precision = domain.DefaultPrecision
	}

	asset := &domain.Asset{
		Code:      code,
		Precision: precision,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.assetRepo.Create(ctx, asset); err != nil {
		return nil, err
	}

	s.log.Info().Str("asset", code).Int32("precision", precision).Msg("asset created")

	return asset, nil
}

// GetAsset returns the asset by code.
func (s *AssetService) GetAsset(ctx context.Context, code string) (*domain.Asset, error) {
	return s.assetRepo.GetByCode(ctx, strings.ToUpper(code))
}

// ListAssets returns all registered assets.
func (s *AssetService) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	return s.assetRepo.List(ctx)
}

// Precision returns the asset's decimal precision.
func (s *AssetService) Precision(ctx context.Context, code string) (int32, error) {
	asset, err := s.assetRepo.GetByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return 0, err
	}
	return asset.Precision, nil
}

// SetPrecision updates the asset's decimal precision. Stored amounts are
// not rewritten; new postings and balance reads round to the new value.
func (s *AssetService) SetPrecision(ctx context.Context, code string, precision int32) error {
	if precision <= 0 {
		return domain.ErrInvalidAmount
	}

	code = strings.ToUpper(code)
	if err := s.assetRepo.Update(ctx, code, nil, &precision); err != nil {
		return err
	}

	s.cache.Purge()
	s.log.Info().Str("asset", code).Int32("precision", precision).Msg("asset precision updated")

	return nil
}

// RenameAsset changes an asset's code. Accounts and rates referencing the
// asset follow via the store's foreign keys.
func (s *AssetService) RenameAsset(ctx context.Context, code, newCode string) error {
	code = strings.ToUpper(code)
	newCode = strings.ToUpper(strings.TrimSpace(newCode))
	if newCode == "" {
		return domain.ErrInvalidAssetPair
	}

	if err := s.assetRepo.Update(ctx, code, &newCode, nil); err != nil {
		return err
	}

	s.cache.Purge()
	s.log.Info().Str("asset", code).Str("new_code", newCode).Msg("asset renamed")

	return nil
}

// DeleteAsset removes an asset from the registry. The store rejects the
// deletion while accounts still reference it.
func (s *AssetService) DeleteAsset(ctx context.Context, code string) error {
	code = strings.ToUpper(code)
	if err := s.assetRepo.Delete(ctx, code); err != nil {
		return err
	}

	s.cache.Purge()
	s.log.Warn().Str("asset", code).Msg("asset deleted")

	return nil
}
