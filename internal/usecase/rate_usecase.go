package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fxledger/fxledger/internal/domain"
	"github.com/fxledger/fxledger/internal/infrastructure/metrics"
	"github.com/fxledger/fxledger/internal/ratecache"
)

// RateConfig controls rate resolution.
type RateConfig struct {
	// BaseAsset is the reporting asset; it is named in rate-not-found
	// errors and used by asset-wide summaries.
	BaseAsset string
	// AllowReverse permits resolving a pair from the inverse of the
	// reverse pair.
	AllowReverse bool
	// AllowCross permits resolving a pair through a chain of known rates.
	AllowCross bool
}

// RateService resolves exchange rates: direct lookup first, then the
// inverted reverse pair, then a minimum-hop path over the graph of all
// known rates. Results are memoized in a TTL-windowed cache; rate writes
// do not invalidate, so staleness is bounded by the cache TTL.
type RateService struct {
	rateRepo  RateRepository
	assetRepo AssetRepository
	cache     *ratecache.Cache
	shared    SharedCache
	cfg       RateConfig
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewRateService creates a RateService. shared may be nil for single-node
// deployments.
func NewRateService(
	rateRepo RateRepository,
	assetRepo AssetRepository,
	cache *ratecache.Cache,
	shared SharedCache,
	cfg RateConfig,
	m *metrics.Metrics,
	log zerolog.Logger,
) *RateService {
	return &RateService{
		rateRepo:  rateRepo,
		assetRepo: assetRepo,
		cache:     cache,
		shared:    shared,
		cfg:       cfg,
		metrics:   m,
		log:       log,
	}
}

// SetRate records a rate observation for the pair.
func (s *RateService) SetRate(ctx context.Context, from, to string, value decimal.Decimal, at time.Time) error {
	rate := &domain.Rate{AssetFrom: from, AssetTo: to, At: at.UTC(), Value: value}
	if err := rate.Validate(); err != nil {
		return err
	}

	if _, err := s.assetRepo.GetByCode(ctx, from); err != nil {
		return err
	}
	if _, err := s.assetRepo.GetByCode(ctx, to); err != nil {
		return err
	}

	s.log.Info().
		Str("pair", from+"/"+to).
		Str("value", value.String()).
		Time("at", rate.At).
		Msg("setting rate")

	return s.rateRepo.Set(ctx, rate)
}

// DeleteRate removes a rate observation.
func (s *RateService) DeleteRate(ctx context.Context, from, to string, at time.Time) error {
	s.log.Warn().Str("pair", from+"/"+to).Time("at", at).Msg("deleting rate")
	return s.rateRepo.Delete(ctx, from, to, at.UTC())
}

// ListRates lists the recorded observations for a pair.
func (s *RateService) ListRates(ctx context.Context, from, to string) ([]*domain.Rate, error) {
	return s.rateRepo.List(ctx, from, to)
}

// Rate resolves the exchange rate for the pair as of the given date.
func (s *RateService) Rate(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	asOf = asOf.UTC()
	key := fmt.Sprintf("rate:%s/%s:%d", from, to, s.cache.Bucket(asOf))

	if v, ok := s.cache.Get(key); ok {
		s.metrics.RateLookup(metrics.RateSourceCache)
		return v.(decimal.Decimal), nil
	}

	if s.shared != nil {
		if raw, err := s.shared.Get(ctx, key); err == nil && raw != "" {
			if v, err := decimal.NewFromString(raw); err == nil {
				s.cache.Set(key, v)
				s.metrics.RateLookup(metrics.RateSourceCache)
				return v, nil
			}
		}
	}

	value, source, err := s.resolve(ctx, from, to, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	s.metrics.RateLookup(source)
	s.cache.Set(key, value)

	if s.shared != nil {
		if err := s.shared.Set(ctx, key, value.String(), s.cache.TTL()); err != nil {
			s.log.Debug().Err(err).Msg("shared rate cache write failed")
		}
	}

	return value, nil
}

func (s *RateService) resolve(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, string, error) {
	value, err := s.rateRepo.GetLatest(ctx, from, to, asOf)
	switch {
	case err == nil:
		return value, metrics.RateSourceDirect, nil
	case !errors.Is(err, domain.ErrRateNotFound):
		return decimal.Zero, "", fmt.Errorf("rate lookup %s/%s: %w", from, to, err)
	}

	if s.cfg.AllowReverse {
		reverse, err := s.rateRepo.GetLatest(ctx, to, from, asOf)
		switch {
		case err == nil:
			return decimal.NewFromInt(1).DivRound(reverse, rateDivisionPrecision), metrics.RateSourceReverse, nil
		case !errors.Is(err, domain.ErrRateNotFound):
			return decimal.Zero, "", fmt.Errorf("rate lookup %s/%s: %w", to, from, err)
		}
	}

	if s.cfg.AllowCross {
		value, ok, err := s.crossRate(ctx, from, to, asOf)
		if err != nil {
			return decimal.Zero, "", err
		}
		if ok {
			return value, metrics.RateSourceCross, nil
		}
	}

	return decimal.Zero, "", &domain.RateNotFoundError{From: from, To: to, At: asOf, Base: s.cfg.BaseAsset}
}

type rateEdge struct {
	to    string
	value decimal.Decimal
}

// crossRate finds a minimum-hop conversion path over all rates effective
// as of the date, treating every known edge as traversable in both
// directions (the synthetic reverse edge carries the inverted value).
// Iterative breadth-first search with visited marking keeps the traversal
// linear in the size of the rate graph.
func (s *RateService) crossRate(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, bool, error) {
	edges, err := s.snapshot(ctx, asOf)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("rate snapshot: %w", err)
	}

	graph := make(map[string][]rateEdge, len(edges))
	one := decimal.NewFromInt(1)
	for _, r := range edges {
		graph[r.AssetFrom] = append(graph[r.AssetFrom], rateEdge{to: r.AssetTo, value: r.Value})
		graph[r.AssetTo] = append(graph[r.AssetTo], rateEdge{to: r.AssetFrom, value: one.DivRound(r.Value, rateDivisionPrecision)})
	}

	type node struct {
		asset string
		value decimal.Decimal
	}

	visited := map[string]bool{from: true}
	queue := []node{{asset: from, value: one}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, e := range graph[cur.asset] {
			if visited[e.to] {
				continue
			}

			value := cur.value.Mul(e.value)
			if e.to == to {
				return value, true, nil
			}

			visited[e.to] = true
			queue = append(queue, node{asset: e.to, value: value})
		}
	}

	return decimal.Zero, false, nil
}

// snapshot returns the rate table effective as of the date, memoized per
// TTL window.
func (s *RateService) snapshot(ctx context.Context, asOf time.Time) ([]*domain.Rate, error) {
	key := fmt.Sprintf("rates:%d", s.cache.Bucket(asOf))

	if v, ok := s.cache.Get(key); ok {
		return v.([]*domain.Rate), nil
	}

	edges, err := s.rateRepo.ListAsOf(ctx, asOf)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, edges)

	return edges, nil
}

// Convert translates an amount between assets as of the date, rounding to
// the destination asset's precision.
func (s *RateService) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	rate, err := s.Rate(ctx, from, to, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	asset, err := s.assetRepo.GetByCode(ctx, to)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Mul(rate).Round(asset.Precision), nil
}
