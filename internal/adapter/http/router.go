package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fxledger/fxledger/internal/adapter/http/handler"
	"github.com/fxledger/fxledger/internal/adapter/http/middleware"
	"github.com/fxledger/fxledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AssetHandler     *handler.AssetHandler
	RateHandler      *handler.RateHandler
	AccountHandler   *handler.AccountHandler
	PostingHandler   *handler.PostingHandler
	HealthHandler    *handler.HealthHandler
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recovery)

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and telemetry endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Assets
		r.Route("/assets", func(r chi.Router) {
			r.Post("/", cfg.AssetHandler.Create)
			r.Get("/", cfg.AssetHandler.List)
			r.Get("/{code}", cfg.AssetHandler.Get)
			r.Patch("/{code}", cfg.AssetHandler.Update)
			r.Delete("/{code}", cfg.AssetHandler.Delete)
		})

		// Exchange rates
		r.Route("/rates", func(r chi.Router) {
			r.Post("/", cfg.RateHandler.Set)
			r.Get("/{from}/{to}", cfg.RateHandler.Get)
			r.Get("/{from}/{to}/history", cfg.RateHandler.List)
			r.Delete("/{from}/{to}", cfg.RateHandler.Delete)
		})

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{code}", cfg.AccountHandler.Get)
			r.Patch("/{code}", cfg.AccountHandler.Update)
			r.Delete("/{code}", cfg.AccountHandler.Delete)
			r.Get("/{code}/balance", cfg.AccountHandler.Balance)
			r.Get("/{code}/balance/range", cfg.AccountHandler.BalanceRange)
			r.Get("/{code}/statement", cfg.AccountHandler.Statement)
			r.Get("/{code}/statement/summary", cfg.AccountHandler.StatementSummary)
		})

		// Aggregated balances
		r.Get("/summary", cfg.AccountHandler.Summary)

		// Postings
		r.Route("/postings", func(r chi.Router) {
			r.Post("/", cfg.PostingHandler.Create)
			r.Post("/complete", cfg.PostingHandler.Complete)
			r.Post("/copy", cfg.PostingHandler.Copy)
			r.Post("/delete", cfg.PostingHandler.DeleteBatch)
			r.Post("/purge", cfg.PostingHandler.Purge)
			r.Get("/{id}", cfg.PostingHandler.Get)
			r.Get("/{id}/chain", cfg.PostingHandler.GetChain)
			r.Patch("/{id}", cfg.PostingHandler.Update)
			r.Delete("/{id}", cfg.PostingHandler.Delete)
		})

		// Double-entry movements
		r.Post("/moves", cfg.PostingHandler.Move)
	})

	return r
}
