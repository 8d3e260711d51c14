package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rate lookup sources.
const (
	RateSourceCache   = "cache"
	RateSourceDirect  = "direct"
	RateSourceReverse = "reverse"
	RateSourceCross   = "cross"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and
// records nothing, which keeps unit tests free of registry setup.
type Metrics struct {
	// Posting metrics
	PostingsCreated   prometheus.Counter
	PostingsCompleted prometheus.Counter
	PostingsDeleted   prometheus.Counter
	PostingsCopied    prometheus.Counter
	PostingsPurged    prometheus.Counter
	MoveDuration      prometheus.Histogram
	MoveRejections    *prometheus.CounterVec

	// Rate metrics
	RateLookups *prometheus.CounterVec

	// Lock metrics
	LockWaitDuration prometheus.Histogram

	// Account metrics
	AccountsCreated prometheus.Counter
	AccountsDeleted prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		PostingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_postings_created_total",
			Help: "Total number of postings created",
		}),
		PostingsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_postings_completed_total",
			Help: "Total number of postings completed",
		}),
		PostingsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_postings_deleted_total",
			Help: "Total number of postings soft-deleted",
		}),
		PostingsCopied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_postings_copied_total",
			Help: "Total number of postings copied",
		}),
		PostingsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_postings_purged_total",
			Help: "Total number of postings permanently purged",
		}),
		MoveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxledger_move_duration_seconds",
			Help:    "Duration of move operations, lock wait included",
			Buckets: prometheus.DefBuckets,
		}),
		MoveRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_move_rejections_total",
				Help: "Moves rejected by balance integrity checks",
			},
			[]string{"reason"},
		),
		RateLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxledger_rate_lookups_total",
				Help: "Rate resolutions by source",
			},
			[]string{"source"},
		),
		LockWaitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fxledger_lock_wait_seconds",
			Help:    "Time spent waiting for account locks",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		}),
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fxledger_accounts_deleted_total",
			Help: "Total number of accounts deleted",
		}),
	}
}

// RateLookup records one rate resolution.
func (m *Metrics) RateLookup(source string) {
	if m == nil {
		return
	}
	m.RateLookups.WithLabelValues(source).Inc()
}

// PostingCreated records one created posting.
func (m *Metrics) PostingCreated() {
	if m == nil {
		return
	}
	m.PostingsCreated.Inc()
}

// PostingCompleted records one completed posting.
func (m *Metrics) PostingCompleted() {
	if m == nil {
		return
	}
	m.PostingsCompleted.Inc()
}

// PostingDeleted records n soft-deleted postings.
func (m *Metrics) PostingDeleted(n int64) {
	if m == nil {
		return
	}
	m.PostingsDeleted.Add(float64(n))
}

// PostingCopied records one copied posting.
func (m *Metrics) PostingCopied() {
	if m == nil {
		return
	}
	m.PostingsCopied.Inc()
}

// PostingPurged records n purged postings.
func (m *Metrics) PostingPurged(n int64) {
	if m == nil {
		return
	}
	m.PostingsPurged.Add(float64(n))
}

// MoveObserved records one finished move.
func (m *Metrics) MoveObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.MoveDuration.Observe(d.Seconds())
}

// MoveRejected records one integrity rejection.
func (m *Metrics) MoveRejected(reason string) {
	if m == nil {
		return
	}
	m.MoveRejections.WithLabelValues(reason).Inc()
}

// LockWait records one lock acquisition wait.
func (m *Metrics) LockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWaitDuration.Observe(d.Seconds())
}

// AccountCreated records one created account.
func (m *Metrics) AccountCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

// AccountDeleted records one deleted account.
func (m *Metrics) AccountDeleted() {
	if m == nil {
		return
	}
	m.AccountsDeleted.Inc()
}
