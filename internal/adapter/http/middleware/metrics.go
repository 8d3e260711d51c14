package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Metrics middleware records HTTP metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Route segments whose following path element is an identifier.
// /api/v1/accounts/SAVINGS.EUR/balance -> /api/v1/accounts/:id/balance
var identifierParents = map[string]bool{
	"accounts": true,
	"assets":   true,
	"postings": true,
}

// Collection-level verbs that are not identifiers.
var routeVerbs = map[string]bool{
	"complete": true,
	"copy":     true,
	"delete":   true,
	"purge":    true,
	"summary":  true,
}

// normalizePath replaces path identifiers with placeholders to bound
// label cardinality.
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i := 1; i < len(segments); i++ {
		prev := segments[i-1]
		switch {
		case identifierParents[prev] && segments[i] != "" && !routeVerbs[segments[i]]:
			segments[i] = ":id"
		case prev == "rates" && segments[i] != "":
			// rate routes carry the asset pair as two path elements
			segments[i] = ":from"
			if i+1 < len(segments) && segments[i+1] != "" {
				segments[i+1] = ":to"
			}
			return strings.Join(segments, "/")
		}
	}

	return strings.Join(segments, "/")
}
