// Package metrics exposes the Prometheus counters and histograms served on
// /metrics. Collectors are registered at package init via promauto, and the
// Record* helpers are the only thing the rest of the codebase calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	MatchCompletionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_completions_total",
			Help: "Total number of matches that reached a completed state",
		},
	)

	PrizeDistributionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prize_distribution_total",
			Help: "Total number of prize distribution attempts by outcome",
		},
		[]string{"outcome"}, // success, failure, retry
	)

	BracketGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bracket_generation_duration_seconds",
			Help:    "Time taken to generate a tournament's initial bracket set",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"format"},
	)
)

// Handler serves the registered collectors for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency for every request that isn't
// itself a scrape of /metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, routePattern(r), status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern(r)).Observe(duration)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// routePattern prefers chi's matched route pattern so path parameters don't
// blow up cardinality; it falls back to the raw path when chi hasn't set one.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// RecordMatchCompleted increments the match-completion counter. Called once
// per match from the single chokepoint that transitions a match to
// completed, regardless of whether that happened via normal confirmation,
// dispute resolution, or admin override.
func RecordMatchCompleted() {
	MatchCompletionsTotal.Inc()
}

// RecordPrizeDistributionOutcome records a distribution attempt's outcome:
// "success", "failure", or "retry".
func RecordPrizeDistributionOutcome(outcome string) {
	PrizeDistributionTotal.WithLabelValues(outcome).Inc()
}

// RecordBracketGenerationDuration records how long it took to generate a
// tournament's initial bracket set, labeled by format.
func RecordBracketGenerationDuration(format string, d time.Duration) {
	BracketGenerationDuration.WithLabelValues(format).Observe(d.Seconds())
}
