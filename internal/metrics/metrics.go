// Package metrics exposes Prometheus collectors for the scrape scheduler.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeOutcomesTotal     *prometheus.CounterVec
	scrapeRetriesTotal      prometheus.Counter
	scrapeInFlightWorkers   prometheus.Gauge
	rateLimitDelaySeconds   *prometheus.HistogramVec
	frontierQueuedGauge     prometheus.Gauge
	scrapeDurationHistogram *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	once.Do(func() {
		scrapeOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_outcomes_total",
				Help: "Terminal outcomes, labeled by domain and result.",
			},
			[]string{"domain", "result"},
		)
		scrapeRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_retries_total",
				Help: "Fetch attempts beyond the first.",
			},
		)
		scrapeInFlightWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_in_flight_workers",
				Help: "Tasks currently occupying a worker slot.",
			},
		)
		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delay_seconds",
				Help:    "Admission-control wait durations.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
		frontierQueuedGauge = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_frontier_pending",
				Help: "URLs waiting in the frontier.",
			},
		)
		scrapeDurationHistogram = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_page_duration_seconds",
				Help:    "Wall time per terminal outcome, labeled by result.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"result"},
		)
	})
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveOutcome records a terminal outcome for a domain.
func ObserveOutcome(domain string, success bool, duration time.Duration) {
	if scrapeOutcomesTotal == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	scrapeOutcomesTotal.WithLabelValues(domain, result).Inc()
	if duration > 0 {
		scrapeDurationHistogram.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveRetry counts one retried fetch attempt.
func ObserveRetry() {
	if scrapeRetriesTotal != nil {
		scrapeRetriesTotal.Inc()
	}
}

// ObserveRateLimitDelay records an admission-control wait.
func ObserveRateLimitDelay(domain string, delay time.Duration) {
	if rateLimitDelaySeconds != nil {
		rateLimitDelaySeconds.WithLabelValues(domain).Observe(delay.Seconds())
	}
}

// IncInFlight and DecInFlight track occupied worker slots.
func IncInFlight() {
	if scrapeInFlightWorkers != nil {
		scrapeInFlightWorkers.Inc()
	}
}

// DecInFlight decrements the in-flight worker gauge.
func DecInFlight() {
	if scrapeInFlightWorkers != nil {
		scrapeInFlightWorkers.Dec()
	}
}

// SetFrontierPending reports the current frontier queue depth.
func SetFrontierPending(n int) {
	if frontierQueuedGauge != nil {
		frontierQueuedGauge.Set(float64(n))
	}
}
