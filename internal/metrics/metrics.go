// Package metrics exposes Prometheus collectors for the tracker service.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	trackerCyclesTotal        *prometheus.CounterVec
	trackerFetchAttemptsTotal *prometheus.CounterVec
	trackerChangesTotal       *prometheus.CounterVec
	trackerAlertsTotal        *prometheus.CounterVec
	trackerCycleSeconds       *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		trackerCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_cycles_total",
				Help: "Total number of tracking cycles, labeled by target site and outcome.",
			},
			[]string{"site", "status"},
		)

		trackerFetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_fetch_attempts_total",
				Help: "Total number of HTTP fetch attempts, labeled by target site.",
			},
			[]string{"site"},
		)

		trackerChangesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_changes_total",
				Help: "Total number of detected page changes, labeled by target site.",
			},
			[]string{"site"},
		)

		trackerAlertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_alerts_total",
				Help: "Total number of alert notifications sent, labeled by target site.",
			},
			[]string{"site"},
		)

		trackerCycleSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracker_cycle_duration_seconds",
				Help:    "Histogram of end-to-end cycle latencies, labeled by target site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycle records the outcome and duration of a tracking cycle.
func ObserveCycle(site, status string, duration time.Duration) {
	Init()
	s := SanitizeSite(site)
	trackerCyclesTotal.WithLabelValues(s, status).Inc()
	trackerCycleSeconds.WithLabelValues(s).Observe(duration.Seconds())
}

// ObserveFetchAttempt counts one HTTP attempt against a target.
func ObserveFetchAttempt(site string) {
	Init()
	trackerFetchAttemptsTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// ObserveChange counts a detected change for a target.
func ObserveChange(site string) {
	Init()
	trackerChangesTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// ObserveAlert counts a delivered alert for a target.
func ObserveAlert(site string) {
	Init()
	trackerAlertsTotal.WithLabelValues(SanitizeSite(site)).Inc()
}
