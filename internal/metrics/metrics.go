// Package metrics exposes Prometheus collectors for the prober.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	probesTotal                *prometheus.CounterVec
	proxyRequestsTotal         *prometheus.CounterVec
	probeDurationSeconds       *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge
	pausesTotal                *prometheus.CounterVec
	pauseSeconds               *prometheus.HistogramVec
	discoveriesTotal           *prometheus.CounterVec
	notificationsTotal         *prometheus.CounterVec
	drainsTotal                *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		probesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prober_probes_total",
				Help: "Total number of ids checked, labeled by target and verdict.",
			},
			[]string{"target", "verdict"},
		)

		proxyRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prober_proxy_requests_total",
				Help: "Total number of probes sent through each proxy host.",
			},
			[]string{"proxy"},
		)

		probeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prober_probe_duration_seconds",
				Help:    "Histogram of HEAD probe latencies, labeled by target.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"target"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "prober_active_workers",
				Help: "Number of workers currently probing a chunk.",
			},
		)

		pausesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prober_rate_limit_pauses_total",
				Help: "Total number of 429 responses that paused a target.",
			},
			[]string{"target"},
		)

		pauseSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prober_rate_limit_pause_seconds",
				Help:    "Histogram of time workers spent waiting on the pause gate.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"target"},
		)

		discoveriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prober_discoveries_total",
				Help: "Total number of discoveries handled by the dispatcher, labeled by outcome.",
			},
			[]string{"target", "outcome"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prober_notifications_total",
				Help: "Total number of notification attempts, labeled by result.",
			},
			[]string{"target", "result"},
		)

		drainsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prober_queue_drains_total",
				Help: "Total number of queue drains, labeled by trigger.",
			},
			[]string{"trigger"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeHost extracts a lowercase hostname from a URL, dropping any
// credentials. It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
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

// ObserveProbe records one classified probe.
func ObserveProbe(target, verdict string, duration time.Duration) {
	probesTotal.WithLabelValues(target, verdict).Inc()
	if duration > 0 {
		probeDurationSeconds.WithLabelValues(target).Observe(duration.Seconds())
	}
}

// ObserveProxy counts a probe routed through proxyURL. Empty means direct.
func ObserveProxy(proxyURL string) {
	if proxyURL == "" {
		return
	}
	proxyRequestsTotal.WithLabelValues(SanitizeHost(proxyURL)).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}

// ObservePause counts a 429 that tripped the pause gate.
func ObservePause(target string) {
	pausesTotal.WithLabelValues(target).Inc()
}

// ObservePauseWait records how long a worker waited on the pause gate.
func ObservePauseWait(target string, duration time.Duration) {
	pauseSeconds.WithLabelValues(target).Observe(duration.Seconds())
}

// ObserveDiscovery records what the dispatcher did with a discovery:
// "persisted", "duplicate" or "store_failed".
func ObserveDiscovery(target, outcome string) {
	discoveriesTotal.WithLabelValues(target, outcome).Inc()
}

// ObserveNotification records a notification attempt.
func ObserveNotification(target string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	notificationsTotal.WithLabelValues(target, result).Inc()
}

// ObserveDrain counts a queue drain.
func ObserveDrain(trigger string) {
	drainsTotal.WithLabelValues(trigger).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
