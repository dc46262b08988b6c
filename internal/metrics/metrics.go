// Package metrics exposes Prometheus collectors for the crawler service.
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
	crawlerSessionsStartedTotal  prometheus.Counter
	crawlerSessionsFinishedTotal *prometheus.CounterVec
	crawlerActiveSessions        prometheus.Gauge
	crawlerActiveFetchTasks      prometheus.Gauge
	crawlerPagesTotal            *prometheus.CounterVec
	crawlerBytesTotal            *prometheus.CounterVec
	crawlerVisitDecisionsTotal   *prometheus.CounterVec
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerSessionsStartedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_sessions_started_total",
				Help: "Total number of crawl sessions started.",
			},
		)

		crawlerSessionsFinishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_sessions_finished_total",
				Help: "Total number of crawl sessions finished, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlerActiveSessions = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_sessions",
				Help: "Number of crawl sessions currently running.",
			},
		)

		crawlerActiveFetchTasks = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_fetch_tasks",
				Help: "Number of fetch tasks currently in flight.",
			},
		)

		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of page downloads, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		crawlerVisitDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_visit_decisions_total",
				Help: "Total number of discovered URLs evaluated, labeled by decision.",
			},
			[]string{"decision"},
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
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
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

// ObserveSessionStarted counts a new session and bumps the active gauge.
func ObserveSessionStarted() {
	Init()
	crawlerSessionsStartedTotal.Inc()
	crawlerActiveSessions.Inc()
}

// ObserveSessionFinished counts a finished session by reason and drops the
// active gauge.
func ObserveSessionFinished(reason string) {
	Init()
	crawlerSessionsFinishedTotal.WithLabelValues(reason).Inc()
	crawlerActiveSessions.Dec()
}

// IncActiveFetchTasks increments the in-flight fetch task gauge.
func IncActiveFetchTasks() {
	Init()
	crawlerActiveFetchTasks.Inc()
}

// DecActiveFetchTasks decrements the in-flight fetch task gauge.
func DecActiveFetchTasks() {
	Init()
	crawlerActiveFetchTasks.Dec()
}

// ObservePage records a download outcome for site.
func ObservePage(site string, outcome string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	crawlerPagesTotal.WithLabelValues(sanitizedSite, outcome).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveVisitDecision records how a discovered URL was handled.
func ObserveVisitDecision(decision string) {
	Init()
	crawlerVisitDecisionsTotal.WithLabelValues(decision).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
