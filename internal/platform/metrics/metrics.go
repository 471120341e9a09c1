// Package metrics exposes the prometheus collectors for sync runs and the HTTP surface
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalogsync"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sync runs by outcome (ok, failed, lock_denied).",
		},
		[]string{"outcome"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs that acquired the lock.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"outcome"},
	)
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records seen per pipeline stage (fetched, changed, updated, hashed, skipped).",
		},
		[]string{"stage"},
	)
	pagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Remote pages fetched by result (ok, failed).",
		},
		[]string{"result"},
	)
	fetchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Page fetch attempts beyond the first.",
		},
	)
	lastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished ok.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "endpoint", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		runsTotal, runDuration, recordsTotal, pagesTotal, fetchRetries, lastSuccess,
		httpRequestsTotal, httpRequestDuration,
	)
}

// RecordRun counts a finished run; lock_denied runs carry no duration
func RecordRun(outcome string, d time.Duration, finishedAt time.Time) {
	runsTotal.WithLabelValues(outcome).Inc()
	if outcome == "lock_denied" {
		return
	}
	runDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == "ok" {
		lastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// AddRecords adds n to a stage counter; zero is ignored
func AddRecords(stage string, n int) {
	if n > 0 {
		recordsTotal.WithLabelValues(stage).Add(float64(n))
	}
}

// AddPages adds ok and failed page counts
func AddPages(ok, failed int) {
	if ok > 0 {
		pagesTotal.WithLabelValues("ok").Add(float64(ok))
	}
	if failed > 0 {
		pagesTotal.WithLabelValues("failed").Add(float64(failed))
	}
}

// IncFetchRetry counts one retried page attempt
func IncFetchRetry() { fetchRetries.Inc() }

// RecordRequest records one HTTP request
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// classifyStatus buckets a status code into its class
func classifyStatus(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// Handler serves the default registry
func Handler() http.Handler { return promhttp.Handler() }

// Middleware records every request under its chi route pattern so path
// parameters do not explode label cardinality
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
