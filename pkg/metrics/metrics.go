// Package metrics exposes Prometheus instrumentation for the SDK and the dev backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/stitch/pkg/httpx"
)

// Collector records client-side auth activity. It satisfies stitchauth.Metrics.
type Collector struct {
	logins          *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	retries         prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stitch_client_logins_total",
			Help: "Login and link attempts by provider type and result.",
		}, []string{"provider", "result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stitch_client_refreshes_total",
			Help: "Access token refreshes by result.",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stitch_client_request_retries_total",
			Help: "Authenticated requests retried after an invalid session.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stitch_client_request_duration_seconds",
			Help:    "Round trip time of requests to the Stitch server.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		c.logins,
		c.refreshes,
		c.retries,
		c.requestDuration,
	)

	return c
}

// RecordLogin counts a login or link attempt.
func (c *Collector) RecordLogin(providerType string, success bool) {
	c.logins.WithLabelValues(providerType, result(success)).Inc()
}

// RecordRefresh counts an access token refresh.
func (c *Collector) RecordRefresh(success bool) {
	c.refreshes.WithLabelValues(result(success)).Inc()
}

// RecordRetry counts a request replayed after refreshing.
func (c *Collector) RecordRetry() {
	c.retries.Inc()
}

// RecordRequest observes one HTTP round trip. A status of 0 means the
// request never got a response.
func (c *Collector) RecordRequest(method string, status int, d time.Duration) {
	c.requestDuration.WithLabelValues(method, statusLabel(status)).Observe(d.Seconds())
}

// HTTPMiddleware counts and times server requests. Requests are labelled
// with the matched ServeMux pattern so path parameters do not explode the
// label set.
func HTTPMiddleware(reg prometheus.Registerer) httpx.Middleware {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stitchd_http_requests_total",
		Help: "HTTP requests handled, by method, route and status.",
	}, []string{"method", "route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stitchd_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, latency)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			requests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter

	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
