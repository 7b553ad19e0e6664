package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/stitch/pkg/metrics"
	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

var _ stitchauth.Metrics = (*metrics.Collector)(nil)

// find returns the metric in family name whose labels include all of want.
func find(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			return m
		}
	}
	t.Fatalf("metric %s %v not found", name, want)
	return nil
}

func TestCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordLogin("anon-user", true)
	c.RecordLogin("anon-user", true)
	c.RecordLogin("local-userpass", false)
	c.RecordRefresh(true)
	c.RecordRefresh(false)
	c.RecordRetry()
	c.RecordRequest(http.MethodGet, 200, 20*time.Millisecond)
	c.RecordRequest(http.MethodGet, 0, time.Second)

	t.Run("logins", func(t *testing.T) {
		m := find(t, reg, "stitch_client_logins_total", map[string]string{"provider": "anon-user", "result": "success"})
		require.Equal(t, 2.0, m.GetCounter().GetValue())

		m = find(t, reg, "stitch_client_logins_total", map[string]string{"provider": "local-userpass", "result": "failure"})
		require.Equal(t, 1.0, m.GetCounter().GetValue())
	})

	t.Run("refreshes", func(t *testing.T) {
		m := find(t, reg, "stitch_client_refreshes_total", map[string]string{"result": "failure"})
		require.Equal(t, 1.0, m.GetCounter().GetValue())
	})

	t.Run("retries", func(t *testing.T) {
		m := find(t, reg, "stitch_client_request_retries_total", nil)
		require.Equal(t, 1.0, m.GetCounter().GetValue())
	})

	t.Run("requests", func(t *testing.T) {
		m := find(t, reg, "stitch_client_request_duration_seconds", map[string]string{"method": "GET", "status": "200"})
		require.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())

		m = find(t, reg, "stitch_client_request_duration_seconds", map[string]string{"status": "error"})
		require.InDelta(t, 1.0, m.GetHistogram().GetSampleSum(), 0.001)
	})
}

func TestHTTPMiddleware(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := metrics.HTTPMiddleware(reg)(mux)

	for _, path := range []string{"/users/1", "/users/2", "/nope"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	m := find(t, reg, "stitchd_http_requests_total", map[string]string{"route": "GET /users/{id}", "status": "418"})
	require.Equal(t, 2.0, m.GetCounter().GetValue())

	m = find(t, reg, "stitchd_http_requests_total", map[string]string{"route": "unmatched", "status": "404"})
	require.Equal(t, 1.0, m.GetCounter().GetValue())

	m = find(t, reg, "stitchd_http_request_duration_seconds", map[string]string{"route": "GET /users/{id}"})
	require.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg).RecordRetry()

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	res := rec.Result()
	require.Equal(t, http.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "stitch_client_request_retries_total 1")
}
