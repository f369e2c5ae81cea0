package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthController(t *testing.T) {
	cases := []struct {
		name   string
		checks map[string]Pinger
		status int
		body   string
	}{
		{
			name:   "healthy",
			checks: map[string]Pinger{"db": pingerFunc(func(context.Context) error { return nil })},
			status: http.StatusOK,
			body:   `{"status":"ok","checks":{"db":"ok"}}`,
		},
		{
			name:   "db down",
			checks: map[string]Pinger{"db": pingerFunc(func(context.Context) error { return errors.New("refused") })},
			status: http.StatusServiceUnavailable,
			body:   `{"status":"degraded","checks":{"db":"refused"}}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := mux.NewRouter()
			NewHealthController(tc.checks).Register(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tc.status, rec.Code)
			require.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestPrometheusController_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "crm_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	r := mux.NewRouter()
	NewPrometheusControllerWithGatherer("", reg).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "crm_test_total 1")
}
