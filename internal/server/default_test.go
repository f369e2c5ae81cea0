package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/iota-crm/modules/crm"
	"github.com/iota-uz/iota-crm/pkg/application"
	"github.com/iota-uz/iota-crm/pkg/configuration"
	"github.com/iota-uz/iota-crm/pkg/eventbus"
	"github.com/iota-uz/iota-crm/pkg/logging"
	"github.com/iota-uz/iota-crm/pkg/middleware"
)

func newTestHandler(t *testing.T, conf *configuration.Configuration) http.Handler {
	t.Helper()
	logger := logging.Discard()
	app := application.New(&application.ApplicationOptions{
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	require.NoError(t, crm.NewModule(nil).Register(app))

	srv, err := Default(&DefaultOptions{
		Logger:         logger,
		Configuration:  conf,
		Application:    app,
		RateLimitStore: middleware.NewMemoryStore(),
	})
	require.NoError(t, err)
	return srv.Router()
}

func testConfiguration() *configuration.Configuration {
	conf := &configuration.Configuration{
		Origin:          "http://localhost:3200",
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
	}
	conf.Auth.TokenHeader = "Authorization"
	return conf
}

func TestDefault_UnknownRouteIsJSON404(t *testing.T) {
	h := newTestHandler(t, testConfiguration())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Recurso no encontrado"}`, rec.Body.String())
}

func TestDefault_ImportRequiresToken(t *testing.T) {
	h := newTestHandler(t, testConfiguration())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/crm/api/suppliers/import", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDefault_RateLimit(t *testing.T) {
	conf := testConfiguration()
	conf.RateLimit.Enabled = true
	conf.RateLimit.GlobalRPS = 1
	h := newTestHandler(t, conf)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/crm/api/clients/import/last", nil))
	require.Equal(t, http.StatusUnauthorized, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/crm/api/clients/import/last", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}
