package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/iota-crm/pkg/composables"
)

func newTestLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

func TestWithLogger_RecoversPanicAsJSON(t *testing.T) {
	var buf bytes.Buffer
	r := mux.NewRouter()
	r.Use(WithLogger(newTestLogger(&buf), DefaultLoggerOptions()))
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"success":false`)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	require.Contains(t, buf.String(), "panic recovered in request handler")
}

func TestWithLogger_ReplaysBodyAndProvidesLogger(t *testing.T) {
	var buf bytes.Buffer
	r := mux.NewRouter()
	r.Use(WithLogger(newTestLogger(&buf), DefaultLoggerOptions()))

	var gotBody string
	var hasLogger bool
	r.HandleFunc("/import", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		_, err := composables.TryUseLogger(req.Context())
		hasLogger = err == nil
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	body := `[{"nombre":"Acme"}]`
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, body, gotBody)
	require.True(t, hasLogger)
	require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	require.Contains(t, buf.String(), "request completed")
}

func TestFormatHeaders_RedactsAuthorization(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Content-Type", "application/json")

	out := formatHeaders(h)
	require.Equal(t, "[redacted]", out["Authorization"])
	require.Equal(t, "application/json", out["Content-Type"])
}

type countingReader struct {
	remaining int
	read      int
}

func (c *countingReader) Read(p []byte) (int, error) {
	if c.remaining == 0 {
		return 0, io.EOF
	}
	n := len(p)
	if n > c.remaining {
		n = c.remaining
	}
	for i := range p[:n] {
		p[i] = ' '
	}
	c.remaining -= n
	c.read += n
	return n, nil
}

func TestWithLogger_BuffersOnlyBodyPrefixBeforeAuth(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultLoggerOptions()
	r := mux.NewRouter()
	r.Use(WithLogger(newTestLogger(&buf), opts), Authorize("Authorization", nil), RequireAuthenticated())
	r.HandleFunc("/crm/api/clients/import", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	body := &countingReader{remaining: 8 << 20}
	req := httptest.NewRequest(http.MethodPost, "/crm/api/clients/import", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.LessOrEqual(t, body.read, opts.MaxBodyLength+1)
}

func TestWithLogger_ReplaysBodyLongerThanPrefix(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultLoggerOptions()
	opts.MaxBodyLength = 8
	r := mux.NewRouter()
	r.Use(WithLogger(newTestLogger(&buf), opts))

	var gotBody string
	r.HandleFunc("/import", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	body := `[{"nombre":"Acme","email":"a@acme.test"}]`
	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, body, gotBody)
}

func TestWithLogger_RequestBodyOnlyAtDebug(t *testing.T) {
	body := `[{"nombre":"Acme","nif":"B123"}]`
	serve := func(level logrus.Level) string {
		var buf bytes.Buffer
		logger := newTestLogger(&buf)
		logger.SetLevel(level)
		r := mux.NewRouter()
		r.Use(WithLogger(logger, DefaultLoggerOptions()))
		r.HandleFunc("/import", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}).Methods(http.MethodPost)

		req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(httptest.NewRecorder(), req)
		return buf.String()
	}

	info := serve(logrus.InfoLevel)
	require.NotContains(t, info, "B123")
	require.Contains(t, info, "request-body received")

	require.Contains(t, serve(logrus.DebugLevel), "B123")
}
