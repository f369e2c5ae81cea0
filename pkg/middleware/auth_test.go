package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/iota-crm/pkg/composables"
)

func authRouter(tokens map[string]uuid.UUID, seen *uuid.UUID) *mux.Router {
	r := mux.NewRouter()
	r.Use(Authorize("Authorization", tokens), RequireAuthenticated())
	r.HandleFunc("/crm/api/clients/import", func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := composables.UseTenantID(r.Context())
		if err == nil {
			*seen = tenantID
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestRequireAuthenticated_RejectsMissingToken(t *testing.T) {
	var seen uuid.UUID
	r := authRouter(map[string]uuid.UUID{"secret": uuid.New()}, &seen)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/crm/api/clients/import", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"No autorizado"}`, rec.Body.String())
	require.Equal(t, uuid.Nil, seen)
}

func TestRequireAuthenticated_RejectsUnknownToken(t *testing.T) {
	var seen uuid.UUID
	r := authRouter(map[string]uuid.UUID{"secret": uuid.New()}, &seen)

	req := httptest.NewRequest(http.MethodPost, "/crm/api/clients/import", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorize_BearerTokenResolvesTenant(t *testing.T) {
	tenant := uuid.New()
	var seen uuid.UUID
	r := authRouter(map[string]uuid.UUID{"secret": tenant}, &seen)

	req := httptest.NewRequest(http.MethodPost, "/crm/api/clients/import", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, tenant, seen)
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", bearerToken("Bearer abc"))
	require.Equal(t, "abc", bearerToken("bearer  abc "))
	require.Equal(t, "abc", bearerToken("abc"))
	require.Equal(t, "", bearerToken(""))
}
