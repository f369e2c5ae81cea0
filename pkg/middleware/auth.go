package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/iota-crm/pkg/composables"
	"github.com/iota-uz/iota-crm/pkg/httpapi"
)

// Authorize resolves the caller's tenant from an API token. Requests without a valid token pass
// through unauthenticated; RequireAuthenticated decides what to reject.
func Authorize(header string, tokens map[string]uuid.UUID) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get(header))
			tenantID, ok := lookupToken(tokens, token)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := composables.WithTenantID(r.Context(), tenantID)
			params, found := composables.UseParams(ctx)
			if !found {
				params = &composables.Params{Request: r, Writer: w}
			} else {
				cp := *params
				params = &cp
			}
			params.Authenticated = true
			ctx = composables.WithParams(ctx, params)
			if logger, err := composables.TryUseLogger(ctx); err == nil {
				ctx = composables.WithLogger(ctx, logger.WithField("tenant-id", tenantID.String()))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects unauthenticated requests with 401.
func RequireAuthenticated() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !composables.UseAuthenticated(r.Context()) {
				_ = httpapi.WriteJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "No autorizado",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}

func lookupToken(tokens map[string]uuid.UUID, token string) (uuid.UUID, bool) {
	if token == "" {
		return uuid.Nil, false
	}
	for candidate, tenantID := range tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return tenantID, true
		}
	}
	return uuid.Nil, false
}
