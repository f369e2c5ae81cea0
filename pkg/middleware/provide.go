package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iota-uz/iota-crm/pkg/composables"
	"github.com/iota-uz/iota-crm/pkg/constants"
	"github.com/iota-uz/iota-crm/pkg/repo"
)

// Provide stores value under key for every request.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, value)))
		})
	}
}

// WithPool makes the database pool available to repositories and sets the RLS mode.
func WithPool(pool repo.Pool, enforceRLS bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithPool(r.Context(), pool)
			ctx = composables.WithRLSEnforced(ctx, enforceRLS)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithStart(ctx context.Context, start time.Time) context.Context {
	return context.WithValue(ctx, constants.RequestStart, start)
}
