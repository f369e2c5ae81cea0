package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/iota-uz/iota-crm/pkg/composables"
	"github.com/iota-uz/iota-crm/pkg/httpapi"
)

const rateLimitPrefix = "iota-crm:ratelimit"

type RateLimitConfig struct {
	RequestsPerPeriod int
	Rate              limiter.Rate
	Store             limiter.Store
	KeyFunc           func(r *http.Request) string
}

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	return sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{Prefix: rateLimitPrefix})
}

// RateLimit applies a per-second budget keyed by tenant, or by client IP for anonymous callers.
func RateLimit(cfg RateLimitConfig) mux.MiddlewareFunc {
	rate := cfg.Rate
	if rate.Period == 0 {
		rate = limiter.Rate{Period: time.Second, Limit: int64(cfg.RequestsPerPeriod)}
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = rateLimitKey
	}
	instance := limiter.New(cfg.Store, rate)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rate.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			lctx, err := instance.Get(r.Context(), keyFunc(r))
			if err != nil {
				if logger, lerr := composables.TryUseLogger(r.Context()); lerr == nil {
					logger.WithError(err).Warn("rate limiter unavailable, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
			if lctx.Reached {
				_ = httpapi.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if tenantID, err := composables.UseTenantID(r.Context()); err == nil {
		return "tenant:" + tenantID.String()
	}
	if ip, ok := composables.UseIP(r.Context()); ok && ip != "" {
		return "ip:" + ip
	}
	return "ip:" + r.RemoteAddr
}
