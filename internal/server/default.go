package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/iota-crm/pkg/application"
	"github.com/iota-uz/iota-crm/pkg/configuration"
	"github.com/iota-uz/iota-crm/pkg/httpapi"
	"github.com/iota-uz/iota-crm/pkg/middleware"
	"github.com/iota-uz/iota-crm/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
	// RateLimitStore overrides the store picked from configuration.
	RateLimitStore limiter.Store
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	// Request logging opens the root span, everything below is traced inside it.
	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),
	}
	if options.Pool != nil {
		middlewares = append(middlewares,
			middleware.TracedMiddleware("database"),
			middleware.WithPool(options.Pool, conf.RLSEnforced()),
		)
	}
	middlewares = append(middlewares,
		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.Origin),

		middleware.TracedMiddleware("authorize"),
		middleware.Authorize(conf.Auth.TokenHeader, conf.Auth.Tokens()),
	)

	if conf.RateLimit.Enabled {
		store := options.RateLimitStore
		if store == nil {
			store = rateLimitStore(conf, options.Logger)
		}
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
			}),
		)
	}

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app, http.HandlerFunc(notFound), http.HandlerFunc(methodNotAllowed)), nil
}

func rateLimitStore(conf *configuration.Configuration, logger *logrus.Logger) limiter.Store {
	if conf.RateLimit.Storage != "redis" {
		return middleware.NewMemoryStore()
	}
	store, err := middleware.NewRedisStore(conf.RateLimit.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
		return middleware.NewMemoryStore()
	}
	return store
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	_ = httpapi.WriteMessage(w, http.StatusNotFound, "Recurso no encontrado")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	_ = httpapi.WriteMessage(w, http.StatusMethodNotAllowed, "Método no permitido")
}
