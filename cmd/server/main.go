package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/iota-uz/iota-crm/internal/server"
	"github.com/iota-uz/iota-crm/modules"
	"github.com/iota-uz/iota-crm/modules/crm"
	"github.com/iota-uz/iota-crm/modules/crm/services"
	"github.com/iota-uz/iota-crm/pkg/application"
	"github.com/iota-uz/iota-crm/pkg/configuration"
	"github.com/iota-uz/iota-crm/pkg/eventbus"
	"github.com/iota-uz/iota-crm/pkg/logging"
	"github.com/iota-uz/iota-crm/pkg/metrics"
	"github.com/iota-uz/iota-crm/pkg/middleware"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	rdb := redis.NewClient(redisOptions(conf.RedisURL))
	defer rdb.Close()

	importConfig, err := services.NewImportConfig(conf.Import, importLimiterStore(conf, rdb, logger))
	if err != nil {
		log.Fatalf("failed to configure imports: %v", err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	crmOptions := &crm.ModuleOptions{
		Import:        importConfig,
		Redis:         rdb,
		ReportTTL:     conf.Import.ReportTTL,
		MaxUploadSize: conf.Import.MaxUploadSize,
		Logger:        logger,
	}
	if err := modules.Load(app, modules.BuiltInModules(crmOptions)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.Migrations().Run(ctx); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	app.RegisterControllers(metrics.NewHealthController(map[string]metrics.Pinger{
		"postgres": pool,
		"redis":    redisPinger{rdb},
	}))
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), conf.Import.Timeout+5*time.Second)
		defer shutdownCancel()
		if err := serverInstance.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	configuration.Use().Unload()
}

func redisOptions(url string) *redis.Options {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return &redis.Options{Addr: url}
	}
	return opts
}

// importLimiterStore shares the write budget across replicas through redis.
func importLimiterStore(conf *configuration.Configuration, rdb *redis.Client, logger *logrus.Logger) limiter.Store {
	if conf.Import.Pacer != configuration.PacerLimiter {
		return nil
	}
	store, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "iota-crm:import"})
	if err != nil {
		logger.WithError(err).Warn("Failed to create Redis store for the import pacer, falling back to memory")
		return middleware.NewMemoryStore()
	}
	return store
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis unreachable")
	}
	return nil
}
