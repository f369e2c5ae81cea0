package crm

import (
	"embed"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-crm/modules/crm/infrastructure/persistence"
	"github.com/iota-uz/iota-crm/modules/crm/presentation/controllers"
	"github.com/iota-uz/iota-crm/modules/crm/services"
	"github.com/iota-uz/iota-crm/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var MigrationFiles embed.FS

type ModuleOptions struct {
	Import services.ImportConfig
	// Redis keeps the last-run summaries. Without it GET .../import/last always answers 404.
	Redis         redis.Cmdable
	ReportTTL     time.Duration
	MaxUploadSize int64
	Logger        *logrus.Logger
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)

	var opts []services.ImportServiceOption
	if m.options.Redis != nil {
		opts = append(opts, services.WithRunRepository(
			persistence.NewImportRunRepository(m.options.Redis, m.options.ReportTTL),
		))
	}
	if m.options.Logger != nil {
		opts = append(opts, services.WithServiceLogger(m.options.Logger))
	}

	app.RegisterServices(
		services.NewClientImportService(persistence.NewClientRepository(), app.EventPublisher(), m.options.Import, opts...),
		services.NewSupplierImportService(persistence.NewSupplierRepository(), app.EventPublisher(), m.options.Import, opts...),
	)
	app.EventPublisher().Subscribe(services.RecordImportMetrics)
	app.RegisterControllers(
		controllers.NewClientImportAPIController(app, m.options.MaxUploadSize),
		controllers.NewSupplierImportAPIController(app, m.options.MaxUploadSize),
	)
	return nil
}

func (m *Module) Name() string {
	return "crm"
}
