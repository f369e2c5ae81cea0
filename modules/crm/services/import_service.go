package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-crm/modules/crm/domain/aggregates/client"
	"github.com/iota-uz/iota-crm/modules/crm/domain/aggregates/supplier"
	"github.com/iota-uz/iota-crm/modules/crm/domain/entities/importrun"
	"github.com/iota-uz/iota-crm/pkg/composables"
	"github.com/iota-uz/iota-crm/pkg/eventbus"
	"github.com/iota-uz/iota-crm/pkg/logging"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

// ImportService runs the reconcile engine for one entity. A fresh store is bound to the
// caller's tenant on every invocation.
type ImportService struct {
	schema    reconcile.Schema
	newStore  func(tenantID uuid.UUID) reconcile.Store
	runs      importrun.Repository
	publisher eventbus.EventBus
	config    ImportConfig
	logger    *logrus.Logger
	now       func() time.Time
}

type ImportServiceOption func(*ImportService)

func WithRunRepository(runs importrun.Repository) ImportServiceOption {
	return func(s *ImportService) { s.runs = runs }
}

func WithServiceLogger(logger *logrus.Logger) ImportServiceOption {
	return func(s *ImportService) { s.logger = logger }
}

func WithServiceClock(now func() time.Time) ImportServiceOption {
	return func(s *ImportService) { s.now = now }
}

func NewImportService(
	schema reconcile.Schema,
	newStore func(tenantID uuid.UUID) reconcile.Store,
	publisher eventbus.EventBus,
	config ImportConfig,
	opts ...ImportServiceOption,
) *ImportService {
	s := &ImportService{
		schema:    schema,
		newStore:  newStore,
		publisher: publisher,
		config:    config,
		logger:    logging.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ImportService) Entity() string {
	return s.schema.Entity
}

func (s *ImportService) Schema() reconcile.Schema {
	return s.schema
}

func (s *ImportService) logEntry(ctx context.Context) *logrus.Entry {
	if l, err := composables.TryUseLogger(ctx); err == nil {
		return l
	}
	return logrus.NewEntry(s.logger)
}

func (s *ImportService) engine(ctx context.Context, tenantID uuid.UUID) *reconcile.Engine {
	return reconcile.New(s.newStore(tenantID), s.schema,
		reconcile.WithBackpressure(s.config.Backpressure),
		reconcile.WithTimeout(s.config.Timeout),
		reconcile.WithPacer(s.config.Pacer),
		reconcile.WithLogger(s.logEntry(ctx).WithField("tenant-id", tenantID.String())),
	)
}

// Import reconciles payload against the tenant's records and commits the result.
// source is a free-form origin tag ("api", "cli:file.xlsx") kept with the run summary.
func (s *ImportService) Import(ctx context.Context, payload reconcile.Payload, source string) (*reconcile.Report, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	report, err := s.engine(ctx, tenantID).Run(ctx, payload)
	if err != nil {
		if errors.Is(err, reconcile.ErrDuplicateLookupFailed) {
			recordLookupFailure(s.schema.Entity)
		}
		return nil, err
	}
	s.complete(ctx, importrun.New(tenantID, s.schema.Entity, source, false, report, s.now()))
	return report, nil
}

// DryRun classifies payload without writing. Created and Updated hold the planned counts.
func (s *ImportService) DryRun(ctx context.Context, payload reconcile.Payload, source string) (*reconcile.Report, reconcile.Plan, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, reconcile.Plan{}, err
	}
	report, plan, err := s.engine(ctx, tenantID).DryRun(ctx, payload)
	if err != nil {
		return nil, reconcile.Plan{}, err
	}
	s.complete(ctx, importrun.New(tenantID, s.schema.Entity, source, true, report, s.now()))
	return report, plan, nil
}

// LastRun returns the most recent run summary for the tenant in ctx.
func (s *ImportService) LastRun(ctx context.Context) (importrun.Run, error) {
	if s.runs == nil {
		return importrun.Run{}, importrun.ErrNotFound
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return importrun.Run{}, err
	}
	return s.runs.Last(ctx, tenantID, s.schema.Entity)
}

// complete never fails the import: the records are already committed.
func (s *ImportService) complete(ctx context.Context, run importrun.Run) {
	if s.runs != nil {
		if err := s.runs.Save(context.WithoutCancel(ctx), run); err != nil {
			s.logEntry(ctx).WithError(err).Warn("import: failed to save run summary")
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(&importrun.CompletedEvent{Run: run})
	}
}

type ClientImportService struct {
	*ImportService
}

func NewClientImportService(repo client.Repository, publisher eventbus.EventBus, config ImportConfig, opts ...ImportServiceOption) *ClientImportService {
	newStore := func(tenantID uuid.UUID) reconcile.Store {
		return &entityStore[client.Client]{repo: repo, tenantID: tenantID, build: client.FromRecord}
	}
	return &ClientImportService{NewImportService(client.Schema(), newStore, publisher, config, opts...)}
}

type SupplierImportService struct {
	*ImportService
}

func NewSupplierImportService(repo supplier.Repository, publisher eventbus.EventBus, config ImportConfig, opts ...ImportServiceOption) *SupplierImportService {
	newStore := func(tenantID uuid.UUID) reconcile.Store {
		return &entityStore[supplier.Supplier]{repo: repo, tenantID: tenantID, build: supplier.FromRecord}
	}
	return &SupplierImportService{NewImportService(supplier.Schema(), newStore, publisher, config, opts...)}
}
