package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/iota-uz/iota-crm/modules/crm/domain/aggregates/client"
	"github.com/iota-uz/iota-crm/modules/crm/domain/aggregates/supplier"
	"github.com/iota-uz/iota-crm/modules/crm/infrastructure/persistence"
	"github.com/iota-uz/iota-crm/modules/crm/services"
	"github.com/iota-uz/iota-crm/pkg/composables"
	"github.com/iota-uz/iota-crm/pkg/configuration"
	"github.com/iota-uz/iota-crm/pkg/excel"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

type importOptions struct {
	entity   string
	tenantID uuid.UUID
	input    string
	sheet    string
	strategy string
	dryRun   bool
}

// importer is the slice of services.ImportService the command drives.
type importer interface {
	Entity() string
	Import(ctx context.Context, payload reconcile.Payload, source string) (*reconcile.Report, error)
	DryRun(ctx context.Context, payload reconcile.Payload, source string) (*reconcile.Report, reconcile.Plan, error)
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import clients or suppliers from a JSON, XLSX or CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.entity, "entity", client.Entity, "Entity to import: clients|suppliers")
	cmd.Flags().StringVar(&opts.input, "input", "", "Input file (.json, .xlsx or .csv) (required)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Strategy for matched records: update|skip|create_new (default update)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Classify only, without writing")

	var tenant string
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant UUID (required)")

	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("input")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(strings.TrimSpace(tenant))
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("invalid --tenant: %w", err))
		}
		opts.tenantID = id
		if opts.entity != client.Entity && opts.entity != supplier.Entity {
			return withCode(exitUsage, fmt.Errorf("unsupported --entity: %s", opts.entity))
		}
		return nil
	}

	return cmd
}

func runImport(ctx context.Context, opts importOptions, out io.Writer) error {
	payload, err := loadPayload(opts.input, opts.sheet, opts.strategy)
	if err != nil {
		return err
	}

	conf := configuration.Use()
	pool, err := connectDB(ctx, conf)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	rdb := redis.NewClient(redisOptions(conf.RedisURL))
	defer rdb.Close()

	var store limiter.Store
	if conf.Import.Pacer == configuration.PacerLimiter {
		// Shares the write budget with running servers.
		store, err = sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "iota-crm:import"})
		if err != nil {
			return withCode(exitDB, err)
		}
	}
	importConfig, err := services.NewImportConfig(conf.Import, store)
	if err != nil {
		return withCode(exitUsage, err)
	}
	svcOpts := []services.ImportServiceOption{
		services.WithServiceLogger(conf.Logger()),
		services.WithRunRepository(persistence.NewImportRunRepository(rdb, conf.Import.ReportTTL)),
	}
	var svc importer
	switch opts.entity {
	case supplier.Entity:
		svc = services.NewSupplierImportService(persistence.NewSupplierRepository(), nil, importConfig, svcOpts...)
	default:
		svc = services.NewClientImportService(persistence.NewClientRepository(), nil, importConfig, svcOpts...)
	}

	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithRLSEnforced(ctx, conf.RLSEnforced())
	ctx = composables.WithTenantID(ctx, opts.tenantID)
	return execImport(ctx, svc, payload, "cli:"+filepath.Base(opts.input), opts.dryRun, out)
}

func execImport(ctx context.Context, svc importer, payload reconcile.Payload, source string, dryRun bool, out io.Writer) error {
	var (
		report *reconcile.Report
		err    error
	)
	if dryRun {
		report, _, err = svc.DryRun(ctx, payload, source)
	} else {
		report, err = svc.Import(ctx, payload, source)
	}
	if err != nil {
		if errors.Is(err, reconcile.ErrDuplicateLookupFailed) {
			return withCode(exitDB, err)
		}
		return err
	}

	if err := writeJSONLine(out, newImportSummary(svc.Entity(), source, dryRun, report)); err != nil {
		return err
	}
	if report.Total > 0 && report.Invalid == report.Total {
		return withCode(exitValidation, fmt.Errorf("no valid records in %s", source))
	}
	return nil
}

// loadPayload picks the decoder from the file extension. A JSON file may carry its own
// updateStrategy, which --strategy overrides when set.
func loadPayload(path, sheet, strategy string) (reconcile.Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("open --input: %w", err))
	}
	defer f.Close()

	var records []reconcile.RawRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		body, err := io.ReadAll(f)
		if err != nil {
			return nil, withCode(exitUsage, fmt.Errorf("read --input: %w", err))
		}
		payload, err := reconcile.DecodePayload(body)
		if err != nil {
			return nil, withCode(exitValidation, err)
		}
		if strategy == "" {
			return payload, nil
		}
		records = payload.Records()
	case ".xlsx":
		records, err = excel.ReadXLSX(f, sheet)
	case ".csv":
		records, err = excel.ReadCSV(f)
	default:
		return nil, withCode(exitUsage, fmt.Errorf("unsupported --input extension: %s", filepath.Ext(path)))
	}
	if err != nil {
		return nil, withCode(exitValidation, fmt.Errorf("%s: %w", filepath.Base(path), err))
	}

	payload, err := reconcile.NewRecordsPayload(records, strategy)
	if err != nil {
		return nil, withCode(exitValidation, err)
	}
	return payload, nil
}

func redisOptions(url string) *redis.Options {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return &redis.Options{Addr: url}
	}
	return opts
}
