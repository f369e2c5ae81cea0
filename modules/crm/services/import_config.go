package services

import (
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"

	"github.com/iota-uz/iota-crm/pkg/configuration"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

// ImportConfig is the engine tuning shared by every entity service.
type ImportConfig struct {
	Backpressure reconcile.Backpressure
	Timeout      time.Duration
	Pacer        reconcile.Pacer
}

// NewImportConfig translates configuration into engine settings. store backs the limiter pacer
// and is ignored for the fixed pacer.
func NewImportConfig(opts configuration.ImportOptions, store limiter.Store) (ImportConfig, error) {
	cfg := ImportConfig{
		Backpressure: reconcile.Backpressure{
			ChunkSize:  opts.ChunkSize,
			ChunkDelay: opts.ChunkDelay,
			Workers:    opts.Workers,
		},
		Timeout: opts.Timeout,
	}
	if opts.Pacer != configuration.PacerLimiter {
		return cfg, nil
	}
	if store == nil {
		return ImportConfig{}, fmt.Errorf("import pacer %q requires a limiter store", opts.Pacer)
	}
	rate, err := limiter.NewRateFromFormatted(opts.LimiterRate)
	if err != nil {
		return ImportConfig{}, fmt.Errorf("invalid IMPORT_LIMITER_RATE %q: %w", opts.LimiterRate, err)
	}
	cfg.Pacer = reconcile.NewLimiterPacer(limiter.New(store, rate), "crm:import:writes")
	return cfg, nil
}
