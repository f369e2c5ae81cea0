package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("iota-crm-reconcile")

type Engine struct {
	store   Store
	schema  Schema
	policy  Backpressure
	pacer   Pacer
	timeout time.Duration
	logger  *logrus.Entry
	now     func() time.Time
}

type Option func(*Engine)

func WithBackpressure(b Backpressure) Option {
	return func(e *Engine) { e.policy = b }
}

// WithTimeout sets the soft budget of one invocation. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithPacer(p Pacer) Option {
	return func(e *Engine) { e.pacer = p }
}

func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store Store, schema Schema, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		schema: schema,
		policy: DefaultBackpressure(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = discardLogger()
	}
	e.logger = e.logger.WithField("entity", schema.Entity)
	return e
}

// Run executes one import invocation. Only index-read failures (and an invalid
// schema) are returned as errors; everything else ends up in the report.
func (e *Engine) Run(ctx context.Context, payload Payload) (*Report, error) {
	// The injected clock only feeds the reported elapsed time; the budget runs on wall time.
	wallStart := time.Now()
	start := e.now()
	ctx, span := e.startSpan(ctx, "reconcile.Run", payload)
	defer span.End()

	report, plan, err := e.classify(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if plan.Len() == 0 {
		report.Finish(e.now().Sub(start))
		return report, nil
	}

	commitCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		commitCtx, cancel = context.WithTimeout(ctx, e.timeout-time.Since(wallStart))
		defer cancel()
	}

	_, commitSpan := tracer.Start(ctx, "reconcile.Commit", trace.WithAttributes(
		attribute.Int("import.creates", len(plan.Creates)),
		attribute.Int("import.updates", len(plan.Updates)),
	))
	NewCommitter(e.store, e.policy, e.pacer, e.logger).Commit(commitCtx, plan, report)
	commitSpan.End()

	report.Finish(e.now().Sub(start))
	span.SetAttributes(
		attribute.Int("import.created", report.Created),
		attribute.Int("import.updated", report.Updated),
		attribute.Int("import.failed", report.Failed),
		attribute.Bool("import.timed_out", report.TimedOut),
	)
	e.logger.WithFields(logrus.Fields{
		"created":     report.Created,
		"updated":     report.Updated,
		"skipped":     report.Skipped,
		"invalid":     report.Invalid,
		"failed":      report.Failed,
		"unprocessed": report.Unprocessed,
		"elapsed":     report.Elapsed,
	}).Info("import: finished")
	return report, nil
}

// DryRun classifies without writing. The returned report carries the planned counts.
func (e *Engine) DryRun(ctx context.Context, payload Payload) (*Report, Plan, error) {
	start := e.now()
	ctx, span := e.startSpan(ctx, "reconcile.DryRun", payload)
	defer span.End()

	report, plan, err := e.classify(ctx, payload)
	if err != nil {
		return nil, Plan{}, err
	}
	report.Created = len(plan.Creates)
	report.Updated = len(plan.Updates)
	report.Finish(e.now().Sub(start))
	return report, plan, nil
}

func (e *Engine) classify(ctx context.Context, payload Payload) (*Report, Plan, error) {
	if err := e.schema.Validate(); err != nil {
		return nil, Plan{}, err
	}
	raws := payload.Records()
	report := NewReport(len(raws), payload.Strategy())

	records, invalid := e.schema.Normalize(raws)
	report.Invalid = invalid
	e.logger.WithFields(logrus.Fields{"valid": len(records), "invalid": invalid}).Debug("import: normalized")
	if len(records) == 0 {
		return report, Plan{}, nil
	}

	existing, err := e.store.LoadKeys(ctx)
	if err != nil {
		e.logger.WithError(err).Error("import: existing records lookup failed")
		return nil, Plan{}, fmt.Errorf("%w: %w", ErrDuplicateLookupFailed, err)
	}
	idx := BuildIndex(e.schema.Keys, existing)
	e.logger.WithField("existing", len(existing)).Debug("import: index built")

	plan := BuildPlan(records, idx, e.schema.Keys, payload.Strategy())
	report.Skipped = len(plan.Skips)
	return report, plan, nil
}

func (e *Engine) startSpan(ctx context.Context, name string, payload Payload) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("import.entity", e.schema.Entity),
		attribute.String("import.strategy", payload.Strategy().String()),
		attribute.Int("import.records", len(payload.Records())),
	))
}
