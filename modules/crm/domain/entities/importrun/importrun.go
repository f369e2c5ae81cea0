package importrun

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-crm/pkg/reconcile"
	"github.com/iota-uz/iota-crm/pkg/serrors"
)

var ErrNotFound = serrors.NewError("CRM_IMPORT_RUN_NOT_FOUND", "no import has been recorded", "Imports.Errors.NotFound")

// Run is the persisted summary of one import invocation.
type Run struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenantId"`
	Entity     string    `json:"entity"`
	Strategy   string    `json:"strategy"`
	Source     string    `json:"source"`
	DryRun     bool      `json:"dryRun"`
	Total      int       `json:"total"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Invalid    int       `json:"invalid"`
	Failed     int       `json:"failed"`
	Pending    int       `json:"pending"`
	TimedOut   bool      `json:"timedOut"`
	ElapsedMS  int64     `json:"elapsedMs"`
	FinishedAt time.Time `json:"finishedAt"`
}

func New(tenantID uuid.UUID, entity, source string, dryRun bool, report *reconcile.Report, finishedAt time.Time) Run {
	return Run{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Entity:     entity,
		Strategy:   string(report.Strategy),
		Source:     source,
		DryRun:     dryRun,
		Total:      report.Total,
		Created:    report.Created,
		Updated:    report.Updated,
		Skipped:    report.Skipped,
		Invalid:    report.Invalid,
		Failed:     report.Failed,
		Pending:    report.Unprocessed,
		TimedOut:   report.TimedOut,
		ElapsedMS:  report.Elapsed.Milliseconds(),
		FinishedAt: finishedAt,
	}
}

func (r Run) Processed() int {
	return r.Created + r.Updated + r.Skipped
}

type CompletedEvent struct {
	Run Run
}

type Repository interface {
	Save(ctx context.Context, run Run) error
	Last(ctx context.Context, tenantID uuid.UUID, entity string) (Run, error)
}
