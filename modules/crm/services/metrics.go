package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/iota-crm/modules/crm/domain/entities/importrun"
)

type importMetrics struct {
	runsTotal    *prometheus.CounterVec
	recordsTotal *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

var metricsSingleton = sync.OnceValue(func() *importMetrics {
	return &importMetrics{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Total number of import invocations.",
		}, []string{"entity", "result"}),
		recordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Imported records by outcome.",
		}, []string{"entity", "outcome"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Wall time of import invocations.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 60},
		}, []string{"entity"}),
	}
})

// RecordImportMetrics is subscribed to importrun.CompletedEvent.
func RecordImportMetrics(e *importrun.CompletedEvent) {
	m := metricsSingleton()
	run := e.Run
	result := "ok"
	switch {
	case run.TimedOut:
		result = "timed_out"
	case run.Failed > 0:
		result = "partial"
	}
	if run.DryRun {
		result = "dry_run"
	}
	m.runsTotal.WithLabelValues(run.Entity, result).Inc()
	m.duration.WithLabelValues(run.Entity).Observe(float64(run.ElapsedMS) / 1000)
	if run.DryRun {
		return
	}
	for outcome, n := range map[string]int{
		"created":     run.Created,
		"updated":     run.Updated,
		"skipped":     run.Skipped,
		"invalid":     run.Invalid,
		"failed":      run.Failed,
		"unprocessed": run.Pending,
	} {
		if n > 0 {
			m.recordsTotal.WithLabelValues(run.Entity, outcome).Add(float64(n))
		}
	}
}

func recordLookupFailure(entity string) {
	metricsSingleton().runsTotal.WithLabelValues(entity, "lookup_failed").Inc()
}
