package reconcile

import "time"

// Report is owned by a single invocation: created empty, mutated through every phase, returned once.
type Report struct {
	Strategy    Strategy
	Total       int
	Created     int
	Updated     int
	Skipped     int
	Invalid     int
	Failed      int
	Unprocessed int
	TimedOut    bool
	Elapsed     time.Duration
}

func NewReport(total int, strategy Strategy) *Report {
	return &Report{Total: total, Strategy: strategy}
}

// Apply folds one write result into the counters.
func (r *Report) Apply(res WriteResult) {
	if res.Err != nil {
		r.Failed++
		return
	}
	switch res.Outcome.Action {
	case ActionCreate:
		r.Created++
	case ActionUpdate:
		r.Updated++
	}
}

// Processed counts records that reached a terminal non-error state.
func (r *Report) Processed() int {
	return r.Created + r.Updated + r.Skipped
}

// Balanced reports whether every input record is accounted for exactly once.
func (r *Report) Balanced() bool {
	return r.Processed()+r.Failed+r.Invalid+r.Unprocessed == r.Total
}

func (r *Report) Finish(elapsed time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	r.Elapsed = elapsed
}
