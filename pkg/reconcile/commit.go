package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iota-uz/iota-crm/pkg/serrors"
)

type KeyLoader interface {
	// LoadKeys returns the candidate-key projection of every stored record, unfiltered.
	LoadKeys(ctx context.Context) ([]ExistingKeys, error)
}

type Writer interface {
	Create(ctx context.Context, rec NormalizedRecord) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, rec NormalizedRecord) error
}

type Store interface {
	KeyLoader
	Writer
}

type WriteOutcome struct {
	Action Action
	ID     uuid.UUID
}

// WriteError is a single rejected create or update. It never aborts the batch.
type WriteError struct {
	Label    string
	Action   Action
	TargetID uuid.UUID
	Code     string
	Err      error
}

func (e *WriteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %q failed (%s): %v", e.Action, e.Label, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %q failed: %v", e.Action, e.Label, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteResult is either an Outcome or an Err. Results of records that were never
// attempted (budget expired) are reported with attempted == false.
type WriteResult struct {
	Outcome   WriteOutcome
	Err       *WriteError
	attempted bool
}

func (r WriteResult) Attempted() bool { return r.attempted }

type Committer struct {
	writer Writer
	policy Backpressure
	pacer  Pacer
	logger *logrus.Entry
}

func NewCommitter(w Writer, policy Backpressure, pacer Pacer, logger *logrus.Entry) *Committer {
	policy = policy.normalized()
	if pacer == nil {
		pacer = FixedDelay(policy.ChunkDelay)
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Committer{
		writer: w,
		policy: policy,
		pacer:  pacer,
		logger: logger,
	}
}

// Commit writes creates then updates, chunk by chunk, pausing between chunks.
// ctx carries the soft budget: once it is done no new record or chunk is started and
// the rest is counted as unprocessed. Writes already running are never preempted.
func (c *Committer) Commit(ctx context.Context, plan Plan, report *Report) {
	chunks := append(chunk(plan.Creates, c.policy.ChunkSize), chunk(plan.Updates, c.policy.ChunkSize)...)

	for i, ch := range chunks {
		if i > 0 {
			c.pause(ctx)
		}
		if ctx.Err() != nil {
			c.abandon(ctx, chunks[i:], report)
			return
		}
		for _, res := range c.commitChunk(ctx, ch) {
			if !res.attempted {
				report.Unprocessed++
				continue
			}
			report.Apply(res)
		}
	}
	if report.Unprocessed > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		report.TimedOut = true
	}
}

func (c *Committer) pause(ctx context.Context) {
	err := c.pacer.Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}
	c.logger.WithError(err).Warn("import: pacer failed, falling back to fixed delay")
	_ = FixedDelay(c.policy.ChunkDelay).Wait(ctx)
}

func (c *Committer) abandon(ctx context.Context, rest [][]Classified, report *Report) {
	for _, ch := range rest {
		report.Unprocessed += len(ch)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		report.TimedOut = true
	}
	c.logger.WithField("unprocessed", report.Unprocessed).Warn("import: budget exhausted, stopping commit")
}

func (c *Committer) commitChunk(ctx context.Context, ch []Classified) []WriteResult {
	results := make([]WriteResult, len(ch))
	if c.policy.Workers == 1 {
		for i, item := range ch {
			if ctx.Err() != nil {
				break
			}
			results[i] = c.write(ctx, item)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(c.policy.Workers)
	for i, item := range ch {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = c.write(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Committer) write(ctx context.Context, item Classified) (res WriteResult) {
	res.attempted = true
	writeCtx := context.WithoutCancel(ctx)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic during write: %v", r)
			}
		}()
		switch item.Action {
		case ActionCreate:
			id, createErr := c.writer.Create(writeCtx, item.Record)
			res.Outcome = WriteOutcome{Action: ActionCreate, ID: id}
			return createErr
		case ActionUpdate:
			res.Outcome = WriteOutcome{Action: ActionUpdate, ID: item.TargetID}
			return c.writer.Update(writeCtx, item.TargetID, item.Record)
		default:
			return fmt.Errorf("unsupported action %q", item.Action)
		}
	}()
	if err == nil {
		return res
	}

	res.Err = &WriteError{
		Label:    item.Record.Label(),
		Action:   item.Action,
		TargetID: item.TargetID,
		Code:     errorCode(err),
		Err:      err,
	}
	c.logger.WithFields(logrus.Fields{
		"label":  res.Err.Label,
		"action": string(item.Action),
		"code":   res.Err.Code,
	}).WithError(err).Warn("import: record write failed")
	return res
}

type sqlStater interface {
	SQLState() string
}

// errorCode prefers the store's SQLSTATE and falls back to a serrors code.
func errorCode(err error) string {
	var st sqlStater
	if errors.As(err, &st) {
		return st.SQLState()
	}
	return serrors.Code(err)
}

func chunk(items []Classified, size int) [][]Classified {
	if len(items) == 0 {
		return nil
	}
	out := make([][]Classified, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
