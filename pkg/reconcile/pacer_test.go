package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func TestBackpressure_Normalized(t *testing.T) {
	b := Backpressure{ChunkSize: 0, ChunkDelay: -time.Second, Workers: 10}.normalized()
	require.Equal(t, DefaultBackpressure().ChunkSize, b.ChunkSize)
	require.Zero(t, b.ChunkDelay)
	require.Equal(t, b.ChunkSize, b.Workers, "workers never exceed the chunk size")
}

func TestChunk(t *testing.T) {
	items := make([]Classified, 7)
	chunks := chunk(items, 3)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 3)
	require.Len(t, chunks[2], 1)
	require.Nil(t, chunk(nil, 3))
}

func TestFixedDelay_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := FixedDelay(time.Minute).Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestLimiterPacer_BlocksWhenBudgetIsSpent(t *testing.T) {
	l := limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 2})
	pacer := NewLimiterPacer(l, "crm:clients:import")

	require.NoError(t, pacer.Wait(context.Background()))
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, pacer.Wait(ctx), context.DeadlineExceeded)
}

type failingPacer struct{ calls int }

func (p *failingPacer) Wait(ctx context.Context) error {
	p.calls++
	return context.DeadlineExceeded
}

func TestCommitter_PacerFailureFallsBackToFixedDelay(t *testing.T) {
	store := newMemoryStore(testSchema().Keys)
	pacer := &failingPacer{}
	normalized, _ := testSchema().Normalize(labeled("a", "b", "c", "d"))
	plan := BuildPlan(normalized, BuildIndex(testSchema().Keys, nil), testSchema().Keys, StrategyUpdate)

	report := NewReport(4, StrategyUpdate)
	NewCommitter(store, Backpressure{ChunkSize: 1, ChunkDelay: time.Millisecond}, pacer, nil).
		Commit(context.Background(), plan, report)
	require.Equal(t, 4, report.Created)
	require.Equal(t, 3, pacer.calls)
}

type countingPacer struct {
	calls     int
	createdAt []int
	store     *memoryStore
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.calls++
	p.createdAt = append(p.createdAt, p.store.count())
	return nil
}

func TestCommitter_PacesOnlyBetweenChunks(t *testing.T) {
	store := newMemoryStore(testSchema().Keys)
	pacer := &countingPacer{store: store}
	normalized, _ := testSchema().Normalize(labeled("a", "b", "c", "d", "e"))
	plan := BuildPlan(normalized, BuildIndex(testSchema().Keys, nil), testSchema().Keys, StrategyUpdate)

	report := NewReport(5, StrategyUpdate)
	NewCommitter(store, Backpressure{ChunkSize: 2, Workers: 1}, pacer, nil).
		Commit(context.Background(), plan, report)

	require.Equal(t, 5, report.Created)
	require.Equal(t, 2, pacer.calls, "three chunks need two pauses")
	require.Equal(t, []int{2, 4}, pacer.createdAt, "no pause before the first chunk or after the last")
}
