package aggregator

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Radioafricagroup/glowroot/internal/trace"
	"github.com/Radioafricagroup/glowroot/pkg/clock"
	"github.com/Radioafricagroup/glowroot/pkg/metricname"
)

// inlineExecutor runs flush tasks synchronously on the calling
// goroutine, making flush timing deterministic in tests.
type inlineExecutor struct{}

func (inlineExecutor) Submit(task func()) { task() }

// fakeRepository records every Store call it receives.
type fakeRepository struct {
	mu     sync.Mutex
	calls  []storeCall
	failOn func(transactionType string) bool
}

type storeCall struct {
	transactionType string
	overall         *TransactionPoint
	perTransaction  map[string]*TransactionPoint
}

func (r *fakeRepository) Store(transactionType string, overall *TransactionPoint, perTransaction map[string]*TransactionPoint) error {
	if r.failOn != nil && r.failOn(transactionType) {
		return fmt.Errorf("synthetic failure for %q", transactionType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, storeCall{transactionType, overall, perTransaction})
	return nil
}

func (r *fakeRepository) snapshot() []storeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]storeCall, len(r.calls))
	copy(out, r.calls)
	return out
}

func newTrace(name string, background bool, durationNanos int64, failed bool) *trace.Trace {
	names := metricname.NewRegistry()
	ticker := clock.System{}
	holder := &trace.CurrentMetricHolder{}
	root := trace.NewRoot(names.NameFor(name), ticker, holder)
	holder.Set(root)
	root.Start(0)
	root.End(durationNanos)

	tr := &trace.Trace{
		Root:            root,
		TransactionName: name,
		Background:      background,
		DurationNanos:   durationNanos,
	}
	if failed {
		tr.Err = fmt.Errorf("boom")
	}
	return tr
}

func TestAggregatesAddFoldsForegroundAndBackgroundSeparately(t *testing.T) {
	agg := NewAggregates(1000)

	agg.Add(newTrace("checkout", false, 100, false), false)
	agg.Add(newTrace("checkout", false, 300, true), true)
	agg.Add(newTrace("reindex", true, 50, false), false)

	seen := map[string]*TypeAggregates{}
	agg.Seal(func(transactionType string, ta *TypeAggregates) {
		seen[transactionType] = ta
	})

	require.Contains(t, seen, foregroundKey)
	require.Contains(t, seen, backgroundKey)

	fg := seen[foregroundKey].Overall.Build(1000, foregroundKey, "")
	assert.EqualValues(t, 2, fg.Count)
	assert.EqualValues(t, 400, fg.TotalNanos)
	assert.EqualValues(t, 1, fg.ErrorCount)
	assert.EqualValues(t, 1, fg.StoredCount)

	bg := seen[backgroundKey].Overall.Build(1000, backgroundKey, "")
	assert.EqualValues(t, 1, bg.Count)
	assert.EqualValues(t, 50, bg.TotalNanos)
}

func TestAggregatorRollsOverWindowsOnWallClockAdvance(t *testing.T) {
	repo := &fakeRepository{}
	agg := New(clock.System{}, repo, inlineExecutor{}, Config{
		IntervalMillis:  20,
		PollGraceMillis: 10,
	})
	defer agg.Close()

	first := agg.Add(newTrace("op", false, 1_000_000, false), false)

	require.Eventually(t, func() bool {
		return len(repo.snapshot()) > 0
	}, 2*time.Second, 5*time.Millisecond, "window should flush once wall clock passes its boundary")

	calls := repo.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, foregroundKey, calls[0].transactionType)
	assert.EqualValues(t, 1, calls[0].overall.Count)
	// Add returns the raw wall-clock stamp; the trace lands in the window
	// that stamp aligns up to.
	assert.Equal(t, clock.AlignUp(first, 20), calls[0].overall.CaptureTime)
}

func TestAggregatorDropsWindowOnStoreError(t *testing.T) {
	repo := &fakeRepository{failOn: func(string) bool { return true }}
	var flushErrors int
	var mu sync.Mutex
	obs := &recordingObserver{onFlushError: func(int64, error) {
		mu.Lock()
		flushErrors++
		mu.Unlock()
	}}

	agg := New(clock.System{}, repo, inlineExecutor{}, Config{
		IntervalMillis:  20,
		PollGraceMillis: 10,
		Observer:        obs,
	})
	defer agg.Close()

	agg.Add(newTrace("op", false, 100, false), false)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return flushErrors > 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.Empty(t, repo.snapshot())
}

func TestQueueDepthIsNonNegativeWhileFlushesAreBlocked(t *testing.T) {
	repo := &fakeRepository{}
	blocker := make(chan struct{})
	executor := blockingExecutor{block: blocker}

	agg := New(clock.System{}, repo, executor, Config{
		IntervalMillis:  5,
		PollGraceMillis: 5,
	})
	defer func() {
		close(blocker)
		agg.Close()
	}()

	agg.Add(newTrace("a", false, 1, false), false)
	agg.Add(newTrace("b", false, 1, false), false)

	assert.GreaterOrEqual(t, agg.QueueDepth(), 0)
}

type recordingObserver struct {
	onFlushError func(int64, error)
}

func (recordingObserver) OnEnqueue(int)        {}
func (recordingObserver) OnWindowOpened(int64) {}
func (recordingObserver) OnWindowFlushed(int64) {}
func (o *recordingObserver) OnFlushError(captureTime int64, err error) {
	if o.onFlushError != nil {
		o.onFlushError(captureTime, err)
	}
}

type blockingExecutor struct {
	block <-chan struct{}
}

func (b blockingExecutor) Submit(task func()) {
	go func() {
		<-b.block
		task()
	}()
}
