package aggregator

import (
	"sync"

	"github.com/Radioafricagroup/glowroot/internal/trace"
)

// foregroundKey and backgroundKey are the two transaction-type-key
// buckets a window needs: "" for foreground, "bg" for background.
// There are never more than these two buckets per window.
const (
	foregroundKey = ""
	backgroundKey = "bg"
)

// TypeAggregates is the per-type-bucket accumulator: one overall
// rollup plus one rollup per distinct transaction name seen in this
// window.
type TypeAggregates struct {
	Overall        *TransactionPointBuilder
	PerTransaction map[string]*TransactionPointBuilder
}

func newTypeAggregates() *TypeAggregates {
	return &TypeAggregates{
		Overall:        NewTransactionPointBuilder(),
		PerTransaction: make(map[string]*TransactionPointBuilder, 8),
	}
}

func (ta *TypeAggregates) transactionPoint(name string) *TransactionPointBuilder {
	b, ok := ta.PerTransaction[name]
	if !ok {
		b = NewTransactionPointBuilder()
		ta.PerTransaction[name] = b
	}
	return b
}

// Aggregates is the mutable window accumulator: created
// on the first trace that arrives after the previous window's
// captureTime, sealed at most once when the consumer hands it to the
// flusher.
//
// The monitor (mu) serves two audiences at different times: the
// consumer goroutine locks it while calling Add, and the flush task -
// which by construction never runs concurrently with more Adds, since
// the consumer has already moved on to a new Aggregates - locks it
// again purely to get a correct memory-visibility barrier for the
// mutations the consumer goroutine made.
type Aggregates struct {
	CaptureTime int64

	mu     sync.Mutex
	byType map[string]*TypeAggregates
}

// NewAggregates creates an empty window aligned to captureTime.
func NewAggregates(captureTime int64) *Aggregates {
	return &Aggregates{CaptureTime: captureTime, byType: make(map[string]*TypeAggregates, 2)}
}

// Add folds one completed trace into this window's per-trace counters.
func (a *Aggregates) Add(t *trace.Trace, traceWillBeStored bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := foregroundKey
	if t.IsBackground() {
		key = backgroundKey
	}

	ta, ok := a.byType[key]
	if !ok {
		ta = newTypeAggregates()
		a.byType[key] = ta
	}

	duration := t.DurationNanos
	perTx := ta.transactionPoint(t.TransactionName)

	ta.Overall.Add(duration)
	perTx.Add(duration)

	if t.Err != nil {
		ta.Overall.IncrementErrorCount()
		perTx.IncrementErrorCount()
	}

	if traceWillBeStored {
		ta.Overall.IncrementStoredCount()
		perTx.IncrementStoredCount()
	}

	ta.Overall.MergeMetrics(t.Root)
	perTx.MergeMetrics(t.Root)

	// Deliberate: the overall profile was judged not worth the merge
	// cost, so only the per-transaction profile gets it.
	if t.FineProfile != nil {
		perTx.MergeProfile(t.FineProfile)
	}
}

// Seal runs fn once for every type bucket under the window's monitor,
// guaranteeing visibility of every mutation the consumer goroutine made
// via Add. Intended to be called exactly once, by the flush task.
func (a *Aggregates) Seal(fn func(transactionType string, ta *TypeAggregates)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, ta := range a.byType {
		fn(key, ta)
	}
}
