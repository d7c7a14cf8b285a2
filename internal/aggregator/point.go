package aggregator

import "github.com/Radioafricagroup/glowroot/internal/trace"

// TransactionPoint is the immutable rollup for one (type, transaction
// name) key over one aggregation window. The "overall" point for a
// type uses an empty TransactionName.
type TransactionPoint struct {
	CaptureTime     int64
	TransactionType string
	TransactionName string

	TotalNanos int64
	Count      int64
	MinNanos   int64
	MaxNanos   int64

	ErrorCount  int64
	StoredCount int64

	Metrics *MergedMetric
	Profile *trace.Profile
}

// TransactionPointBuilder is the mutable accumulator behind a
// TransactionPoint, folding in one trace at a time via Add/
// IncrementErrorCount/IncrementStoredCount/MergeMetrics/MergeProfile,
// then producing an immutable TransactionPoint via Build.
type TransactionPointBuilder struct {
	totalNanos  int64
	count       int64
	minNanos    int64
	maxNanos    int64
	errorCount  int64
	storedCount int64
	merged      *MergedMetric
	profile     *trace.Profile
}

// NewTransactionPointBuilder returns an empty builder ready to accept
// traces.
func NewTransactionPointBuilder() *TransactionPointBuilder {
	return &TransactionPointBuilder{}
}

// Add folds one trace's duration into the count/total/min/max
// counters.
func (b *TransactionPointBuilder) Add(durationNanos int64) {
	if b.count == 0 {
		b.minNanos = durationNanos
		b.maxNanos = durationNanos
	} else {
		if durationNanos < b.minNanos {
			b.minNanos = durationNanos
		}
		if durationNanos > b.maxNanos {
			b.maxNanos = durationNanos
		}
	}
	b.count++
	b.totalNanos += durationNanos
}

// IncrementErrorCount folds in one more trace that ended in error.
func (b *TransactionPointBuilder) IncrementErrorCount() { b.errorCount++ }

// IncrementStoredCount folds in one more trace that will be persisted
// by the (out of scope) span/trace store.
func (b *TransactionPointBuilder) IncrementStoredCount() { b.storedCount++ }

// MergeMetrics merges one trace's root metric tree into this builder's
// running merged tree.
func (b *TransactionPointBuilder) MergeMetrics(root *trace.TraceMetric) {
	if b.merged == nil {
		b.merged = newMergedMetric(root.MetricName().String())
	}
	b.merged.mergeNode(root)
}

// MergeProfile merges a trace's sampled profile into this builder's
// running profile, if present.
func (b *TransactionPointBuilder) MergeProfile(p *trace.Profile) {
	if p == nil {
		return
	}
	if b.profile == nil {
		b.profile = trace.NewProfile(nil)
	}
	b.profile.Merge(p)
}

// Build produces the immutable TransactionPoint for this window. It may
// be called at most once per builder in practice (the aggregator seals
// a window before building), but is not itself state-mutating, so
// calling it more than once is harmless.
func (b *TransactionPointBuilder) Build(captureTime int64, transactionType, transactionName string) *TransactionPoint {
	return &TransactionPoint{
		CaptureTime:     captureTime,
		TransactionType: transactionType,
		TransactionName: transactionName,
		TotalNanos:      b.totalNanos,
		Count:           b.count,
		MinNanos:        b.minNanos,
		MaxNanos:        b.maxNanos,
		ErrorCount:      b.errorCount,
		StoredCount:     b.storedCount,
		Metrics:         b.merged,
		Profile:         b.profile,
	}
}
