package aggregator

import (
	"encoding/json"
	"math"

	"github.com/Radioafricagroup/glowroot/internal/trace"
)

// MergedMetric is the accumulator a TransactionPointBuilder folds many
// traces' root TraceMetric trees into - a merged metric tree spanning
// every trace in a window. Unlike TraceMetric it is never active: it
// only ever accumulates completed counters, so it needs none of
// TraceMetric's hot-path machinery (no nesting level, no concurrent
// readers).
type MergedMetric struct {
	Name  string
	Total int64
	Min   int64
	Max   int64
	Count int64

	children map[string]*MergedMetric
	order    []*MergedMetric
}

func newMergedMetric(name string) *MergedMetric {
	return &MergedMetric{Name: name, Min: math.MaxInt64, Max: math.MinInt64}
}

// Children returns this node's children in first-merge order.
func (mm *MergedMetric) Children() []*MergedMetric { return mm.order }

// mergedMetricJSON mirrors MergedMetric for encoding, since order and
// children are unexported to keep the merge map and its iteration order
// from being mutated by callers.
type mergedMetricJSON struct {
	Name     string          `json:"name"`
	Total    int64           `json:"total"`
	Min      int64           `json:"min"`
	Max      int64           `json:"max"`
	Count    int64           `json:"count"`
	Children []*MergedMetric `json:"children,omitempty"`
}

// MarshalJSON implements json.Marshaler, exposing children in merge
// order alongside the exported counters.
func (mm *MergedMetric) MarshalJSON() ([]byte, error) {
	return json.Marshal(mergedMetricJSON{
		Name:     mm.Name,
		Total:    mm.Total,
		Min:      mm.Min,
		Max:      mm.Max,
		Count:    mm.Count,
		Children: mm.order,
	})
}

// mergeNode folds one completed TraceMetric subtree into mm. Once a
// Trace has been handed to TransactionAggregator.Add, the trace thread
// that produced it must never touch it again - the consumer goroutine
// becomes its sole owner - so reading src's trace-thread-only
// accessors here is safe despite them being off-limits to arbitrary
// readers.
func (mm *MergedMetric) mergeNode(src *trace.TraceMetric) {
	if c := src.Count(); c > 0 {
		if mm.Count == 0 {
			mm.Min = src.Min()
			mm.Max = src.Max()
		} else {
			if src.Min() < mm.Min {
				mm.Min = src.Min()
			}
			if src.Max() > mm.Max {
				mm.Max = src.Max()
			}
		}
		mm.Count += c
	}
	mm.Total += src.Total()

	for _, sc := range src.Children() {
		name := sc.MetricName().String()
		child, ok := mm.children[name]
		if !ok {
			child = newMergedMetric(name)
			if mm.children == nil {
				mm.children = make(map[string]*MergedMetric, 8)
			}
			mm.children[name] = child
			mm.order = append(mm.order, child)
		}
		child.mergeNode(sc)
	}
}
