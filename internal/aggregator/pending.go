package aggregator

import "github.com/Radioafricagroup/glowroot/internal/trace"

// PendingAggregation is the immutable record enqueued by Add and drained
// by the consumer goroutine.
type PendingAggregation struct {
	CaptureTime  int64
	Trace        *trace.Trace
	WillBeStored bool
}
