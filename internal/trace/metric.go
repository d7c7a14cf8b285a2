// Package trace implements the per-trace timing tree: the TraceMetric
// node recorded by instrumentation on the hot path, and the Trace that
// owns its root.
//
// A TraceMetric forms a node in a tree rooted at the trace's top-level
// operation (analogous to a Level node in a hierarchical metric store:
// a map of named children plus an ordered, thread-publishable snapshot
// of the same children). Exactly one goroutine - the "trace thread" -
// ever calls Start/StartNested/End/Stop. Any number of other goroutines
// may call Snapshot concurrently, at any time, without ever blocking the
// trace thread.
package trace

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/Radioafricagroup/glowroot/pkg/clock"
	"github.com/Radioafricagroup/glowroot/pkg/log"
	"github.com/Radioafricagroup/glowroot/pkg/metricname"
)

const initialChildCapacity = 16

// StrictNesting, when true, makes End calls that have no matching Start
// abort (panic) instead of being treated as a no-op. Mismatched nesting
// is a bug in the instrumented call site, never an expected runtime
// condition, so the default (false) favors not taking down the
// instrumented application over surfacing the bug loudly; flip this in
// debug builds/tests where a hard failure is preferable.
var StrictNesting = false

// TraceMetric is one named timer in a trace's tree. It aggregates
// count/total/min/max over its own completed (outermost) invocations,
// and owns any nested child timers reached via StartNested.
//
// Concurrency contract: every field below that is not an atomic is
// written only by the trace thread. startTick, total, min, max and
// count are plain (non-atomic) fields deliberately: selfNestingLevel is
// the sole synchronization point. The trace thread always writes
// startTick/the counters *before* advancing selfNestingLevel, and a
// reader always loads selfNestingLevel *before* reading those fields.
// Per the Go memory model, a happens-before edge from an atomic store
// to a later atomic load of the same variable extends to the plain
// reads/writes that precede/follow it in program order on each side -
// exactly the release/acquire discipline this node's contract requires. Building
// with -tags glowroot_plain_nesting (see nesting_plain.go) swaps
// selfNestingLevel for a bare int32, trading this consistency guarantee
// for roughly 2x less hot-path overhead; that trade-off must be an
// explicit, documented choice, never a silent default.
type TraceMetric struct {
	metricName *metricname.MetricName
	parent     *TraceMetric
	ticker     clock.Ticker
	holder     *CurrentMetricHolder

	selfNestingLevel nestingLevel

	startTick int64
	total     int64
	min       int64
	max       int64
	count     int64

	childrenMu       sync.Mutex
	childrenByName   map[*metricname.MetricName]*TraceMetric
	childrenSnapshot atomic.Pointer[[]*TraceMetric]
	lastChild        *TraceMetric
}

// NewRoot creates the root TraceMetric of a new trace. It does not start
// it; callers call Start (or StartTick) once the root's timer should
// begin.
func NewRoot(name *metricname.MetricName, ticker clock.Ticker, holder *CurrentMetricHolder) *TraceMetric {
	return newNode(name, nil, ticker, holder)
}

func newNode(name *metricname.MetricName, parent *TraceMetric, ticker clock.Ticker, holder *CurrentMetricHolder) *TraceMetric {
	return &TraceMetric{
		metricName: name,
		parent:     parent,
		ticker:     ticker,
		holder:     holder,
		min:        math.MaxInt64,
		max:        math.MinInt64,
	}
}

// MetricName returns the interned name this node was created for.
func (m *TraceMetric) MetricName() *metricname.MetricName { return m.metricName }

// Parent returns the owning node, or nil for a trace's root. Never call
// this from a reader goroutine: it exists solely for the trace thread to
// unwind back up the stack on End.
func (m *TraceMetric) Parent() *TraceMetric { return m.parent }

// Start begins an outermost (or re-entrant) invocation of this node at
// the given tick, and makes this node the trace's current cursor.
func (m *TraceMetric) Start(startTick int64) {
	m.startTick = startTick
	m.selfNestingLevel.inc()
	m.holder.Set(m)
}

// StartTick is a convenience wrapper that samples the ticker itself.
func (m *TraceMetric) StartTick() {
	m.Start(m.ticker.Now())
}

// StartNested enters a child operation under the node currently held by
// the CurrentMetricHolder. It must only be called on that node. Branch
// order is load-bearing:
//
//  1. recursion fast path: identical metricName -> bump this node's
//     nesting level and return it, never allocating a child;
//  2. cached-child fast path: lastChild matches by identity;
//  3. map lookup, creating childrenByName lazily;
//  4. create a brand-new child.
func (m *TraceMetric) StartNested(name *metricname.MetricName, startTick int64) *TraceMetric {
	if name == m.metricName {
		m.selfNestingLevel.inc()
		return m
	}

	if lc := m.lastChild; lc != nil && lc.metricName == name {
		lc.Start(startTick)
		return lc
	}

	if m.childrenByName != nil {
		if child, ok := m.childrenByName[name]; ok {
			child.Start(startTick)
			m.lastChild = child
			return child
		}
	}

	child := newNode(name, m, m.ticker, m.holder)
	if m.childrenByName == nil {
		m.childrenByName = make(map[*metricname.MetricName]*TraceMetric, initialChildCapacity)
	}
	m.childrenByName[name] = child
	m.appendChildSnapshot(child)
	child.Start(startTick)
	m.lastChild = child
	return child
}

// StartNestedTick is StartNested with the start tick sampled from the
// ticker.
func (m *TraceMetric) StartNestedTick(name *metricname.MetricName) *TraceMetric {
	return m.StartNested(name, m.ticker.Now())
}

func (m *TraceMetric) appendChildSnapshot(child *TraceMetric) {
	m.childrenMu.Lock()
	defer m.childrenMu.Unlock()
	var next []*TraceMetric
	if old := m.childrenSnapshot.Load(); old != nil {
		next = append(next, (*old)...)
	}
	next = append(next, child)
	m.childrenSnapshot.Store(&next)
}

// End closes an invocation at the given tick. On the outermost exit
// (selfNestingLevel was 1) it folds the elapsed duration into this
// node's count/total/min/max and restores the holder to this node's
// parent. A call with no matching Start (selfNestingLevel already 0) is
// a no-op unless StrictNesting is set.
func (m *TraceMetric) End(endTick int64) {
	level := m.selfNestingLevel.load()
	if level <= 0 {
		if StrictNesting {
			log.Panicf("trace: End called with no matching Start on metric %q", m.metricName.String())
		}
		log.Warnf("trace: End called with no matching Start on metric %q, ignoring", m.metricName.String())
		return
	}

	if level == 1 {
		duration := endTick - m.startTick
		if duration < m.min {
			m.min = duration
		}
		if duration > m.max {
			m.max = duration
		}
		m.count++
		m.total += duration
		m.holder.Set(m.parent)
	}

	m.selfNestingLevel.dec()
}

// Stop is End(ticker.Now()).
func (m *TraceMetric) Stop() {
	m.End(m.ticker.Now())
}

// Total, Count, Min, Max and Children are trace-thread-only accessors:
// calling them from any goroutine other than the one driving Start/End
// races with the hot path and is not supported.

func (m *TraceMetric) Total() int64 { return m.total }
func (m *TraceMetric) Count() int64 { return m.count }

func (m *TraceMetric) Min() int64 {
	if m.count == 0 {
		return 0
	}
	return m.min
}

func (m *TraceMetric) Max() int64 {
	if m.count == 0 {
		return 0
	}
	return m.max
}

// Children returns the current children in first-creation order. Like
// Total/Count, this is a trace-thread-only accessor; readers must go
// through Snapshot instead.
func (m *TraceMetric) Children() []*TraceMetric {
	if p := m.childrenSnapshot.Load(); p != nil {
		return *p
	}
	return nil
}
