package trace

// MetricSnapshot is the structural data backing the external snapshot
// envelope. Building it is the only operation on
// TraceMetric safe to call from a goroutine other than the trace
// thread: it never mutates the node, and it never blocks the trace
// thread for longer than a child-slice copy.
type MetricSnapshot struct {
	Name      string
	Total     int64
	Min       int64
	Max       int64
	Count     int64
	Active    bool
	MinActive bool
	MaxActive bool
	Nested    []*MetricSnapshot
}

// Snapshot builds a point-in-time (and, for an active node, necessarily
// approximate) view of this node and its children, following this
// procedure exactly:
//
//  1. selfNestingLevel is read first; it is the acquire-fence readers
//     use before trusting anything else.
//  2. An inactive node emits its counters unmodified, except that a
//     node with count 0 reports min and max as 0 rather than its
//     internal sentinels.
//  3. An active node reads total, then startTick (in that order), then
//     samples curr = ticker.Now() - startTick, and folds curr into the
//     emitted counters without mutating the node itself. The ordering
//     is chosen so that a concurrent completion of the outermost call
//     can only make the snapshot understate total, never overstate it.
//  4. Children are copied from the published snapshot slice and
//     recursed into.
func (m *TraceMetric) Snapshot() *MetricSnapshot {
	active := m.selfNestingLevel.load() > 0

	out := &MetricSnapshot{Name: m.metricName.String()}

	if !active {
		out.Total = m.total
		if m.count > 0 {
			out.Min = m.min
			out.Max = m.max
		}
		out.Count = m.count
	} else {
		total := m.total
		startTick := m.startTick
		curr := m.ticker.Now() - startTick
		if curr < 0 {
			curr = 0
		}

		if total == 0 {
			out.Total = curr
			out.Min = curr
			out.Max = curr
			out.Count = 1
			out.Active = true
			out.MinActive = true
			out.MaxActive = true
		} else {
			out.Total = total + curr
			out.Min = m.min
			if curr > m.max {
				out.Max = curr
			} else {
				out.Max = m.max
			}
			out.Count = m.count + 1
			out.Active = true
			out.MinActive = false
			out.MaxActive = curr > m.max
		}
	}

	if children := m.Children(); len(children) > 0 {
		out.Nested = make([]*MetricSnapshot, len(children))
		for i, c := range children {
			out.Nested[i] = c.Snapshot()
		}
	}

	return out
}
