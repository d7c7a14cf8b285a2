//go:build glowroot_plain_nesting

package trace

// nestingLevel built with glowroot_plain_nesting is a bare int32: no
// atomic, no fence. It is roughly 2x cheaper per Start/End pair than the
// default atomic.Int32 build, at the cost of the release/acquire
// guarantee the default build relies on - a concurrent Snapshot reader
// may observe torn or stale values with no bound on the staleness. This
// is an acknowledged, deliberate trade-off that must stay flagged: it
// is never the default, and selecting it is a build-time, not a
// runtime, decision.
type nestingLevel struct {
	v int32
}

func (n *nestingLevel) inc()        { n.v++ }
func (n *nestingLevel) dec()        { n.v-- }
func (n *nestingLevel) load() int32 { return n.v }
