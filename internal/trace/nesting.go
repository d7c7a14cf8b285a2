//go:build !glowroot_plain_nesting

package trace

import "sync/atomic"

// nestingLevel is the release/acquire-ordered selfNestingLevel: the
// sole cross-thread synchronization point on the hot path. This is the
// default build; see nesting_plain.go for the documented, opt-in,
// reader-consistency-sacrificing alternative.
type nestingLevel struct {
	v atomic.Int32
}

func (n *nestingLevel) inc() { n.v.Add(1) }
func (n *nestingLevel) dec() { n.v.Add(-1) }
func (n *nestingLevel) load() int32 { return n.v.Load() }
