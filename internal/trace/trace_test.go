package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Radioafricagroup/glowroot/pkg/metricname"
)

// fakeTicker is a deterministic clock.Ticker for tests: each call to
// Now() advances by 1 and returns the new value, so durations are
// exactly controllable.
type fakeTicker struct {
	now int64
}

func (f *fakeTicker) Now() int64 {
	f.now++
	return f.now
}

func (f *fakeTicker) advance(n int64) { f.now += n }

func newRegistry() *metricname.Registry { return metricname.NewRegistry() }

func TestSingleRootStartEnd(t *testing.T) {
	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}

	root := NewRoot(names.NameFor("tx"), ticker, holder)
	holder.Set(root)

	root.Start(10)
	root.End(25)

	assert.EqualValues(t, 1, root.Count())
	assert.EqualValues(t, 15, root.Total())
	assert.EqualValues(t, 15, root.Min())
	assert.EqualValues(t, 15, root.Max())
	assert.Nil(t, holder.Get())
}

func TestRecursionFastPathMergesIntoSameNode(t *testing.T) {
	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}

	root := NewRoot(names.NameFor("recursive"), ticker, holder)
	holder.Set(root)

	root.Start(0)
	// Re-entrant call to the same metric name from inside itself: must
	// not allocate a child, must bump the same node's nesting level.
	inner := root.StartNested(names.NameFor("recursive"), 5)
	require.Same(t, root, inner)
	assert.Empty(t, root.Children())

	inner.End(8) // inner End is a no-op fold point: level drops 2->1
	assert.Zero(t, root.Count(), "outermost End has not happened yet")

	root.End(20)
	assert.EqualValues(t, 1, root.Count())
	assert.EqualValues(t, 20, root.Total())
}

func TestStartNestedCreatesDistinctChildren(t *testing.T) {
	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}

	root := NewRoot(names.NameFor("tx"), ticker, holder)
	holder.Set(root)
	root.Start(0)

	a := root.StartNested(names.NameFor("a"), 1)
	a.End(4)
	b := root.StartNested(names.NameFor("b"), 5)
	b.End(9)

	root.End(10)

	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "a", children[0].MetricName().String())
	assert.Equal(t, "b", children[1].MetricName().String())
	assert.EqualValues(t, 3, children[0].Total())
	assert.EqualValues(t, 4, children[1].Total())
}

func TestLastChildCacheReusesSameNodeAcrossSiblingCalls(t *testing.T) {
	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}

	root := NewRoot(names.NameFor("tx"), ticker, holder)
	holder.Set(root)
	root.Start(0)

	first := root.StartNested(names.NameFor("loop-body"), 1)
	first.End(3)
	second := root.StartNested(names.NameFor("loop-body"), 4)
	second.End(7)

	root.End(10)

	require.Same(t, first, second)
	assert.EqualValues(t, 2, first.Count())
	assert.EqualValues(t, 5, first.Total())
	assert.Len(t, root.Children(), 1)
}

func TestEndWithoutMatchingStartIsNoOpByDefault(t *testing.T) {
	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}

	root := NewRoot(names.NameFor("tx"), ticker, holder)
	root.End(100) // never started

	assert.Zero(t, root.Count())
	assert.Zero(t, root.Total())
}

func TestEndWithoutMatchingStartPanicsWhenStrict(t *testing.T) {
	old := StrictNesting
	StrictNesting = true
	defer func() { StrictNesting = old }()

	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}
	root := NewRoot(names.NameFor("tx"), ticker, holder)

	assert.Panics(t, func() { root.End(1) })
}

func TestMinMaxOnNeverCompletedNodeIsZero(t *testing.T) {
	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}
	root := NewRoot(names.NameFor("tx"), ticker, holder)

	assert.Zero(t, root.Min())
	assert.Zero(t, root.Max())
}

func TestSnapshotOfCompletedTreeMatchesCounters(t *testing.T) {
	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}

	root := NewRoot(names.NameFor("tx"), ticker, holder)
	holder.Set(root)
	root.Start(0)
	child := root.StartNested(names.NameFor("child"), 1)
	child.End(4)
	root.End(10)

	snap := root.Snapshot()
	assert.Equal(t, "tx", snap.Name)
	assert.EqualValues(t, 10, snap.Total)
	assert.False(t, snap.Active)
	require.Len(t, snap.Nested, 1)
	assert.Equal(t, "child", snap.Nested[0].Name)
	assert.EqualValues(t, 3, snap.Nested[0].Total)
}

func TestSnapshotOfActiveNodeReportsActiveAndApproximateTotal(t *testing.T) {
	names := newRegistry()
	ticker := &fakeTicker{}
	holder := &CurrentMetricHolder{}

	root := NewRoot(names.NameFor("tx"), ticker, holder)
	holder.Set(root)
	root.Start(0)

	ticker.advance(50)
	snap := root.Snapshot()

	assert.True(t, snap.Active)
	assert.GreaterOrEqual(t, snap.Total, int64(50))

	root.End(ticker.Now())
}
