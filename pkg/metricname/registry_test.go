package metricname

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameForInternsSameTextToSamePointer(t *testing.T) {
	r := NewRegistry()

	a := r.NameFor("http-request")
	b := r.NameFor("http-request")

	assert.Same(t, a, b)
	assert.Equal(t, 1, r.Len())
}

func TestNameForDistinctTextGetsDistinctInstances(t *testing.T) {
	r := NewRegistry()

	a := r.NameFor("db-query")
	b := r.NameFor("cache-lookup")

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Len())
}

func TestStringReturnsInternedText(t *testing.T) {
	r := NewRegistry()
	n := r.NameFor("render-template")
	assert.Equal(t, "render-template", n.String())
}

func TestNilMetricNameStringIsEmpty(t *testing.T) {
	var n *MetricName
	assert.Equal(t, "", n.String())
}

func TestNameForIsSafeForConcurrentInterning(t *testing.T) {
	r := NewRegistry()

	const goroutines = 50
	names := make([][]*MetricName, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			out := make([]*MetricName, 10)
			for j := 0; j < 10; j++ {
				out[j] = r.NameFor("shared-op")
			}
			names[i] = out
		}(i)
	}
	wg.Wait()

	first := names[0][0]
	require.NotNil(t, first)
	for _, perGoroutine := range names {
		for _, n := range perGoroutine {
			assert.Same(t, first, n)
		}
	}
	assert.Equal(t, 1, r.Len())
}
