// Package metricname interns operation names into a single canonical
// instance per process, so the trace metric tree's hot path can use
// pointer identity instead of string comparison when matching a child
// metric against its parent's already-known children.
package metricname

import "sync"

// MetricName is an interned operation name. Two MetricNames compare
// equal (==) if and only if they were interned from the same text;
// the registry guarantees there is never more than one instance per
// text in a process.
type MetricName struct {
	name string
}

// String returns the operation name this MetricName was interned from.
func (m *MetricName) String() string {
	if m == nil {
		return ""
	}
	return m.name
}

// Registry interns MetricNames by text. The zero value is not usable;
// construct one with NewRegistry.
//
// Lookup follows the same read-mostly double-checked-locking shape as a
// level lookup in a hierarchical metric tree: an RLock-guarded read for
// the common case of an already-interned name, and a Lock-guarded
// insert (re-checked after acquiring the write lock, since another
// goroutine may have interned the same name while this one waited) for
// the rare case of a brand-new operation name.
type Registry struct {
	mu    sync.RWMutex
	names map[string]*MetricName
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]*MetricName, 64)}
}

// NameFor returns the canonical MetricName for text, interning it on
// first use. Safe for concurrent use by any number of goroutines.
func (r *Registry) NameFor(text string) *MetricName {
	r.mu.RLock()
	n, ok := r.names[text]
	r.mu.RUnlock()
	if ok {
		return n
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.names[text]; ok {
		return n
	}
	n = &MetricName{name: text}
	r.names[text] = n
	return n
}

// Len reports how many distinct names have been interned. Intended for
// diagnostics/tests, not the hot path.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
