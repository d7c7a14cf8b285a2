// Package snapshot is the pure translation of a trace.MetricSnapshot
// into its wire envelope. It holds no state of its own: every call is a
// stateless encode of whatever tree it is handed.
package snapshot

import (
	"encoding/json"
	"io"

	"github.com/Radioafricagroup/glowroot/internal/trace"
)

// envelope mirrors a node's JSON shape on the wire. nestedMetrics is
// omitted entirely when there are no children.
type envelope struct {
	Name          string      `json:"name"`
	Total         int64       `json:"total"`
	Min           int64       `json:"min"`
	Max           int64       `json:"max"`
	Count         int64       `json:"count"`
	Active        bool        `json:"active"`
	MinActive     bool        `json:"minActive"`
	MaxActive     bool        `json:"maxActive"`
	NestedMetrics []*envelope `json:"nestedMetrics,omitempty"`
}

func toEnvelope(n *trace.MetricSnapshot) *envelope {
	e := &envelope{
		Name:      n.Name,
		Total:     n.Total,
		Min:       n.Min,
		Max:       n.Max,
		Count:     n.Count,
		Active:    n.Active,
		MinActive: n.MinActive,
		MaxActive: n.MaxActive,
	}
	if len(n.Nested) > 0 {
		e.NestedMetrics = make([]*envelope, len(n.Nested))
		for i, c := range n.Nested {
			e.NestedMetrics[i] = toEnvelope(c)
		}
	}
	return e
}

// Write encodes node's snapshot envelope to out. Any write error is
// propagated to the caller unchanged; node itself is never mutated by
// this package, so an I/O failure here leaves no internal state to
// clean up.
func Write(out io.Writer, node *trace.MetricSnapshot) error {
	return json.NewEncoder(out).Encode(toEnvelope(node))
}

// Marshal is a convenience wrapper for callers that want the encoded
// bytes directly rather than streaming to a writer.
func Marshal(node *trace.MetricSnapshot) ([]byte, error) {
	return json.Marshal(toEnvelope(node))
}
