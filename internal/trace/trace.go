package trace

// Trace is the root metric plus the metadata needed once it completes:
// which transaction it belongs to, whether it ended in error, and
// (optionally) the sampled call-tree profile a real agent would attach.
// Profile capture itself is out of scope here; Profile is kept as the
// handle TransactionPointBuilder.MergeProfile merges in when a trace
// carries one.
type Trace struct {
	Root            *TraceMetric
	TransactionName string
	TransactionType string
	Background      bool
	DurationNanos   int64
	Err             error
	FineProfile     *Profile
}

// IsBackground reports whether this trace should be folded into the
// "bg" bucket rather than the foreground ("") bucket.
func (t *Trace) IsBackground() bool { return t.Background }

// Profile is an opaque, mergeable call-tree sample. Its internal shape
// belongs to the (out of scope) stack-sampling layer; here it is only
// ever merged, never interpreted.
type Profile struct {
	data []byte
}

// NewProfile wraps an opaque sampled profile blob produced upstream.
func NewProfile(data []byte) *Profile {
	return &Profile{data: data}
}

// Merge appends another profile's samples onto this one. A real
// sampling layer would merge call-tree nodes; this core only needs to
// preserve a "merge, don't replace" contract.
func (p *Profile) Merge(other *Profile) {
	if other == nil {
		return
	}
	p.data = append(p.data, other.data...)
}
