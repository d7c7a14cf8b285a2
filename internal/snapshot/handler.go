package snapshot

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Radioafricagroup/glowroot/internal/trace"
	"github.com/Radioafricagroup/glowroot/pkg/log"
)

// Lookup resolves a trace id to its root TraceMetric, as currently
// tracked by whatever in-flight-trace registry the host application
// keeps (out of scope here; this module only requires that Snapshot be
// callable concurrently with the hot path).
type Lookup func(id string) (*trace.TraceMetric, bool)

// Handler serves GET /debug/trace-snapshot/{id}, rendering the JSON
// envelope for an in-flight (or just-completed) trace. Requests are
// rate-limited: a burst of monitoring-UI polls must never be able to
// compete with the trace thread for CPU on a busy host.
type Handler struct {
	lookup  Lookup
	limiter *rate.Limiter
}

// NewHandler builds a Handler that allows up to ratePerSecond requests
// per second, with a burst of burst requests.
func NewHandler(lookup Lookup, ratePerSecond float64, burst int) *Handler {
	return &Handler{
		lookup:  lookup,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/debug/trace-snapshot/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	tm, ok := h.lookup(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := Write(w, tm.Snapshot()); err != nil {
		log.Warnf("snapshot: failed writing trace %q: %s", id, err.Error())
	}
}
