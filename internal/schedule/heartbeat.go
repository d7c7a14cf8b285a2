// Package schedule runs low-frequency maintenance jobs around the
// aggregator via gocron rather than hand-rolled tickers. This is
// strictly supplementary: the aggregator's own consumer loop wakeup is
// never routed through this scheduler.
package schedule

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Radioafricagroup/glowroot/pkg/log"
)

// AggregatorStats is the narrow slice of TransactionAggregator this
// package needs, kept as an interface so it can be faked in tests
// without depending on the aggregator package's internals.
type AggregatorStats interface {
	QueueDepth() int
	CurrentWindowCaptureTime() int64
}

// Heartbeat periodically logs aggregator health. It wraps a
// gocron.Scheduler: one scheduler, one registered job, started and
// stopped as a unit.
type Heartbeat struct {
	scheduler gocron.Scheduler
}

// StartHeartbeat registers and starts a job that logs stats's queue
// depth and current window every interval.
func StartHeartbeat(stats AggregatorStats, interval time.Duration) (*Heartbeat, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			log.Debugf("aggregator heartbeat: queue_depth=%d current_window=%d",
				stats.QueueDepth(), stats.CurrentWindowCaptureTime())
		}),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	return &Heartbeat{scheduler: s}, nil
}

// Stop shuts the scheduler down, waiting for any in-flight job run to
// finish.
func (h *Heartbeat) Stop() error {
	return h.scheduler.Shutdown()
}
