// Package aggregator implements TransactionAggregator: the
// single-producer-many-writer / single-consumer pipeline that buckets
// completed traces into wall-clock-aligned windows and flushes closed
// windows asynchronously to a TransactionPointRepository.
package aggregator

import (
	"sync"
	"time"

	"github.com/Radioafricagroup/glowroot/internal/trace"
	"github.com/Radioafricagroup/glowroot/pkg/clock"
	"github.com/Radioafricagroup/glowroot/pkg/log"
)

const defaultPollGraceMillis = 1000

// Observer receives best-effort notifications about aggregator
// activity. It exists purely for self-observability (see
// internal/metrics) and is never load-bearing: a nil Observer, or one
// whose methods do nothing, changes no other behavior in this package.
type Observer interface {
	OnEnqueue(queueDepth int)
	OnWindowOpened(captureTime int64)
	OnWindowFlushed(captureTime int64)
	OnFlushError(captureTime int64, err error)
}

type noopObserver struct{}

func (noopObserver) OnEnqueue(int)             {}
func (noopObserver) OnWindowOpened(int64)      {}
func (noopObserver) OnWindowFlushed(int64)     {}
func (noopObserver) OnFlushError(int64, error) {}

// Config configures a TransactionAggregator. IntervalMillis is the
// configured aggregation interval, already converted from seconds to
// milliseconds; it must be positive.
type Config struct {
	IntervalMillis  int64
	PollGraceMillis int64
	Observer        Observer
}

// TransactionAggregator rolls completed traces into fixed-interval
// windows and flushes them to a repository. Construct one with New; it
// immediately starts its dedicated consumer goroutine and runs until
// Close is called.
type TransactionAggregator struct {
	clock    clock.Clock
	executor Executor
	repo     TransactionPointRepository
	observer Observer

	intervalMillis  int64
	pollGraceMillis int64

	queue *pendingQueue

	// producerMu serializes Add's enqueue against maybeCloseWindow,
	// which is the only way to guarantee the queue stays ordered by
	// captureTime. No aggregation work happens while it is held.
	producerMu    sync.Mutex
	currentWindow *Aggregates

	closed chan struct{}
	done   chan struct{}
}

// New constructs and starts a TransactionAggregator.
func New(clk clock.Clock, repo TransactionPointRepository, executor Executor, cfg Config) *TransactionAggregator {
	grace := cfg.PollGraceMillis
	if grace <= 0 {
		grace = defaultPollGraceMillis
	}
	obs := cfg.Observer
	if obs == nil {
		obs = noopObserver{}
	}

	a := &TransactionAggregator{
		clock:           clk,
		executor:        executor,
		repo:            repo,
		observer:        obs,
		intervalMillis:  cfg.IntervalMillis,
		pollGraceMillis: grace,
		queue:           newPendingQueue(),
		closed:          make(chan struct{}),
		done:            make(chan struct{}),
	}
	a.currentWindow = NewAggregates(clock.AlignUp(clk.NowMillis(), a.intervalMillis))
	a.observer.OnWindowOpened(a.currentWindow.CaptureTime)

	go a.run()
	return a
}

// Add enqueues a completed trace and returns the wall-clock capture
// time it was stamped with. The mutex taken here exists solely to keep
// the queue FIFO-ordered by captureTime; no aggregation happens under
// it.
func (a *TransactionAggregator) Add(t *trace.Trace, willBeStored bool) int64 {
	a.producerMu.Lock()
	defer a.producerMu.Unlock()

	captureTime := a.clock.NowMillis()
	depth := a.queue.push(PendingAggregation{CaptureTime: captureTime, Trace: t, WillBeStored: willBeStored})
	a.observer.OnEnqueue(depth)
	return captureTime
}

// QueueDepth reports the current queue length, for diagnostics/tests
// and the periodic heartbeat job in internal/schedule.
func (a *TransactionAggregator) QueueDepth() int {
	return a.queue.depth()
}

// CurrentWindowCaptureTime reports the capture time of the window the
// consumer is currently folding traces into.
func (a *TransactionAggregator) CurrentWindowCaptureTime() int64 {
	a.producerMu.Lock()
	defer a.producerMu.Unlock()
	return a.currentWindow.CaptureTime
}

func (a *TransactionAggregator) run() {
	defer close(a.done)
	for {
		select {
		case <-a.closed:
			return
		default:
		}

		waitMs := a.currentWindow.CaptureTime - a.clock.NowMillis()
		if waitMs < 0 {
			waitMs = 0
		}
		waitMs += a.pollGraceMillis

		p, ok := a.queue.poll(time.Duration(waitMs)*time.Millisecond, a.closed)
		if !ok {
			select {
			case <-a.closed:
				return
			default:
			}
			a.maybeCloseWindow()
			continue
		}

		if p.CaptureTime > a.currentWindow.CaptureTime {
			a.rollover(p.CaptureTime)
		}

		a.currentWindow.Add(p.Trace, p.WillBeStored)
	}
}

// maybeCloseWindow closes the current window if the queue has drained
// and wall-clock time has moved past it. Holding producerMu here is
// load-bearing: it guarantees no producer is mid-Add with a captureTime
// that predates the window being closed.
func (a *TransactionAggregator) maybeCloseWindow() {
	a.producerMu.Lock()
	defer a.producerMu.Unlock()

	if !a.queue.empty() {
		return
	}
	if a.clock.NowMillis() <= a.currentWindow.CaptureTime {
		return
	}

	a.submitFlush(a.currentWindow)
	a.currentWindow = NewAggregates(clock.AlignUp(a.clock.NowMillis(), a.intervalMillis))
	a.observer.OnWindowOpened(a.currentWindow.CaptureTime)
}

func (a *TransactionAggregator) rollover(newCaptureTime int64) {
	a.producerMu.Lock()
	defer a.producerMu.Unlock()

	a.submitFlush(a.currentWindow)
	a.currentWindow = NewAggregates(clock.AlignUp(newCaptureTime, a.intervalMillis))
	a.observer.OnWindowOpened(a.currentWindow.CaptureTime)
}

// submitFlush dispatches window to the executor. For each type bucket
// it builds the overall point and every per-transaction-name point,
// then calls repository.Store once per type. A failed Store is logged
// and that type's points are dropped (the other type bucket of the same
// window is still stored): no trace data is ever retried.
func (a *TransactionAggregator) submitFlush(window *Aggregates) {
	captureTime := window.CaptureTime
	a.executor.Submit(func() {
		window.Seal(func(transactionType string, ta *TypeAggregates) {
			overall := ta.Overall.Build(captureTime, transactionType, "")

			perTransaction := make(map[string]*TransactionPoint, len(ta.PerTransaction))
			for name, b := range ta.PerTransaction {
				perTransaction[name] = b.Build(captureTime, transactionType, name)
			}

			if err := a.repo.Store(transactionType, overall, perTransaction); err != nil {
				log.Warnf("aggregator: flush of window %d (type %q) failed: %s", captureTime, transactionType, err.Error())
				a.observer.OnFlushError(captureTime, err)
				return
			}
			a.observer.OnWindowFlushed(captureTime)
		})
	})
}

// Close interrupts the consumer goroutine and waits for it to exit.
// This is bounded in time and does not guarantee that traces already
// added before Close have been flushed - the last, still-open window is
// simply abandoned unflushed.
func (a *TransactionAggregator) Close() {
	select {
	case <-a.closed:
	default:
		close(a.closed)
	}
	<-a.done
}
