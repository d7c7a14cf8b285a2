// Command glowrootagent is a thin demo binary wiring the trace metric
// tree and transaction aggregator into a runnable process: it
// generates a small synthetic workload, aggregates it, flushes windows
// to a configurable sink, serves debug snapshots over HTTP, and exports
// Prometheus metrics about its own operation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Radioafricagroup/glowroot/internal/aggregator"
	"github.com/Radioafricagroup/glowroot/internal/config"
	"github.com/Radioafricagroup/glowroot/internal/metrics"
	"github.com/Radioafricagroup/glowroot/internal/schedule"
	"github.com/Radioafricagroup/glowroot/internal/sink/natssink"
	"github.com/Radioafricagroup/glowroot/internal/sink/sqlitestore"
	"github.com/Radioafricagroup/glowroot/internal/snapshot"
	"github.com/Radioafricagroup/glowroot/internal/trace"
	"github.com/Radioafricagroup/glowroot/pkg/clock"
	"github.com/Radioafricagroup/glowroot/pkg/log"
	"github.com/Radioafricagroup/glowroot/pkg/metricname"
	"github.com/Radioafricagroup/glowroot/pkg/nats"
)

var (
	flagConfigFile = flag.String("config", "", "path to a JSON config file (optional)")
	flagAddr       = flag.String("addr", ":8090", "address for the debug/metrics HTTP server")
	flagLogLevel   = flag.String("loglevel", "info", "debug, info, notice, warn, err or crit")
)

func main() {
	flag.Parse()
	log.SetLogLevel(*flagLogLevel)

	cfg, err := config.Load(*flagConfigFile)
	if err != nil {
		log.Fatalf("config: %s", err.Error())
	}

	repo, closeRepo := mustOpenSink(cfg)
	defer closeRepo()

	registry := prometheus.NewRegistry()
	obs := metrics.NewAggregator(registry)

	agg := aggregator.New(
		clock.System{},
		repo,
		aggregator.NewWorkerPool(cfg.ExecutorParallelism),
		aggregator.Config{
			IntervalMillis:  cfg.FixedAggregationIntervalSeconds * 1000,
			PollGraceMillis: cfg.QueuePollGraceMillis,
			Observer:        obs,
		},
	)
	defer agg.Close()

	heartbeat, err := schedule.StartHeartbeat(agg, 30*time.Second)
	if err != nil {
		log.Fatalf("schedule: %s", err.Error())
	}
	defer heartbeat.Stop()

	names := metricname.NewRegistry()
	inFlight := newTraceRegistry()

	var wg sync.WaitGroup
	stopWorkload := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		runWorkload(names, inFlight, agg, stopWorkload)
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/trace-snapshot/", snapshot.NewHandler(inFlight.lookup, cfg.Snapshot.RatePerSecond, cfg.Snapshot.Burst))

	server := &http.Server{Addr: *flagAddr, Handler: mux}
	go func() {
		log.Infof("HTTP server listening at %s", *flagAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server: %s", err.Error())
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("shutting down")
	close(stopWorkload)
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %s", err.Error())
	}

	log.Info("shutdown complete")
}

func mustOpenSink(cfg config.Config) (aggregator.TransactionPointRepository, func()) {
	switch cfg.Sink {
	case config.SinkNATS:
		if err := nats.Init(json.RawMessage(fmt.Sprintf(
			`{"address":%q}`, cfg.NATSSink.Address))); err != nil {
			log.Fatalf("nats sink: %s", err.Error())
		}
		nats.Connect()
		client := nats.GetClient()
		if client == nil {
			log.Fatalf("nats sink: failed to connect to %s", cfg.NATSSink.Address)
		}
		return natssink.New(client, cfg.NATSSink.SubjectPrefix), func() { client.Close() }

	case config.SinkSQLite, "":
		store, err := sqlitestore.Open(cfg.SQLiteSink.Path)
		if err != nil {
			log.Fatalf("sqlite sink: %s", err.Error())
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warnf("sqlite sink close: %s", err.Error())
			}
		}

	default:
		log.Fatalf("unknown sink kind %q", cfg.Sink)
		return nil, func() {}
	}
}

// traceRegistry is the tiny in-flight-trace index the snapshot handler
// needs; a real agent would key this off its own request-tracking
// layer, out of scope here.
type traceRegistry struct {
	mu      sync.Mutex
	byID    map[string]*trace.TraceMetric
	counter int64
}

func newTraceRegistry() *traceRegistry {
	return &traceRegistry{byID: make(map[string]*trace.TraceMetric)}
}

func (r *traceRegistry) register(root *trace.TraceMetric) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	id := fmt.Sprintf("%d", r.counter)
	r.byID[id] = root
	return id
}

func (r *traceRegistry) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *traceRegistry) lookup(id string) (*trace.TraceMetric, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tm, ok := r.byID[id]
	return tm, ok
}

var workloadOperations = []string{"http-request", "db-query", "cache-lookup", "render-template"}

// runWorkload synthesizes a small stream of fake traces until stop is
// closed, exercising the full trace-metric/aggregator pipeline the way
// an instrumented application would.
func runWorkload(names *metricname.Registry, reg *traceRegistry, agg *aggregator.TransactionAggregator, stop <-chan struct{}) {
	ticker := clock.System{}
	rootName := names.NameFor("transaction")

	for {
		select {
		case <-stop:
			return
		default:
		}

		holder := &trace.CurrentMetricHolder{}
		root := trace.NewRoot(rootName, ticker, holder)
		holder.Set(root)
		root.StartTick()

		id := reg.register(root)
		simulateNestedWork(names, root)

		root.Stop()
		reg.unregister(id)

		tr := &trace.Trace{
			Root:            root,
			TransactionName: workloadOperations[rand.Intn(len(workloadOperations))],
			TransactionType: "",
			Background:      rand.Intn(5) == 0,
			DurationNanos:   root.Total(),
		}
		if rand.Intn(20) == 0 {
			tr.Err = fmt.Errorf("synthetic failure")
		}

		agg.Add(tr, rand.Intn(3) == 0)

		select {
		case <-stop:
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func simulateNestedWork(names *metricname.Registry, root *trace.TraceMetric) {
	for i := 0; i < 1+rand.Intn(3); i++ {
		childName := names.NameFor(workloadOperations[rand.Intn(len(workloadOperations))])
		child := root.StartNestedTick(childName)
		time.Sleep(time.Duration(rand.Intn(500)) * time.Microsecond)
		child.Stop()
	}
}
