// Package config loads and validates the agent's runtime configuration:
// a JSON document is checked against an inline JSON Schema before being
// unmarshaled into a typed Config.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// SinkKind selects which TransactionPointRepository implementation the
// demo binary wires the aggregator to.
type SinkKind string

const (
	SinkNATS   SinkKind = "nats"
	SinkSQLite SinkKind = "sqlite"
)

// Config is the agent's top-level configuration.
type Config struct {
	// FixedAggregationIntervalSeconds is the window width the
	// TransactionAggregator rolls completed traces into.
	FixedAggregationIntervalSeconds int64 `json:"fixedAggregationIntervalSeconds"`

	// ExecutorParallelism sizes the flush worker pool. A value <= 0
	// means the aggregator picks a default from NumCPU.
	ExecutorParallelism int `json:"executorParallelism"`

	// QueuePollGraceMillis pads the consumer loop's wakeup beyond the
	// next window boundary, absorbing scheduling jitter before a
	// window is closed too eagerly.
	QueuePollGraceMillis int64 `json:"queuePollGraceMillis"`

	Sink       SinkKind         `json:"sink"`
	NATSSink   NATSSinkConfig   `json:"natsSink"`
	SQLiteSink SQLiteSinkConfig `json:"sqliteSink"`

	Snapshot SnapshotConfig `json:"snapshot"`
}

// NATSSinkConfig configures internal/sink/natssink.
type NATSSinkConfig struct {
	Address       string `json:"address"`
	SubjectPrefix string `json:"subjectPrefix"`
}

// SQLiteSinkConfig configures internal/sink/sqlitestore.
type SQLiteSinkConfig struct {
	Path string `json:"path"`
}

// SnapshotConfig configures the debug snapshot HTTP handler.
type SnapshotConfig struct {
	RatePerSecond float64 `json:"ratePerSecond"`
	Burst         int     `json:"burst"`
}

// Default returns a Config with the values the demo binary falls back
// to when no config file is given.
func Default() Config {
	return Config{
		FixedAggregationIntervalSeconds: 60,
		ExecutorParallelism:             0,
		QueuePollGraceMillis:            1000,
		Sink:                            SinkSQLite,
		SQLiteSink:                      SQLiteSinkConfig{Path: "./glowroot-agent.db"},
		NATSSink:                        NATSSinkConfig{Address: "nats://localhost:4222", SubjectPrefix: "glowroot.aggregates"},
		Snapshot:                        SnapshotConfig{RatePerSecond: 5, Burst: 10},
	}
}

// Load reads and validates the config file at path, overlaying it onto
// Default(). A missing file is not an error: Default() is returned
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	if err := Validate(Schema, raw); err != nil {
		return Config{}, fmt.Errorf("config: validate %q: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %q: %w", path, err)
	}

	if cfg.FixedAggregationIntervalSeconds <= 0 {
		return Config{}, fmt.Errorf("config: fixedAggregationIntervalSeconds must be positive, got %d", cfg.FixedAggregationIntervalSeconds)
	}

	return cfg, nil
}
