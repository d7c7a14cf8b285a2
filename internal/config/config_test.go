package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"fixedAggregationIntervalSeconds": 30,
		"sink": "nats",
		"natsSink": {"address": "nats://broker:4222", "subjectPrefix": "svc.aggregates"}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.EqualValues(t, 30, cfg.FixedAggregationIntervalSeconds)
	assert.Equal(t, SinkNATS, cfg.Sink)
	assert.Equal(t, "nats://broker:4222", cfg.NATSSink.Address)
	// fields absent from the overlay keep their Default() values.
	assert.Equal(t, Default().SQLiteSink, cfg.SQLiteSink)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bogusField": 1}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fixedAggregationIntervalSeconds": 0}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownSink(t *testing.T) {
	err := Validate(Schema, []byte(`{"sink": "carrier-pigeon"}`))
	assert.Error(t, err)
}
