package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 1, cfg.Orchestrator.Retries)
	assert.Equal(t, 200*time.Millisecond, cfg.Orchestrator.RetryBackoff)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown)
	require.NoError(t, validate(&cfg))
}

func TestLoadFrom_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veriflow.yaml")
	content := `
server:
  addr: ":9090"
orchestrator:
  retries: 3
  parallel_timeout: 2s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Orchestrator.Retries)
	assert.Equal(t, 2*time.Second, cfg.Orchestrator.ParallelTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields keep defaults.
	assert.Equal(t, 15*time.Second, cfg.Orchestrator.RequestDeadline)
}

func TestLoadFrom_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veriflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644))

	t.Setenv("VERIFLOW_ADDR", ":7070")
	t.Setenv("VERIFLOW_RETRIES", "0")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("VERIFLOW_AUDIT_SINK", "kafka")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 0, cfg.Orchestrator.Retries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "kafka", cfg.Audit.Sink)
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Orchestrator, cfg.Orchestrator)
	assert.Equal(t, Defaults().Breaker, cfg.Breaker)
}

func TestValidate(t *testing.T) {
	t.Run("kafka sink requires brokers", func(t *testing.T) {
		cfg := Defaults()
		cfg.Audit.Sink = "kafka"
		assert.ErrorContains(t, validate(&cfg), "kafka.brokers")
	})

	t.Run("postgres snapshot requires dsn", func(t *testing.T) {
		cfg := Defaults()
		cfg.Snapshot.Source = "postgres"
		assert.ErrorContains(t, validate(&cfg), "postgres.dsn")
	})

	t.Run("vendor timeout ceiling below floor", func(t *testing.T) {
		cfg := Defaults()
		cfg.Orchestrator.MaxVendorTimeout = cfg.Orchestrator.MinVendorTimeout / 2
		assert.ErrorContains(t, validate(&cfg), "vendor timeout bounds")
	})

	t.Run("unknown store backend", func(t *testing.T) {
		cfg := Defaults()
		cfg.Store.Backend = "etcd"
		assert.ErrorContains(t, validate(&cfg), "store.backend")
	})

	t.Run("enabled rate limit needs a window", func(t *testing.T) {
		cfg := Defaults()
		cfg.RateLimit.Window = 0
		assert.ErrorContains(t, validate(&cfg), "rate_limit")

		cfg.RateLimit.Enabled = false
		assert.NoError(t, validate(&cfg))
	})
}
