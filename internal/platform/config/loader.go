package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Load returns a Config using the hierarchy: defaults < YAML < ENV. The YAML
// path comes from VERIFLOW_CONFIG, falling back to DefaultConfigFile.
func Load() (*Config, error) {
	path := os.Getenv("VERIFLOW_CONFIG")
	if path == "" {
		path = DefaultConfigFile
	}
	return LoadFrom(path)
}

// LoadFrom loads the YAML file at yamlPath over the defaults, then overlays
// environment variables. A missing YAML file is not an error.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	// Unset variables leave the field untouched.
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	o := cfg.Orchestrator
	if o.RequestDeadline <= 0 {
		errs = append(errs, errors.New("orchestrator.request_deadline must be positive"))
	}
	if o.ParallelTimeout <= 0 {
		errs = append(errs, errors.New("orchestrator.parallel_timeout must be positive"))
	}
	if o.Retries < 0 {
		errs = append(errs, errors.New("orchestrator.retries must not be negative"))
	}
	if o.RetryBackoff < 0 {
		errs = append(errs, errors.New("orchestrator.retry_backoff must not be negative"))
	}
	if o.TimeoutFactor <= 0 {
		errs = append(errs, errors.New("orchestrator.timeout_factor must be positive"))
	}
	if o.MinVendorTimeout <= 0 || o.MaxVendorTimeout < o.MinVendorTimeout {
		errs = append(errs, errors.New("orchestrator vendor timeout bounds are invalid"))
	}
	if cfg.Breaker.FailureThreshold <= 0 || cfg.Breaker.SuccessThreshold <= 0 {
		errs = append(errs, errors.New("breaker thresholds must be positive"))
	}

	switch cfg.Snapshot.Source {
	case "file":
		if cfg.Snapshot.Path == "" {
			errs = append(errs, errors.New("snapshot.path is required for file source"))
		}
	case "postgres":
		if cfg.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for postgres snapshot source"))
		}
	default:
		errs = append(errs, fmt.Errorf("snapshot.source %q is not one of file, postgres", cfg.Snapshot.Source))
	}

	switch cfg.Audit.Sink {
	case "memory":
	case "postgres":
		if cfg.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for postgres audit sink"))
		}
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required for kafka audit sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.sink %q is not one of memory, postgres, kafka", cfg.Audit.Sink))
	}
	if cfg.Audit.AsyncBuffer < 0 {
		errs = append(errs, errors.New("audit.async_buffer must not be negative"))
	}

	if !slices.Contains([]string{"memory", "redis"}, cfg.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, redis", cfg.Store.Backend))
	}
	if cfg.Store.Backend == "redis" && cfg.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required for redis store backend"))
	}

	if rl := cfg.RateLimit; rl.Enabled && (rl.IntakeRequests <= 0 || rl.ReadRequests <= 0 || rl.Window <= 0) {
		errs = append(errs, errors.New("rate_limit budgets and window must be positive when enabled"))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is invalid", cfg.Logging.Level))
	}

	return errors.Join(errs...)
}
