package config

import (
	"time"
)

// DefaultConfigFile is the YAML file checked when VERIFLOW_CONFIG is unset.
const DefaultConfigFile = "veriflow.yaml"

// Config is the root configuration of the service.
type Config struct {
	Server       Server       `yaml:"server"`
	Logging      Logging      `yaml:"logging"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	Breaker      Breaker      `yaml:"breaker"`
	Snapshot     Snapshot     `yaml:"snapshot"`
	Postgres     Postgres     `yaml:"postgres"`
	Redis        RedisConfig  `yaml:"redis"`
	Kafka        Kafka        `yaml:"kafka"`
	NATS         NATS         `yaml:"nats"`
	Cache        Cache        `yaml:"cache"`
	Audit        Audit        `yaml:"audit"`
	Store        Store        `yaml:"store"`
	RateLimit    RateLimit    `yaml:"rate_limit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr" env:"VERIFLOW_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"VERIFLOW_SHUTDOWN_TIMEOUT"`
}

// Logging configures the structured logger.
type Logging struct {
	Level   string `yaml:"level" env:"VERIFLOW_LOG_LEVEL"`
	Service string `yaml:"service" env:"VERIFLOW_LOG_SERVICE"`
}

// Orchestrator holds the dispatch and deadline knobs.
type Orchestrator struct {
	RequestDeadline  time.Duration `yaml:"request_deadline" env:"VERIFLOW_REQUEST_DEADLINE"`
	ParallelTimeout  time.Duration `yaml:"parallel_timeout" env:"VERIFLOW_PARALLEL_TIMEOUT"`
	Retries          int           `yaml:"retries" env:"VERIFLOW_RETRIES"`
	RetryBackoff     time.Duration `yaml:"retry_backoff" env:"VERIFLOW_RETRY_BACKOFF"`
	TimeoutFactor    float64       `yaml:"timeout_factor" env:"VERIFLOW_TIMEOUT_FACTOR"`
	MinVendorTimeout time.Duration `yaml:"min_vendor_timeout" env:"VERIFLOW_MIN_VENDOR_TIMEOUT"`
	MaxVendorTimeout time.Duration `yaml:"max_vendor_timeout" env:"VERIFLOW_MAX_VENDOR_TIMEOUT"`
}

// Breaker configures the per-vendor circuit breakers.
type Breaker struct {
	FailureThreshold int           `yaml:"failure_threshold" env:"VERIFLOW_BREAKER_FAILURES"`
	SuccessThreshold int           `yaml:"success_threshold" env:"VERIFLOW_BREAKER_SUCCESSES"`
	Cooldown         time.Duration `yaml:"cooldown" env:"VERIFLOW_BREAKER_COOLDOWN"`
}

// Snapshot selects where vendors, clients and rules are loaded from.
type Snapshot struct {
	Source string `yaml:"source" env:"VERIFLOW_SNAPSHOT_SOURCE"` // file | postgres
	Path   string `yaml:"path" env:"VERIFLOW_SNAPSHOT_PATH"`
}

// Postgres configures the SQL pool used by the snapshot and audit stores.
type Postgres struct {
	DSN             string        `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"VERIFLOW_PG_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"VERIFLOW_PG_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"VERIFLOW_PG_CONN_MAX_LIFETIME"`
	Migrate         bool          `yaml:"migrate" env:"VERIFLOW_PG_MIGRATE"`
}

// RedisConfig configures the request store client. An empty URL keeps
// requests in memory.
type RedisConfig struct {
	URL          string        `yaml:"url" env:"REDIS_URL"`
	PoolSize     int           `yaml:"pool_size" env:"VERIFLOW_REDIS_POOL_SIZE"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"VERIFLOW_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"VERIFLOW_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"VERIFLOW_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"VERIFLOW_REDIS_WRITE_TIMEOUT"`
}

// Kafka configures the audit sink.
type Kafka struct {
	Brokers     []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic  string   `yaml:"audit_topic" env:"VERIFLOW_KAFKA_AUDIT_TOPIC"`
	Partitions  int32    `yaml:"partitions" env:"VERIFLOW_KAFKA_PARTITIONS"`
	Replication int16    `yaml:"replication" env:"VERIFLOW_KAFKA_REPLICATION"`
}

// NATS configures decision notifications. An empty URL disables them.
type NATS struct {
	URL           string `yaml:"url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" env:"VERIFLOW_NATS_SUBJECT_PREFIX"`
}

// Cache sizes the compiled rule-set cache.
type Cache struct {
	MaxCost int64 `yaml:"max_cost" env:"VERIFLOW_CACHE_MAX_COST"`
}

// Audit selects the audit sink.
type Audit struct {
	Sink        string `yaml:"sink" env:"VERIFLOW_AUDIT_SINK"` // memory | postgres | kafka
	AsyncBuffer int    `yaml:"async_buffer" env:"VERIFLOW_AUDIT_ASYNC_BUFFER"`
}

// Store selects the verification request store.
type Store struct {
	Backend  string        `yaml:"backend" env:"VERIFLOW_STORE_BACKEND"` // memory | redis
	ClaimTTL time.Duration `yaml:"claim_ttl" env:"VERIFLOW_STORE_CLAIM_TTL"`
}

// RateLimit sets the per-IP request budgets of the verification API.
type RateLimit struct {
	Enabled        bool          `yaml:"enabled" env:"VERIFLOW_RATELIMIT_ENABLED"`
	IntakeRequests int           `yaml:"intake_requests" env:"VERIFLOW_RATELIMIT_INTAKE_REQUESTS"`
	ReadRequests   int           `yaml:"read_requests" env:"VERIFLOW_RATELIMIT_READ_REQUESTS"`
	Window         time.Duration `yaml:"window" env:"VERIFLOW_RATELIMIT_WINDOW"`
}

// Defaults returns a Config usable for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Service: "veriflow",
		},
		Orchestrator: Orchestrator{
			RequestDeadline:  15 * time.Second,
			ParallelTimeout:  5 * time.Second,
			Retries:          1,
			RetryBackoff:     200 * time.Millisecond,
			TimeoutFactor:    3,
			MinVendorTimeout: 500 * time.Millisecond,
			MaxVendorTimeout: 10 * time.Second,
		},
		Breaker: Breaker{
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Cooldown:         30 * time.Second,
		},
		Snapshot: Snapshot{
			Source: "file",
			Path:   "snapshot.yaml",
		},
		Postgres: Postgres{
			MaxOpenConns:    15,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			AuditTopic:  "veriflow.audit",
			Partitions:  3,
			Replication: 1,
		},
		NATS: NATS{
			SubjectPrefix: "veriflow.decisions",
		},
		Cache: Cache{
			MaxCost: 1 << 20,
		},
		Audit: Audit{
			Sink:        "memory",
			AsyncBuffer: 1024,
		},
		Store: Store{
			Backend:  "memory",
			ClaimTTL: time.Minute,
		},
		RateLimit: RateLimit{
			Enabled:        true,
			IntakeRequests: 60,
			ReadRequests:   300,
			Window:         time.Minute,
		},
	}
}
