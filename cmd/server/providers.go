package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"veriflow/internal/dispatch"
	"veriflow/internal/notify"
	"veriflow/internal/platform/config"
	"veriflow/internal/platform/postgres"
	redisclient "veriflow/internal/platform/redis"
	ratelimitmetrics "veriflow/internal/ratelimit/metrics"
	ratelimit "veriflow/internal/ratelimit/middleware"
	ratelimitmodels "veriflow/internal/ratelimit/models"
	"veriflow/internal/ratelimit/store/bucket"
	"veriflow/internal/snapshot"
	"veriflow/internal/vendors/adapter"
	vendormetrics "veriflow/internal/vendors/metrics"
	"veriflow/internal/verification/store"
	"veriflow/pkg/platform/audit"
	"veriflow/pkg/platform/audit/publisher"
	kafkastore "veriflow/pkg/platform/audit/store/kafka"
	auditmemory "veriflow/pkg/platform/audit/store/memory"
	auditpostgres "veriflow/pkg/platform/audit/store/postgres"
	"veriflow/pkg/platform/circuit"
)

// sandboxBaseScore is what sandbox vendors score around.
const sandboxBaseScore = 0.9

// infrastructure holds the connections opened at startup. Every field is
// optional and only set when the configuration needs it.
type infrastructure struct {
	db    *sql.DB
	redis *redisclient.Client
	kafka *kafkastore.Store
}

func (i *infrastructure) Close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func openInfra(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{}

	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		infra.db = db
		log.Info("postgres connected")

		if cfg.Postgres.Migrate {
			if err := postgres.RunMigrations(ctx, db); err != nil {
				infra.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
			log.Info("migrations applied")
		}
	}

	if cfg.Store.Backend == "redis" {
		client, err := redisclient.New(cfg.Redis)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.redis = client
		log.Info("redis connected")
	}

	if cfg.Audit.Sink == "kafka" {
		ks, err := kafkastore.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, kafkastore.WithLogger(log))
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("kafka: %w", err)
		}
		infra.kafka = ks
		if err := ks.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			infra.Close()
			return nil, fmt.Errorf("kafka topic: %w", err)
		}
		log.Info("kafka audit topic ready", "topic", cfg.Kafka.AuditTopic)
	}

	return infra, nil
}

func newAuditPublisher(cfg *config.Config, infra *infrastructure, log *slog.Logger) (*publisher.Publisher, error) {
	var sink audit.Store
	switch cfg.Audit.Sink {
	case "memory":
		sink = auditmemory.NewInMemoryStore()
	case "postgres":
		sink = auditpostgres.New(infra.db)
	case "kafka":
		sink = infra.kafka
	default:
		return nil, fmt.Errorf("audit sink %q not supported", cfg.Audit.Sink)
	}
	return publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithLogger(log),
	), nil
}

// newNotifier connects to NATS when configured. The returned close func is
// always safe to call.
func newNotifier(ctx context.Context, cfg *config.Config, log *slog.Logger) (*notify.Notifier, func(), error) {
	if cfg.NATS.URL == "" {
		log.Info("decision notifications disabled")
		return nil, func() {}, nil
	}
	js, err := notify.Connect(ctx, cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: %w", err)
	}
	return notify.New(js, cfg.NATS.SubjectPrefix, notify.WithLogger(log)), js.Close, nil
}

func newSnapshotSource(cfg *config.Config, infra *infrastructure) (snapshot.Source, error) {
	switch cfg.Snapshot.Source {
	case "file":
		return snapshot.NewFileSource(cfg.Snapshot.Path), nil
	case "postgres":
		return snapshot.NewPostgresSource(infra.db), nil
	}
	return nil, fmt.Errorf("snapshot source %q not supported", cfg.Snapshot.Source)
}

func newRequestStore(cfg *config.Config, infra *infrastructure) store.Store {
	if infra.redis != nil {
		return store.NewRedis(infra.redis.Client, cfg.Store.ClaimTTL)
	}
	return store.NewInMemoryStore(cfg.Store.ClaimTTL)
}

// newAdapters routes every vendor through one guarded set: sandbox vendors
// to the sandbox adapter, everything else to the generic HTTP adapter.
func newAdapters(cfg *config.Config, log *slog.Logger) (*adapter.Set, *adapter.Guarded) {
	set := adapter.NewSet(adapter.NewHTTP(adapter.WithHTTPLogger(log)))
	set.Register(adapter.TagSandbox, adapter.NewSandbox(sandboxBaseScore))

	guarded := adapter.NewGuarded(set,
		adapter.WithBreakerOptions(
			circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.Breaker.SuccessThreshold),
			circuit.WithCooldown(cfg.Breaker.Cooldown),
		),
		adapter.WithMetrics(vendormetrics.New()),
		adapter.WithLogger(log),
	)
	return adapter.NewSet(guarded), guarded
}

func dispatchPolicy(cfg *config.Config) dispatch.Policy {
	o := cfg.Orchestrator
	return dispatch.Policy{
		Retries:         o.Retries,
		Backoff:         o.RetryBackoff,
		ParallelTimeout: o.ParallelTimeout,
		Timeouts: adapter.TimeoutPolicy{
			SafetyFactor: o.TimeoutFactor,
			Min:          o.MinVendorTimeout,
			Max:          o.MaxVendorTimeout,
		},
	}
}

// newRateLimiter builds the per-IP limiter and sweeps idle buckets until ctx
// is done.
func newRateLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger) *ratelimit.Middleware {
	rl := cfg.RateLimit
	store := bucket.NewInMemoryBucketStore()
	if rl.Enabled {
		go func() {
			ticker := time.NewTicker(rl.Window)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := store.Sweep(); n > 0 {
						log.Debug("rate limit buckets swept", "removed", n)
					}
				}
			}
		}()
	}
	return ratelimit.New(store, log,
		ratelimit.WithDisabled(!rl.Enabled),
		ratelimit.WithLimit(ratelimitmodels.ClassIntake, ratelimitmodels.Limit{Requests: rl.IntakeRequests, Window: rl.Window}),
		ratelimit.WithLimit(ratelimitmodels.ClassRead, ratelimitmodels.Limit{Requests: rl.ReadRequests, Window: rl.Window}),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
	)
}
