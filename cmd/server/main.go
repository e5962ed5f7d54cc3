package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	decisionmetrics "veriflow/internal/decision/metrics"
	"veriflow/internal/dispatch"
	"veriflow/internal/orchestrator"
	"veriflow/internal/platform/config"
	"veriflow/internal/platform/httpserver"
	"veriflow/internal/platform/logger"
	"veriflow/internal/platform/metrics"
	"veriflow/internal/rules"
	"veriflow/internal/snapshot"
	"veriflow/pkg/platform/httputil"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)
	log.Info("config loaded",
		"addr", cfg.Server.Addr,
		"snapshot_source", cfg.Snapshot.Source,
		"store", cfg.Store.Backend,
		"audit_sink", cfg.Audit.Sink,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	auditor, err := newAuditPublisher(cfg, infra, log)
	if err != nil {
		return err
	}
	defer auditor.Close()

	notifier, closeNotifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	// --- Configuration snapshot ---

	httpMetrics := metrics.New()
	compiler, err := rules.NewCompiler(cfg.Cache.MaxCost)
	if err != nil {
		return fmt.Errorf("rule cache: %w", err)
	}
	defer compiler.Close()

	source, err := newSnapshotSource(cfg, infra)
	if err != nil {
		return err
	}
	snapshots := snapshot.NewManager(source, compiler,
		snapshot.WithLogger(log),
		snapshot.WithMetrics(httpMetrics),
		snapshot.WithAuditor(auditor),
	)
	if _, err := snapshots.Reload(ctx); err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}

	// --- Orchestration ---

	adapters, guarded := newAdapters(cfg, log)
	dispatcher := dispatch.New(adapters, dispatchPolicy(cfg), dispatch.WithLogger(log))

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithAuditor(auditor),
		orchestrator.WithMetrics(decisionmetrics.New()),
		orchestrator.WithDeadline(cfg.Orchestrator.RequestDeadline),
	}
	if notifier != nil {
		opts = append(opts, orchestrator.WithNotifier(notifier))
	}
	service := orchestrator.New(newRequestStore(cfg, infra), snapshots, dispatcher, opts...)

	// --- HTTP ---

	r := newRouter(routerDeps{
		log:         log,
		deadline:    cfg.Orchestrator.RequestDeadline,
		httpMetrics: httpMetrics,
		service:     service,
		snapshots:   snapshots,
		breakers:    guarded,
		trail:       auditor,
		limiter:     newRateLimiter(ctx, cfg, log),
		health:      healthHandler(infra, snapshots),
	})

	srv := httpserver.New(cfg.Server, r)
	return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
}

// healthHandler reports liveness plus the state of each backing service.
func healthHandler(infra *infrastructure, snapshots *snapshot.Manager) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Snapshot string `json:"snapshot"`
		Postgres string `json:"postgres,omitempty"`
		Redis    string `json:"redis,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Snapshot: "missing"}
		if snap := snapshots.Current(); snap != nil {
			status.Snapshot = snap.Version
		} else {
			status.Status = "degraded"
		}
		if infra.db != nil {
			status.Postgres = "ok"
			if err := infra.db.PingContext(r.Context()); err != nil {
				status.Postgres = "unreachable"
				status.Status = "degraded"
			}
		}
		if infra.redis != nil {
			status.Redis = "ok"
			if err := infra.redis.Health(r.Context()); err != nil {
				status.Redis = "unreachable"
				status.Status = "degraded"
			}
		}

		code := http.StatusOK
		if status.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, status)
	}
}
