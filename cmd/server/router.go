package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veriflow/internal/admin"
	"veriflow/internal/platform/metrics"
	ratelimit "veriflow/internal/ratelimit/middleware"
	ratelimitmodels "veriflow/internal/ratelimit/models"
	verificationhandler "veriflow/internal/verification/handler"
	id "veriflow/pkg/domain"
	"veriflow/pkg/platform/middleware/device"
	"veriflow/pkg/platform/middleware/metadata"
	"veriflow/pkg/platform/middleware/request"
	"veriflow/pkg/platform/middleware/requesttime"
	"veriflow/pkg/platform/middleware/version"
)

// handlerGrace is added to the request deadline so the orchestrator, not
// the router, decides when a request has run out of time.
const handlerGrace = 5 * time.Second

type routerDeps struct {
	log         *slog.Logger
	deadline    time.Duration
	httpMetrics *metrics.Metrics
	service     verificationhandler.Service
	snapshots   admin.Snapshots
	breakers    admin.BreakerReporter
	trail       admin.AuditReader
	limiter     *ratelimit.Middleware
	health      http.HandlerFunc
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(chimw.RealIP)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(d.httpMetrics.Middleware)

	r.Get("/healthz", d.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(version.ExtractVersion(id.APIVersionV1))
		api.Use(chimw.Timeout(d.deadline + handlerGrace))
		verificationhandler.New(d.service, d.log,
			verificationhandler.WithRouteLimits(
				d.limiter.RateLimit(ratelimitmodels.ClassIntake),
				d.limiter.RateLimit(ratelimitmodels.ClassRead),
			),
		).Register(api)
		admin.New(d.snapshots, d.breakers, d.trail, d.log).Register(api)
	})
	return r
}
