package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"veriflow/internal/vendors/metrics"
	"veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
	"veriflow/pkg/platform/circuit"
)

// Guarded decorates an adapter with a per-vendor circuit breaker, panic
// containment and call metrics. Breakers outlive configuration snapshots:
// they are keyed by vendor id and created on first use.
type Guarded struct {
	next        Adapter
	breakerOpts []circuit.Option
	metrics     *metrics.Metrics
	logger      *slog.Logger

	mu       sync.Mutex
	breakers map[id.VendorID]*circuit.Breaker
}

// GuardedOption configures a Guarded adapter.
type GuardedOption func(*Guarded)

func WithBreakerOptions(opts ...circuit.Option) GuardedOption {
	return func(g *Guarded) {
		g.breakerOpts = append(g.breakerOpts, opts...)
	}
}

func WithMetrics(m *metrics.Metrics) GuardedOption {
	return func(g *Guarded) {
		g.metrics = m
	}
}

func WithLogger(l *slog.Logger) GuardedOption {
	return func(g *Guarded) {
		g.logger = l
	}
}

func NewGuarded(next Adapter, opts ...GuardedOption) *Guarded {
	g := &Guarded{
		next:     next,
		logger:   slog.Default(),
		breakers: make(map[id.VendorID]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guarded) Submit(ctx context.Context, vendor models.Vendor, evidence models.Evidence, timeout time.Duration) (result models.Result) {
	breaker := g.breaker(vendor.ID)
	if !breaker.Allow() {
		result = models.Failed(vendor.ID, models.FailureCircuitOpen, "circuit open", 0, time.Now())
		g.metrics.ObserveCall(vendor.ID.String(), string(models.FailureCircuitOpen), 0)
		return result
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.logger.ErrorContext(ctx, "vendor adapter panicked",
				"vendor_id", vendor.ID.String(),
				"panic", fmt.Sprint(r),
			)
			result = models.Failed(vendor.ID, models.FailureInternal, "adapter panic", time.Since(start), time.Now())
		}
		g.record(ctx, breaker, vendor, result)
	}()

	result = g.next.Submit(ctx, vendor, evidence, timeout)
	result.VendorID = vendor.ID
	result.Score = models.ClampScore(result.Score)
	return result
}

// BreakerState reports the breaker position for a vendor. Vendors never
// called report closed.
func (g *Guarded) BreakerState(vendorID id.VendorID) circuit.State {
	g.mu.Lock()
	b, ok := g.breakers[vendorID]
	g.mu.Unlock()
	if !ok {
		return circuit.StateClosed
	}
	return b.State()
}

func (g *Guarded) breaker(vendorID id.VendorID) *circuit.Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.breakers[vendorID]
	if !ok {
		b = circuit.New(vendorID.String(), g.breakerOpts...)
		g.breakers[vendorID] = b
	}
	return b
}

func (g *Guarded) record(ctx context.Context, breaker *circuit.Breaker, vendor models.Vendor, result models.Result) {
	outcome := "ok"
	if !result.Success {
		outcome = string(result.FailureCategory())
	}
	g.metrics.ObserveCall(vendor.ID.String(), outcome, result.Latency)

	// Only vendor-side trouble trips the breaker; bad evidence does not.
	var change circuit.StateChange
	switch {
	case result.Success:
		_, change = breaker.RecordSuccess()
	case result.Retryable():
		_, change = breaker.RecordFailure()
	default:
		return
	}

	if change.Opened {
		g.metrics.RecordBreakerOpened(vendor.ID.String())
		g.logger.WarnContext(ctx, "vendor circuit opened",
			"vendor_id", vendor.ID.String(),
			"failure_category", string(result.FailureCategory()),
		)
	}
	if change.Closed {
		g.metrics.RecordBreakerClosed(vendor.ID.String())
		g.logger.InfoContext(ctx, "vendor circuit closed",
			"vendor_id", vendor.ID.String(),
		)
	}
}
