// Package dispatch runs a request's evidence through the candidate vendors
// according to the client's workflow mode.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"veriflow/internal/vendors/adapter"
	"veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/tracing"
)

// Resolver picks the adapter for a vendor. *adapter.Set satisfies it.
type Resolver interface {
	For(vendor models.Vendor) adapter.Adapter
}

// Policy controls retries and timeouts.
type Policy struct {
	// Retries is the number of extra attempts after the first, per vendor.
	// Only retryable failures are retried. Parallel mode never retries.
	Retries int
	// Backoff is the constant pause between attempts on the same vendor.
	Backoff time.Duration
	// ParallelTimeout bounds the Parallel join.
	ParallelTimeout time.Duration
	Timeouts        adapter.TimeoutPolicy
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		Retries:         1,
		Backoff:         200 * time.Millisecond,
		ParallelTimeout: 5 * time.Second,
		Timeouts:        adapter.DefaultTimeoutPolicy(),
	}
}

// Outcome is what a dispatch produced.
type Outcome struct {
	Mode id.WorkflowMode
	// Results holds the final result of every vendor tried, in candidate order.
	Results []models.Result
	// Attempts holds every attempt including retries, in the order made.
	Attempts []models.Result
}

// Succeeded reports whether any vendor returned a usable result.
func (o Outcome) Succeeded() bool {
	for _, r := range o.Results {
		if r.Success {
			return true
		}
	}
	return false
}

// Dispatcher executes Primary, Fallback and Parallel workflows.
type Dispatcher struct {
	adapters Resolver
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithClock overrides time.Now for synthesized timeout results.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func New(adapters Resolver, policy Policy, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		adapters: adapters,
		policy:   policy,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var errAttemptFailed = errors.New("vendor attempt failed")

// Dispatch sends evidence to candidates using mode. Candidates must already
// be ranked. Vendor failures never surface as errors: the only errors are an
// empty candidate list and an unknown mode.
//
// When ctx ends, the results gathered so far are returned without error.
func (d *Dispatcher) Dispatch(ctx context.Context, mode id.WorkflowMode, candidates []models.Vendor, evidence models.Evidence) (Outcome, error) {
	if len(candidates) == 0 {
		return Outcome{Mode: mode}, dErrors.New(dErrors.CodeNoEligibleVendor, "no eligible vendor for request")
	}

	ctx, span := tracing.StartDispatchSpan(ctx, mode.String(), len(candidates))
	defer span.End()

	switch mode {
	case id.WorkflowPrimary:
		return d.primary(ctx, candidates[0], evidence), nil
	case id.WorkflowFallback:
		return d.fallback(ctx, candidates, evidence), nil
	case id.WorkflowParallel:
		return d.parallel(ctx, candidates, evidence), nil
	default:
		return Outcome{Mode: mode}, dErrors.New(dErrors.CodeInvariantViolation, "unsupported workflow mode")
	}
}

func (d *Dispatcher) primary(ctx context.Context, vendor models.Vendor, evidence models.Evidence) Outcome {
	out := Outcome{Mode: id.WorkflowPrimary}
	final := d.withRetry(ctx, vendor, evidence, &out.Attempts)
	out.Results = append(out.Results, final)
	return out
}

func (d *Dispatcher) fallback(ctx context.Context, candidates []models.Vendor, evidence models.Evidence) Outcome {
	out := Outcome{Mode: id.WorkflowFallback}
	for _, vendor := range candidates {
		if ctx.Err() != nil {
			d.logger.WarnContext(ctx, "request deadline reached during fallback",
				"vendor_id", vendor.ID,
				"attempted", len(out.Results),
			)
			break
		}
		final := d.withRetry(ctx, vendor, evidence, &out.Attempts)
		out.Results = append(out.Results, final)
		if final.Success {
			break
		}
	}
	return out
}

// withRetry submits to one vendor, retrying retryable failures with a
// constant backoff. Every attempt is appended to attempts. The last result
// is returned.
func (d *Dispatcher) withRetry(ctx context.Context, vendor models.Vendor, evidence models.Evidence, attempts *[]models.Result) models.Result {
	if ctx.Err() != nil {
		last := models.Failed(vendor.ID, models.FailureTimeout, "request deadline exceeded before attempt", 0, d.now())
		last.Attempt = 1
		*attempts = append(*attempts, last)
		return last
	}

	a := d.adapters.For(vendor)
	timeout := d.policy.Timeouts.TimeoutFor(vendor)

	var last models.Result
	n := 0
	op := func() (models.Result, error) {
		n++
		res := d.submit(ctx, a, vendor, evidence, timeout, n)
		*attempts = append(*attempts, res)
		last = res
		if res.Success {
			return res, nil
		}
		if !res.Retryable() || ctx.Err() != nil {
			return res, backoff.Permanent(errAttemptFailed)
		}
		d.logger.InfoContext(ctx, "retrying vendor",
			"request_id", evidence.RequestID.String(),
			"vendor_id", vendor.ID,
			"attempt", n,
			"failure", res.FailureCategory(),
		)
		return res, errAttemptFailed
	}

	retries := max(d.policy.Retries, 0)
	_, _ = backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(d.policy.Backoff)),
		backoff.WithMaxTries(uint(retries+1)),
	)
	return last
}

func (d *Dispatcher) parallel(ctx context.Context, candidates []models.Vendor, evidence models.Evidence) Outcome {
	out := Outcome{Mode: id.WorkflowParallel}

	joinCtx := ctx
	if d.policy.ParallelTimeout > 0 {
		var cancel context.CancelFunc
		joinCtx, cancel = context.WithTimeout(ctx, d.policy.ParallelTimeout)
		defer cancel()
	}

	collector := newCollector()
	g, gctx := errgroup.WithContext(joinCtx)
	for _, vendor := range candidates {
		a := d.adapters.For(vendor)
		timeout := d.policy.Timeouts.TimeoutFor(vendor)
		g.Go(func() error {
			collector.put(d.submit(gctx, a, vendor, evidence, timeout, 1))
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-joinCtx.Done():
		d.logger.WarnContext(ctx, "parallel join timed out",
			"request_id", evidence.RequestID.String(),
			"candidates", len(candidates),
		)
	}

	got := collector.freeze()
	at := d.now()
	for _, vendor := range candidates {
		res, ok := got[vendor.ID]
		if !ok {
			res = models.Failed(vendor.ID, models.FailureTimeout, "no response before parallel timeout", d.policy.ParallelTimeout, at)
			res.Attempt = 1
		}
		out.Results = append(out.Results, res)
		out.Attempts = append(out.Attempts, res)
	}
	return out
}

func (d *Dispatcher) submit(ctx context.Context, a adapter.Adapter, vendor models.Vendor, evidence models.Evidence, timeout time.Duration, attempt int) models.Result {
	ctx, span := tracing.StartVendorSpan(ctx, vendor.ID.String(), attempt)
	res := a.Submit(ctx, vendor, evidence, timeout)
	res.VendorID = vendor.ID
	res.Attempt = attempt
	if !res.Success && res.Failure == nil {
		res.Failure = &models.Failure{Category: models.FailureInternal, Message: "adapter returned failure without category"}
	}
	tracing.EndWithOutcome(span, res.Success, string(res.FailureCategory()))
	return res
}

// collector gathers Parallel results keyed by vendor. After freeze, late
// results are discarded.
type collector struct {
	mu      sync.Mutex
	results map[id.VendorID]models.Result
	frozen  bool
}

func newCollector() *collector {
	return &collector{results: make(map[id.VendorID]models.Result)}
}

func (c *collector) put(res models.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return
	}
	c.results[res.VendorID] = res
}

func (c *collector) freeze() map[id.VendorID]models.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	snapshot := make(map[id.VendorID]models.Result, len(c.results))
	for k, v := range c.results {
		snapshot[k] = v
	}
	return snapshot
}
