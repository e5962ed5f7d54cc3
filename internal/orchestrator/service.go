// Package orchestrator drives one verification request from intake to its
// terminal decision: candidates, dispatch, rules, decision, persistence,
// audit trail and notification.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"veriflow/internal/decision"
	decisionmetrics "veriflow/internal/decision/metrics"
	"veriflow/internal/dispatch"
	"veriflow/internal/rules"
	"veriflow/internal/snapshot"
	"veriflow/internal/vendors"
	vendormodels "veriflow/internal/vendors/models"
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/store"
	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/audit"
	"veriflow/pkg/platform/sentinel"
	"veriflow/pkg/platform/tracing"
)

// SnapshotProvider hands out the configuration in force.
type SnapshotProvider interface {
	Current() *snapshot.Snapshot
}

// Dispatcher runs a workflow over ranked candidates.
type Dispatcher interface {
	Dispatch(ctx context.Context, mode id.WorkflowMode, candidates []vendormodels.Vendor, evidence vendormodels.Evidence) (dispatch.Outcome, error)
}

// AuditPublisher receives the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// DecisionNotifier announces terminal decisions.
type DecisionNotifier interface {
	Notify(ctx context.Context, requestID id.RequestID, client vendormodels.Client, d decision.Decision) error
}

// DefaultDeadline bounds one Process call when no deadline is configured.
const DefaultDeadline = 15 * time.Second

// Service is the orchestration core.
type Service struct {
	store      store.Store
	snapshots  SnapshotProvider
	dispatcher Dispatcher

	auditor  AuditPublisher
	notifier DecisionNotifier
	metrics  *decisionmetrics.Metrics
	logger   *slog.Logger
	deadline time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(auditor AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithNotifier(notifier DecisionNotifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func WithMetrics(m *decisionmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDeadline sets the global per-request processing deadline.
func WithDeadline(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.deadline = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(st store.Store, snapshots SnapshotProvider, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		store:      st,
		snapshots:  snapshots,
		dispatcher: dispatcher,
		logger:     slog.Default(),
		deadline:   DefaultDeadline,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates intake and stores a new request.
//
// Errors: CodeValidation for bad evidence, CodeNotFound for an unknown
// client, CodeInternal when no configuration is loaded.
func (s *Service) Submit(ctx context.Context, in models.Intake) (*models.VerificationRequest, error) {
	snap := s.snapshots.Current()
	if snap == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "configuration snapshot not loaded")
	}
	if _, ok := snap.Client(in.ClientID); !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
	}

	req, err := models.NewVerificationRequest(id.NewRequestID(), in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification request")
	}

	s.emit(ctx, audit.Event{
		Action:    string(audit.EventRequestReceived),
		RequestID: req.ID.String(),
		ClientID:  req.ClientID.String(),
		Success:   true,
	})
	s.logger.InfoContext(ctx, "verification request received",
		"request_id", req.ID.String(),
		"client_id", req.ClientID.String(),
	)
	return req, nil
}

// Get returns a request with its attempts and decision.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*models.VerificationRequest, error) {
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return req, nil
}

// Process decides a request. It either returns a terminal decision or one
// of: CodeNotFound, CodeAlreadyDecided, CodeConflict (claimed elsewhere),
// CodeClientPaused, CodeNoEligibleVendor. Vendor failures and the global
// deadline never surface as errors. A caller that goes away before the
// decision gets CodeTimeout and the request stays processable.
func (s *Service) Process(ctx context.Context, requestID id.RequestID) (*decision.Decision, error) {
	started := s.now()
	snap := s.snapshots.Current()
	if snap == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "configuration snapshot not loaded")
	}

	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		return nil, s.reject(ctx, requestID, "", translateStoreError(err))
	}
	if req.IsDecided() {
		return nil, s.reject(ctx, requestID, req.ClientID, dErrors.New(dErrors.CodeAlreadyDecided, "verification request already decided"))
	}

	ctx, span := tracing.StartProcessSpan(ctx, requestID.String(), req.ClientID.String())
	defer span.End()

	if _, err := s.store.Claim(ctx, requestID, started); err != nil {
		return nil, s.reject(ctx, requestID, req.ClientID, translateStoreError(err))
	}
	decided := false
	defer func() {
		if decided {
			return
		}
		if err := s.store.Release(context.WithoutCancel(ctx), requestID); err != nil {
			s.logger.ErrorContext(ctx, "failed to release claim",
				"request_id", requestID.String(),
				"error", err,
			)
		}
	}()

	client, ok := snap.Client(req.ClientID)
	if !ok {
		return nil, s.reject(ctx, requestID, req.ClientID, dErrors.New(dErrors.CodeNotFound, "client not found"))
	}
	if client.IsPaused() {
		return nil, s.reject(ctx, requestID, req.ClientID, dErrors.New(dErrors.CodeClientPaused, "client is paused"))
	}
	candidates, err := snap.Vendors.CandidatesFor(client)
	if err != nil {
		if errors.Is(err, vendors.ErrNoEligibleVendor) {
			err = dErrors.Wrap(err, dErrors.CodeNoEligibleVendor, "no eligible vendor for client")
		}
		return nil, s.reject(ctx, requestID, req.ClientID, err)
	}

	dctx, cancel := context.WithTimeout(ctx, s.deadline)
	outcome, err := s.dispatcher.Dispatch(dctx, client.Workflow, candidates, req.Evidence())
	deadlineHit := dctx.Err() != nil
	cancel()
	if cerr := ctx.Err(); cerr != nil {
		return nil, s.reject(context.WithoutCancel(ctx), requestID, req.ClientID,
			dErrors.Wrap(cerr, dErrors.CodeTimeout, "caller went away before a decision"))
	}
	if err != nil {
		return nil, s.reject(ctx, requestID, req.ClientID, err)
	}
	if deadlineHit {
		s.logger.WarnContext(ctx, "request deadline reached, deciding with results in hand",
			"request_id", requestID.String(),
			"results", len(outcome.Results),
		)
	}

	eval := rules.Evaluate(snap.Rules, buildRuleContext(req, client, snap, outcome))
	d := decision.Decide(decision.Input{
		Results:    outcome.Results,
		Thresholds: client.Thresholds,
		Match:      eval.Match,
	}, s.now())

	if err := s.store.Complete(ctx, requestID, outcome.Attempts, d); err != nil {
		return nil, s.reject(ctx, requestID, req.ClientID, translateStoreError(err))
	}
	decided = true

	s.emitTrail(ctx, req, outcome, eval, d)
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, requestID, client, d); err != nil {
			s.logger.WarnContext(ctx, "decision notification not delivered",
				"request_id", requestID.String(),
				"error", err,
			)
		}
	}
	s.record(client, d, s.now().Sub(started))

	s.logger.InfoContext(ctx, "verification decided",
		"request_id", requestID.String(),
		"client_id", client.ID.String(),
		"workflow", client.Workflow.String(),
		"status", d.Status.String(),
		"reason", string(d.Reason),
		"attempts", len(outcome.Attempts),
	)
	return &d, nil
}

func (s *Service) record(client vendormodels.Client, d decision.Decision, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementOutcome(d.Status.String(), client.Workflow.String())
	s.metrics.ObserveScore(d.Score)
	s.metrics.ObserveProcessLatency(client.Workflow.String(), elapsed)
	if d.MatchedRule != nil {
		s.metrics.IncrementRuleMatch(d.MatchedRule.RuleID.String())
	}
}

// reject audits and counts a Process call that ended without a decision.
func (s *Service) reject(ctx context.Context, requestID id.RequestID, clientID id.ClientID, err error) error {
	code := dErrors.CodeOf(err)
	if s.metrics != nil {
		s.metrics.IncrementRejection(string(code))
	}
	s.emit(ctx, audit.Event{
		Action:    string(audit.EventProcessRejected),
		RequestID: requestID.String(),
		ClientID:  clientID.String(),
		Reason:    string(code),
	})
	s.logger.InfoContext(ctx, "process rejected",
		"request_id", requestID.String(),
		"code", string(code),
		"error", err,
	)
	return err
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "verification request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeAlreadyDecided, "verification request already decided")
	case errors.Is(err, sentinel.ErrAlreadyClaimed), errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "verification request is being processed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "verification store failure")
	}
}
