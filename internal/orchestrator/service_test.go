package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	decisionmetrics "veriflow/internal/decision/metrics"
	"veriflow/internal/dispatch"
	"veriflow/internal/rules"
	"veriflow/internal/snapshot"
	"veriflow/internal/vendors/adapter"
	vendormodels "veriflow/internal/vendors/models"
	"veriflow/internal/verification/models"
	"veriflow/internal/verification/store"
	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/audit"
	auditmemory "veriflow/pkg/platform/audit/store/memory"
	"veriflow/pkg/platform/audit/publisher"
)

// scriptedAdapter answers per vendor with a canned behaviour and counts calls.
type scriptedAdapter struct {
	mu      sync.Mutex
	scripts map[id.VendorID][]func(ctx context.Context) vendormodels.Result
	calls   map[id.VendorID]int
}

func newScriptedAdapter() *scriptedAdapter {
	return &scriptedAdapter{
		scripts: make(map[id.VendorID][]func(ctx context.Context) vendormodels.Result),
		calls:   make(map[id.VendorID]int),
	}
}

func (a *scriptedAdapter) on(vendorID id.VendorID, steps ...func(ctx context.Context) vendormodels.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scripts[vendorID] = steps
}

func (a *scriptedAdapter) Submit(ctx context.Context, v vendormodels.Vendor, _ vendormodels.Evidence, _ time.Duration) vendormodels.Result {
	a.mu.Lock()
	n := a.calls[v.ID]
	a.calls[v.ID] = n + 1
	steps := a.scripts[v.ID]
	a.mu.Unlock()

	if len(steps) == 0 {
		return vendormodels.Failed(v.ID, vendormodels.FailureContractMismatch, "unscripted vendor", 0, time.Now())
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	return steps[n](ctx)
}

func (a *scriptedAdapter) totalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, n := range a.calls {
		total += n
	}
	return total
}

func score(vendorID id.VendorID, s float64) func(context.Context) vendormodels.Result {
	return func(context.Context) vendormodels.Result {
		return vendormodels.Succeeded(vendorID, s, 80*time.Millisecond, time.Now())
	}
}

func failure(vendorID id.VendorID, category vendormodels.FailureCategory) func(context.Context) vendormodels.Result {
	return func(context.Context) vendormodels.Result {
		return vendormodels.Failed(vendorID, category, "scripted failure", 40*time.Millisecond, time.Now())
	}
}

func hang(vendorID id.VendorID) func(context.Context) vendormodels.Result {
	return func(ctx context.Context) vendormodels.Result {
		<-ctx.Done()
		return vendormodels.Failed(vendorID, vendormodels.FailureTimeout, ctx.Err().Error(), 0, time.Now())
	}
}

type staticSnapshots struct{ snap *snapshot.Snapshot }

func (s staticSnapshots) Current() *snapshot.Snapshot { return s.snap }

type OrchestratorSuite struct {
	suite.Suite
	adapter  *scriptedAdapter
	store    *store.InMemoryStore
	trail    *auditmemory.InMemoryStore
	metrics  *decisionmetrics.Metrics
	service  *Service
	policy   dispatch.Policy
	deadline time.Duration
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.adapter = newScriptedAdapter()
	s.store = store.NewInMemoryStore(time.Minute)
	s.trail = auditmemory.NewInMemoryStore()
	s.metrics = decisionmetrics.NewWithRegisterer(prometheus.NewRegistry())
	s.policy = dispatch.Policy{
		Retries:         1,
		Backoff:         time.Millisecond,
		ParallelTimeout: 100 * time.Millisecond,
		Timeouts:        adapter.DefaultTimeoutPolicy(),
	}
	s.deadline = 2 * time.Second
}

// build wires a service over a snapshot with the given clients and rules.
func (s *OrchestratorSuite) build(clients []snapshot.ClientDef, ruleDefs []rules.Definition) {
	doc := snapshot.Document{
		Vendors: []snapshot.VendorDef{
			{ID: "vnd_alpha", Status: "online", Priority: 1, AvgLatencySeconds: 0.2, Capabilities: []string{"Document"}},
			{ID: "vnd_beta", Status: "online", Priority: 2, AvgLatencySeconds: 0.2, Capabilities: []string{"Watchlist"}},
			{ID: "vnd_gamma", Status: "degraded", Priority: 3, AvgLatencySeconds: 0.2},
			{ID: "vnd_down1", Status: "offline", Priority: 1},
			{ID: "vnd_down2", Status: "offline", Priority: 2},
		},
		Clients: clients,
		Rules:   ruleDefs,
	}
	compiler, err := rules.NewCompiler(1 << 10)
	s.Require().NoError(err)
	s.T().Cleanup(compiler.Close)
	snap, err := snapshot.Build(doc, compiler, time.Now())
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	set := adapter.NewSet(s.adapter)
	d := dispatch.New(set, s.policy, dispatch.WithLogger(logger))
	s.service = New(s.store, staticSnapshots{snap: snap}, d,
		WithLogger(logger),
		WithAuditor(publisher.NewPublisher(s.trail)),
		WithMetrics(s.metrics),
		WithDeadline(s.deadline),
	)
}

func client(clientID, mode string, vendors ...string) snapshot.ClientDef {
	return snapshot.ClientDef{
		ID:             clientID,
		AllowedVendors: vendors,
		WorkflowMode:   mode,
		AutoApprove:    0.75,
		ManualReview:   0.55,
	}
}

func (s *OrchestratorSuite) submit(clientID id.ClientID, country string) *models.VerificationRequest {
	req, err := s.service.Submit(context.Background(), models.Intake{
		ClientID:     clientID,
		DocumentType: "passport",
		Country:      country,
	})
	s.Require().NoError(err)
	return req
}

func (s *OrchestratorSuite) trailFor(req *models.VerificationRequest) []audit.Event {
	events, err := s.trail.ListByRequest(context.Background(), req.ID.String())
	s.Require().NoError(err)
	return events
}

func countActions(events []audit.Event, actions ...audit.AuditEvent) int {
	n := 0
	for _, e := range events {
		for _, a := range actions {
			if e.Action == string(a) {
				n++
			}
		}
	}
	return n
}

// =============================================================================
// Threshold scenarios
// =============================================================================

func (s *OrchestratorSuite) TestPrimaryHighScoreApproves() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	s.adapter.on("vnd_alpha", score("vnd_alpha", 0.92))
	req := s.submit("acme", "DE")

	d, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusSuccess, d.Status)
	s.Require().NotNil(d.Score)
	s.InDelta(0.92, *d.Score, 1e-9)
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.DecisionOutcome.WithLabelValues("success", "Primary")))
}

func (s *OrchestratorSuite) TestPrimaryMidScoreGoesToReview() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	s.adapter.on("vnd_alpha", score("vnd_alpha", 0.60))
	req := s.submit("acme", "DE")

	d, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusReview, d.Status)
}

func (s *OrchestratorSuite) TestPrimaryDoesNotFailOver() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha", "vnd_beta")}, nil)
	s.adapter.on("vnd_alpha", failure("vnd_alpha", vendormodels.FailureProviderOutage))
	s.adapter.on("vnd_beta", score("vnd_beta", 0.99))
	req := s.submit("acme", "DE")

	d, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusFailed, d.Status)
	s.Nil(d.Score)
	s.Equal(2, s.adapter.totalCalls(), "one attempt plus one retry on the primary vendor only")
}

// =============================================================================
// Workflow scenarios
// =============================================================================

func (s *OrchestratorSuite) TestParallelTimeoutAveragesSuccessesOnly() {
	s.build([]snapshot.ClientDef{client("acme", "Parallel", "vnd_alpha", "vnd_beta")}, nil)
	s.adapter.on("vnd_alpha", hang("vnd_alpha"))
	s.adapter.on("vnd_beta", score("vnd_beta", 0.80))
	req := s.submit("acme", "DE")

	d, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusSuccess, d.Status)
	s.Require().NotNil(d.Score)
	s.InDelta(0.80, *d.Score, 1e-9)
	s.Require().Len(d.Results, 2)
	s.False(d.Results[0].Success)
	s.Equal(vendormodels.FailureTimeout, d.Results[0].FailureCategory())
}

func (s *OrchestratorSuite) TestFallbackUsesLastVendorAndAuditsEveryAttempt() {
	s.build([]snapshot.ClientDef{client("acme", "Fallback", "vnd_alpha", "vnd_beta", "vnd_gamma")}, nil)
	s.adapter.on("vnd_alpha", failure("vnd_alpha", vendormodels.FailureBadData))
	s.adapter.on("vnd_beta", failure("vnd_beta", vendormodels.FailureAuthentication))
	s.adapter.on("vnd_gamma", score("vnd_gamma", 0.77))
	req := s.submit("acme", "DE")

	d, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusSuccess, d.Status)
	s.InDelta(0.77, *d.Score, 1e-9)

	events := s.trailFor(req)
	s.Equal(3, countActions(events, audit.EventVendorAttempt, audit.EventVendorError))
	s.Equal(1, countActions(events, audit.EventDecisionMade))

	stored, err := s.service.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Len(stored.Attempts, 3)
	s.True(stored.IsDecided())
}

func (s *OrchestratorSuite) TestGlobalDeadlineStillDecides() {
	s.deadline = 50 * time.Millisecond
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	s.adapter.on("vnd_alpha", hang("vnd_alpha"))
	req := s.submit("acme", "DE")

	started := time.Now()
	d, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusFailed, d.Status)
	s.Less(time.Since(started), time.Second)
}

func (s *OrchestratorSuite) TestCallerCancelLeavesRequestProcessable() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	s.adapter.on("vnd_alpha", hang("vnd_alpha"))
	req := s.submit("acme", "DE")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d, err := s.service.Process(ctx, req.ID)
	s.Require().Error(err)
	s.Nil(d)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

	stored, err := s.store.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(models.StateReceived, stored.State)

	s.adapter.on("vnd_alpha", score("vnd_alpha", 0.95))
	d, err = s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusSuccess, d.Status)
}

// =============================================================================
// Rules
// =============================================================================

func (s *OrchestratorSuite) TestRuleForcesReviewOverHighScore() {
	s.build(
		[]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")},
		[]rules.Definition{
			{ID: "r_ng", Name: "Nigeria review", Priority: 1, Enabled: true, Conditions: []string{"country == NG"}, Action: "Route to manual review"},
			{ID: "r_never", Name: "Unreached", Priority: 2, Enabled: true, Conditions: []string{"score > 0"}, Action: "Approve"},
		},
	)
	s.adapter.on("vnd_alpha", score("vnd_alpha", 0.95))
	req := s.submit("acme", "NG")

	d, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusReview, d.Status)
	s.Require().NotNil(d.MatchedRule)
	s.Equal(id.RuleID("r_ng"), d.MatchedRule.RuleID)

	events := s.trailFor(req)
	s.Equal(1, countActions(events, audit.EventRuleEvaluated), "evaluation stops at the first match")
}

func (s *OrchestratorSuite) TestRuleSeesVendorFacts() {
	s.build(
		[]snapshot.ClientDef{client("acme", "Parallel", "vnd_alpha", "vnd_beta")},
		[]rules.Definition{
			{ID: "r_partial", Priority: 1, Enabled: true, Conditions: []string{"failed_count >= 1", "checks contains Document"}, Action: "Hold for analyst"},
		},
	)
	s.adapter.on("vnd_alpha", score("vnd_alpha", 0.9))
	s.adapter.on("vnd_beta", failure("vnd_beta", vendormodels.FailureBadData))
	req := s.submit("acme", "DE")

	d, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(id.StatusPending, d.Status)
}

// =============================================================================
// Errors
// =============================================================================

func (s *OrchestratorSuite) TestProcessTwiceIsAlreadyDecided() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	s.adapter.on("vnd_alpha", score("vnd_alpha", 0.9))
	req := s.submit("acme", "DE")

	_, err := s.service.Process(context.Background(), req.ID)
	s.Require().NoError(err)
	_, err = s.service.Process(context.Background(), req.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
	s.Equal(1, s.adapter.totalCalls())
}

func (s *OrchestratorSuite) TestAllVendorsOfflineIsNoEligibleVendor() {
	s.build([]snapshot.ClientDef{client("acme", "Fallback", "vnd_down1", "vnd_down2")}, nil)
	req := s.submit("acme", "DE")

	_, err := s.service.Process(context.Background(), req.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNoEligibleVendor))
	s.Zero(s.adapter.totalCalls())

	stored, err := s.service.Get(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Equal(models.StateReceived, stored.State, "claim is released")
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.Rejections.WithLabelValues(string(dErrors.CodeNoEligibleVendor))))
}

func (s *OrchestratorSuite) TestPausedClientIsRejected() {
	paused := client("acme", "Primary", "vnd_alpha")
	paused.Status = "Paused"
	s.build([]snapshot.ClientDef{paused}, nil)
	req := s.submit("acme", "DE")

	_, err := s.service.Process(context.Background(), req.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeClientPaused))
	s.Zero(s.adapter.totalCalls())
}

func (s *OrchestratorSuite) TestConcurrentClaimIsConflict() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	req := s.submit("acme", "DE")
	_, err := s.store.Claim(context.Background(), req.ID, time.Now())
	s.Require().NoError(err)

	_, err = s.service.Process(context.Background(), req.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *OrchestratorSuite) TestUnknownRequestIsNotFound() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	_, err := s.service.Process(context.Background(), id.NewRequestID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Get(context.Background(), id.NewRequestID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *OrchestratorSuite) TestSubmitRejectsUnknownClient() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	_, err := s.service.Submit(context.Background(), models.Intake{ClientID: "globex", DocumentType: "passport", Country: "DE"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *OrchestratorSuite) TestSubmitAuditsIntake() {
	s.build([]snapshot.ClientDef{client("acme", "Primary", "vnd_alpha")}, nil)
	req := s.submit("acme", "DE")
	s.Equal(1, countActions(s.trailFor(req), audit.EventRequestReceived))
}

func TestProcessWithoutSnapshot(t *testing.T) {
	svc := New(store.NewInMemoryStore(time.Minute), staticSnapshots{}, nil)
	_, err := svc.Process(context.Background(), id.NewRequestID())
	if !dErrors.HasCode(err, dErrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
