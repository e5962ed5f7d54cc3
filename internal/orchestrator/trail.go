package orchestrator

import (
	"context"

	"veriflow/internal/decision"
	"veriflow/internal/dispatch"
	"veriflow/internal/rules"
	"veriflow/internal/verification/models"
	"veriflow/pkg/platform/audit"
	"veriflow/pkg/requestcontext"
)

// emitTrail writes one event per vendor attempt, one per rule evaluated,
// then the decision.
func (s *Service) emitTrail(ctx context.Context, req *models.VerificationRequest, outcome dispatch.Outcome, eval rules.Evaluation, d decision.Decision) {
	requestID := req.ID.String()
	clientID := req.ClientID.String()

	for _, a := range outcome.Attempts {
		e := audit.Event{
			Action:    string(audit.EventVendorAttempt),
			Timestamp: a.CheckedAt,
			RequestID: requestID,
			ClientID:  clientID,
			VendorID:  a.VendorID.String(),
			Attempt:   a.Attempt,
			Success:   a.Success,
			LatencyMs: a.Latency.Milliseconds(),
		}
		if a.Success {
			score := a.Score
			e.Score = &score
		} else {
			e.Action = string(audit.EventVendorError)
			if a.Failure != nil {
				e.Reason = a.Failure.String()
			}
		}
		s.emit(ctx, e)
	}

	for _, t := range eval.Evaluated {
		e := audit.Event{
			Action:    string(audit.EventRuleEvaluated),
			RequestID: requestID,
			ClientID:  clientID,
			RuleID:    t.RuleID.String(),
			Matched:   t.Matched,
			Success:   true,
		}
		if !t.Matched {
			e.Reason = t.FailedCondition
		}
		s.emit(ctx, e)
	}

	decided := audit.Event{
		Action:    string(audit.EventDecisionMade),
		Timestamp: d.DecidedAt,
		RequestID: requestID,
		ClientID:  clientID,
		Success:   true,
		Decision:  d.Status.String(),
		Score:     d.Score,
		Reason:    string(d.Reason),
	}
	if d.MatchedRule != nil {
		decided.RuleID = d.MatchedRule.RuleID.String()
		decided.Matched = true
	}
	s.emit(ctx, decided)
}

// emit stamps the correlation id. Audit failures are logged and never fail
// the request.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if event.CorrelationID == "" {
		event.CorrelationID = requestcontext.RequestID(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"request_id", event.RequestID,
			"error", err,
		)
	}
}
