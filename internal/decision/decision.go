// Package decision turns vendor results, a rule match and client thresholds
// into the single authoritative outcome of a verification request.
// Everything here is pure: no I/O, no clocks, no side effects.
package decision

import (
	"slices"
	"time"

	"veriflow/internal/rules"
	"veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
)

// Reason explains which policy step produced the status.
type Reason string

const (
	ReasonNoSuccessfulVendor Reason = "no_successful_vendor"
	ReasonRuleForced         Reason = "rule_forced"
	ReasonAutoApprove        Reason = "auto_approve_threshold"
	ReasonManualReview       Reason = "manual_review_threshold"
	ReasonBelowThresholds    Reason = "below_thresholds"
)

// Decision is the terminal outcome of a verification request.
//
// Invariants:
//   - Score is nil iff no vendor result succeeded
//   - Status is never success when Score is nil
type Decision struct {
	Status      id.VerificationStatus `json:"status"`
	Score       *float64              `json:"score"`
	Results     []models.Result       `json:"results"`
	MatchedRule *rules.Match          `json:"matched_rule,omitempty"`
	Reason      Reason                `json:"reason"`
	Notify      bool                  `json:"notify"`
	DecidedAt   time.Time             `json:"decided_at"`
}

// Input is everything the policy needs.
type Input struct {
	Results    []models.Result
	Thresholds models.Thresholds
	Match      *rules.Match
}

// Aggregate returns the arithmetic mean of the scores of successful
// results, or nil when none succeeded. Scores are summed in sorted order so
// the result does not depend on the order results arrived in.
func Aggregate(results []models.Result) *float64 {
	scores := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Success {
			scores = append(scores, r.Score)
		}
	}
	if len(scores) == 0 {
		return nil
	}
	slices.Sort(scores)
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	return &mean
}

// Decide applies the decision policy:
//
//  0. no successful vendor: failed, unless a matched rule forces review or
//     pending (a rule can never approve without evidence)
//  1. a matched rule forcing a status wins
//  2. aggregate >= AutoApprove: success
//  3. aggregate >= ManualReview: review
//  4. otherwise failed
//
// Boundaries are inclusive and compared on exact float values.
func Decide(in Input, decidedAt time.Time) Decision {
	d := Decision{
		Score:       Aggregate(in.Results),
		Results:     in.Results,
		MatchedRule: in.Match,
		DecidedAt:   decidedAt,
	}
	if in.Match != nil {
		d.Notify = in.Match.Directive.Notify
	}
	forced := forcedStatus(in.Match)

	if d.Score == nil {
		if forced == id.StatusReview || forced == id.StatusPending {
			d.Status = forced
			d.Reason = ReasonRuleForced
			return d
		}
		d.Status = id.StatusFailed
		d.Reason = ReasonNoSuccessfulVendor
		return d
	}

	if forced != "" {
		d.Status = forced
		d.Reason = ReasonRuleForced
		return d
	}

	score := *d.Score
	switch {
	case score >= in.Thresholds.AutoApprove:
		d.Status = id.StatusSuccess
		d.Reason = ReasonAutoApprove
	case score >= in.Thresholds.ManualReview:
		d.Status = id.StatusReview
		d.Reason = ReasonManualReview
	default:
		d.Status = id.StatusFailed
		d.Reason = ReasonBelowThresholds
	}
	return d
}

func forcedStatus(m *rules.Match) id.VerificationStatus {
	if m == nil {
		return ""
	}
	return m.Directive.ForceStatus
}
