package handler

import (
	"time"

	"veriflow/internal/decision"
	vendormodels "veriflow/internal/vendors/models"
	"veriflow/internal/verification/models"
)

// SubmitResponse is the HTTP response for POST /v1/verifications.
type SubmitResponse struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// ResultResponse is one vendor attempt.
type ResultResponse struct {
	VendorID  string    `json:"vendor_id"`
	Attempt   int       `json:"attempt"`
	Success   bool      `json:"success"`
	Score     *float64  `json:"score,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	Failure   string    `json:"failure,omitempty"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// MatchedRuleResponse names the rule that fired.
type MatchedRuleResponse struct {
	RuleID string `json:"rule_id"`
	Name   string `json:"name,omitempty"`
	Action string `json:"action"`
}

// DecisionResponse is the HTTP response for POST /v1/verifications/{id}/process.
type DecisionResponse struct {
	Status      string               `json:"status"`
	Score       *float64             `json:"score"`
	Reason      string               `json:"reason"`
	MatchedRule *MatchedRuleResponse `json:"matched_rule,omitempty"`
	Results     []ResultResponse     `json:"results"`
	DecidedAt   time.Time            `json:"decided_at"`
}

// VerificationResponse is the HTTP response for GET /v1/verifications/{id}.
type VerificationResponse struct {
	ID           string            `json:"id"`
	ClientID     string            `json:"client_id"`
	DocumentType string            `json:"document_type"`
	Country      string            `json:"country"`
	State        string            `json:"state"`
	Attempts     []ResultResponse  `json:"attempts"`
	Decision     *DecisionResponse `json:"decision,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	DecidedAt    *time.Time        `json:"decided_at,omitempty"`
}

func fromResult(r vendormodels.Result) ResultResponse {
	resp := ResultResponse{
		VendorID:  r.VendorID.String(),
		Attempt:   r.Attempt,
		Success:   r.Success,
		LatencyMs: r.Latency.Milliseconds(),
		CheckedAt: r.CheckedAt,
	}
	if r.Success {
		score := r.Score
		resp.Score = &score
	}
	if r.Failure != nil {
		resp.Failure = string(r.Failure.Category)
		resp.Message = r.Failure.Message
	}
	return resp
}

func fromResults(results []vendormodels.Result) []ResultResponse {
	out := make([]ResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, fromResult(r))
	}
	return out
}

// FromDecision converts a decision to its HTTP response.
func FromDecision(d *decision.Decision) *DecisionResponse {
	resp := &DecisionResponse{
		Status:    d.Status.String(),
		Score:     d.Score,
		Reason:    string(d.Reason),
		Results:   fromResults(d.Results),
		DecidedAt: d.DecidedAt,
	}
	if d.MatchedRule != nil {
		resp.MatchedRule = &MatchedRuleResponse{
			RuleID: d.MatchedRule.RuleID.String(),
			Name:   d.MatchedRule.RuleName,
			Action: d.MatchedRule.Action,
		}
	}
	return resp
}

// FromRequest converts a stored request to its HTTP response.
func FromRequest(req *models.VerificationRequest) *VerificationResponse {
	resp := &VerificationResponse{
		ID:           req.ID.String(),
		ClientID:     req.ClientID.String(),
		DocumentType: req.DocumentType,
		Country:      req.Country,
		State:        string(req.State),
		Attempts:     fromResults(req.Attempts),
		CreatedAt:    req.CreatedAt,
		DecidedAt:    req.DecidedAt,
	}
	if req.Decision != nil {
		resp.Decision = FromDecision(req.Decision)
	}
	return resp
}
