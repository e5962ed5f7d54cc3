package models

import (
	"slices"
	"strings"

	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
)

// RiskProfile is the operator-assigned risk tier of a client.
type RiskProfile string

const (
	RiskLow    RiskProfile = "Low"
	RiskMedium RiskProfile = "Medium"
	RiskHigh   RiskProfile = "High"
)

// ParseRiskProfile accepts a tier case-insensitively. Empty means Low.
func ParseRiskProfile(s string) (RiskProfile, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RiskLow, nil
	}
	for _, p := range []RiskProfile{RiskLow, RiskMedium, RiskHigh} {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid risk profile")
}

// ClientStatus gates whether a client's requests are processed.
type ClientStatus string

const (
	ClientActive ClientStatus = "Active"
	ClientPaused ClientStatus = "Paused"
)

// ParseClientStatus accepts a status case-insensitively. Empty means Active.
func ParseClientStatus(s string) (ClientStatus, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "", strings.EqualFold(s, string(ClientActive)):
		return ClientActive, nil
	case strings.EqualFold(s, string(ClientPaused)):
		return ClientPaused, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid client status")
}

// Thresholds are the score cut-offs of a client.
type Thresholds struct {
	AutoApprove  float64 `json:"auto_approve"`
	ManualReview float64 `json:"manual_review"`
}

// Validate checks that both thresholds are in [0,1] and ordered.
func (t Thresholds) Validate() error {
	if !inUnitRange(t.AutoApprove) || !inUnitRange(t.ManualReview) {
		return dErrors.New(dErrors.CodeInvariantViolation, "thresholds must be within [0,1]")
	}
	if t.ManualReview > t.AutoApprove {
		return dErrors.New(dErrors.CodeInvariantViolation, "manual_review threshold must not exceed auto_approve")
	}
	return nil
}

// inUnitRange is false for NaN.
func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// Client is a tenant of the orchestration engine.
//
// Invariants:
//   - ID is a non-empty slug
//   - AllowedVendors is non-empty and free of duplicates
//   - Workflow is Primary, Fallback or Parallel
//   - 0 <= ManualReview <= AutoApprove <= 1
type Client struct {
	ID             id.ClientID     `json:"id"`
	Name           string          `json:"name"`
	AllowedVendors []id.VendorID   `json:"allowed_vendors"`
	Workflow       id.WorkflowMode `json:"workflow"`
	Thresholds     Thresholds      `json:"thresholds"`
	Webhooks       []string        `json:"webhooks,omitempty"`
	RiskProfile    RiskProfile     `json:"risk_profile"`
	Status         ClientStatus    `json:"status"`
}

// Validate checks the client invariants.
func (c *Client) Validate() error {
	if c.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "client id cannot be empty")
	}
	prefix := "client " + c.ID.String() + ": "
	if len(c.AllowedVendors) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, prefix+"allowed vendors cannot be empty")
	}
	seen := make(map[id.VendorID]struct{}, len(c.AllowedVendors))
	for _, v := range c.AllowedVendors {
		if _, dup := seen[v]; dup {
			return dErrors.New(dErrors.CodeInvariantViolation, prefix+"duplicate allowed vendor "+v.String())
		}
		seen[v] = struct{}{}
	}
	if !c.Workflow.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, prefix+"invalid workflow mode")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, prefix+"invalid thresholds")
	}
	return nil
}

func (c Client) Allows(vendorID id.VendorID) bool {
	return slices.Contains(c.AllowedVendors, vendorID)
}

func (c Client) IsPaused() bool {
	return c.Status == ClientPaused
}
