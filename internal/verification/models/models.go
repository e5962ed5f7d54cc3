// Package models holds the verification request aggregate and its lifecycle.
package models

import (
	"strings"
	"time"

	"veriflow/internal/decision"
	vendormodels "veriflow/internal/vendors/models"
	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	"veriflow/pkg/platform/sentinel"
)

// State is the processing lifecycle of a request.
//
//	received -> processing -> decided
//	processing -> received   (claim released without a decision)
type State string

const (
	StateReceived   State = "received"
	StateProcessing State = "processing"
	StateDecided    State = "decided"
)

// Intake is the evidence submitted for a new request.
type Intake struct {
	ClientID     id.ClientID
	DocumentType string
	Country      string
	Identity     map[string]string
	MediaRefs    []string
	Watchlist    []string
	RiskScore    *float64
	Checks       []id.CheckKind
	Device       []string
}

// VerificationRequest is created on intake and only ever mutated by
// attaching vendor attempts and the terminal decision.
type VerificationRequest struct {
	ID           id.RequestID      `json:"id"`
	ClientID     id.ClientID       `json:"client_id"`
	DocumentType string            `json:"document_type"`
	Country      string            `json:"country"`
	Identity     map[string]string `json:"identity,omitempty"`
	MediaRefs    []string          `json:"media_refs,omitempty"`
	Watchlist    []string          `json:"watchlist,omitempty"`
	RiskScore    *float64          `json:"risk_score,omitempty"`
	Checks       []id.CheckKind    `json:"checks,omitempty"`
	Device       []string          `json:"device,omitempty"`

	State     State                 `json:"state"`
	Attempts  []vendormodels.Result `json:"attempts,omitempty"`
	Decision  *decision.Decision    `json:"decision,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	ClaimedAt *time.Time            `json:"claimed_at,omitempty"`
	DecidedAt *time.Time            `json:"decided_at,omitempty"`
}

// NewVerificationRequest validates intake and builds a request in the
// received state.
func NewVerificationRequest(requestID id.RequestID, in Intake, now time.Time) (*VerificationRequest, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request id required")
	}
	if in.ClientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	docType := strings.TrimSpace(in.DocumentType)
	if docType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document_type is required")
	}
	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if len(country) != 2 {
		return nil, dErrors.New(dErrors.CodeValidation, "country must be an ISO 3166-1 alpha-2 code")
	}
	if in.RiskScore != nil && (*in.RiskScore < 0 || *in.RiskScore > 1) {
		return nil, dErrors.New(dErrors.CodeValidation, "risk_score must be within [0,1]")
	}
	for _, c := range in.Checks {
		if !c.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "unsupported check kind: "+string(c))
		}
	}

	return &VerificationRequest{
		ID:           requestID,
		ClientID:     in.ClientID,
		DocumentType: docType,
		Country:      country,
		Identity:     in.Identity,
		MediaRefs:    in.MediaRefs,
		Watchlist:    in.Watchlist,
		RiskScore:    in.RiskScore,
		Checks:       in.Checks,
		Device:       in.Device,
		State:        StateReceived,
		CreatedAt:    now,
	}, nil
}

// IsDecided reports whether the request reached its terminal state.
func (r *VerificationRequest) IsDecided() bool {
	return r.State == StateDecided
}

// ClaimExpired reports whether a processing claim is older than ttl and may
// be taken over. A zero ttl never expires.
func (r *VerificationRequest) ClaimExpired(now time.Time, ttl time.Duration) bool {
	if r.State != StateProcessing || r.ClaimedAt == nil || ttl <= 0 {
		return false
	}
	return now.Sub(*r.ClaimedAt) > ttl
}

// Claim moves the request to processing. A processing request whose claim
// is older than ttl may be claimed again.
//
// Errors: sentinel.ErrInvalidState when decided, sentinel.ErrAlreadyClaimed
// when another claim is live.
func (r *VerificationRequest) Claim(now time.Time, ttl time.Duration) error {
	switch {
	case r.State == StateDecided:
		return sentinel.ErrInvalidState
	case r.State == StateProcessing && !r.ClaimExpired(now, ttl):
		return sentinel.ErrAlreadyClaimed
	}
	r.State = StateProcessing
	r.ClaimedAt = &now
	return nil
}

// Release returns a claimed request to received without a decision.
func (r *VerificationRequest) Release() error {
	if r.State != StateProcessing {
		return sentinel.ErrInvalidState
	}
	r.State = StateReceived
	r.ClaimedAt = nil
	return nil
}

// Complete attaches every vendor attempt and the terminal decision.
func (r *VerificationRequest) Complete(attempts []vendormodels.Result, d decision.Decision) error {
	if r.State != StateProcessing {
		return sentinel.ErrInvalidState
	}
	decidedAt := d.DecidedAt
	r.Attempts = attempts
	r.Decision = &d
	r.DecidedAt = &decidedAt
	r.State = StateDecided
	return nil
}

// Evidence builds what adapters receive for this request.
func (r *VerificationRequest) Evidence() vendormodels.Evidence {
	return vendormodels.Evidence{
		RequestID:    r.ID,
		ClientID:     r.ClientID,
		DocumentType: r.DocumentType,
		Country:      r.Country,
		Identity:     r.Identity,
		MediaRefs:    r.MediaRefs,
		Device:       r.Device,
		Watchlist:    r.Watchlist,
		RiskScore:    r.RiskScore,
		Checks:       r.Checks,
	}
}
