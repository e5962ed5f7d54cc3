package handler

import (
	"strings"

	"veriflow/internal/verification/models"
	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
	strutil "veriflow/pkg/platform/strings"
)

const (
	maxMediaRefs     = 16
	maxIdentityKeys  = 32
	maxWatchlistTags = 32
)

// SubmitRequest is the HTTP request body for POST /v1/verifications.
type SubmitRequest struct {
	ClientID     string            `json:"client_id"`
	DocumentType string            `json:"document_type"`
	Country      string            `json:"country"`
	Identity     map[string]string `json:"identity"`
	MediaRefs    []string          `json:"media_refs"`
	Watchlist    []string          `json:"watchlist"`
	RiskScore    *float64          `json:"risk_score"`
	Checks       []string          `json:"checks"`

	// Parsed values (populated by Validate)
	parsedClientID id.ClientID
	parsedChecks   []id.CheckKind
}

// Normalize trims free-form fields.
// Implements the Normalizable interface for httputil.DecodeAndPrepare.
func (r *SubmitRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.DocumentType = strings.TrimSpace(r.DocumentType)
	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
	r.Watchlist = strutil.DedupeAndTrimLower(r.Watchlist)
	r.MediaRefs = strutil.DedupeAndTrim(r.MediaRefs)
}

// Validate checks sizes and parses identifiers.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.MediaRefs) > maxMediaRefs {
		return dErrors.New(dErrors.CodeValidation, "too many media_refs")
	}
	if len(r.Identity) > maxIdentityKeys {
		return dErrors.New(dErrors.CodeValidation, "too many identity fields")
	}
	if len(r.Watchlist) > maxWatchlistTags {
		return dErrors.New(dErrors.CodeValidation, "too many watchlist entries")
	}

	if r.ClientID == "" {
		return dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	clientID, err := id.ParseClientID(r.ClientID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid client_id")
	}
	r.parsedClientID = clientID

	r.parsedChecks = make([]id.CheckKind, 0, len(r.Checks))
	for _, c := range r.Checks {
		kind, err := id.ParseCheckKind(c)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid checks entry")
		}
		r.parsedChecks = append(r.parsedChecks, kind)
	}
	return nil
}

// Intake builds the domain intake. device carries the tags derived from the
// caller's User-Agent.
func (r *SubmitRequest) Intake(device []string) models.Intake {
	return models.Intake{
		ClientID:     r.parsedClientID,
		DocumentType: r.DocumentType,
		Country:      r.Country,
		Identity:     r.Identity,
		MediaRefs:    r.MediaRefs,
		Watchlist:    r.Watchlist,
		RiskScore:    r.RiskScore,
		Checks:       r.parsedChecks,
		Device:       device,
	}
}
