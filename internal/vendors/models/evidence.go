package models

import (
	id "veriflow/pkg/domain"
)

// Evidence is what an adapter sends to a vendor for one request. Media
// references are opaque; the engine never reads the media itself.
type Evidence struct {
	RequestID    id.RequestID      `json:"request_id"`
	ClientID     id.ClientID       `json:"client_id"`
	DocumentType string            `json:"document_type"`
	Country      string            `json:"country"`
	Identity     map[string]string `json:"identity,omitempty"`
	MediaRefs    []string          `json:"media_refs,omitempty"`
	Device       []string          `json:"device,omitempty"`
	Watchlist    []string          `json:"watchlist,omitempty"`
	RiskScore    *float64          `json:"risk_score,omitempty"`
	Checks       []id.CheckKind    `json:"checks,omitempty"`
}
