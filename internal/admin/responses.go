package admin

import (
	"time"

	"veriflow/internal/snapshot"
	"veriflow/pkg/platform/audit"
)

// SnapshotResponse describes the configuration in force.
type SnapshotResponse struct {
	Version  string    `json:"version"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Vendors  int       `json:"vendors"`
	Clients  int       `json:"clients"`
	Rules    int       `json:"rules"`
}

// VendorHealthResponse is one row of GET /v1/vendors.
type VendorHealthResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	Priority     int      `json:"priority"`
	Capabilities []string `json:"capabilities"`
	Region       string   `json:"region,omitempty"`
	Sandbox      bool     `json:"sandbox"`
	AvgLatencyMs int64    `json:"avg_latency_ms"`
	Breaker      string   `json:"breaker"`
}

// VendorsListResponse wraps the vendor health list.
type VendorsListResponse struct {
	SnapshotVersion string                  `json:"snapshot_version"`
	Vendors         []*VendorHealthResponse `json:"vendors"`
	Total           int                     `json:"total"`
}

// ClientResponse is one row of GET /admin/clients.
type ClientResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Workflow       string   `json:"workflow"`
	AllowedVendors []string `json:"allowed_vendors"`
	AutoApprove    float64  `json:"auto_approve"`
	ManualReview   float64  `json:"manual_review"`
	RiskProfile    string   `json:"risk_profile"`
	Status         string   `json:"status"`
}

// ClientsListResponse wraps the client list.
type ClientsListResponse struct {
	Clients []*ClientResponse `json:"clients"`
	Total   int               `json:"total"`
}

// AuditTrailResponse is the audit trail of one verification request.
type AuditTrailResponse struct {
	RequestID string        `json:"request_id"`
	Events    []audit.Event `json:"events"`
	Total     int           `json:"total"`
}

func fromSnapshot(snap *snapshot.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		Version:  snap.Version,
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt,
		Vendors:  snap.Vendors.Len(),
		Clients:  len(snap.Clients()),
		Rules:    snap.Rules.Total(),
	}
}
