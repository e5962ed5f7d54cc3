package models

import (
	"slices"
	"strings"
	"time"

	id "veriflow/pkg/domain"
	dErrors "veriflow/pkg/domain-errors"
)

// Status is the operational state of a vendor as reported by the snapshot.
type Status string

const (
	StatusOnline   Status = "online"
	StatusDegraded Status = "degraded"
	StatusOffline  Status = "offline"
)

// ParseStatus accepts a status case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOnline:
		return StatusOnline, nil
	case StatusDegraded:
		return StatusDegraded, nil
	case StatusOffline:
		return StatusOffline, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid vendor status")
}

func (s Status) IsValid() bool {
	return s == StatusOnline || s == StatusDegraded || s == StatusOffline
}

// Vendor is a third-party verification provider as configured by operators.
//
// Invariants:
//   - ID is a non-empty slug
//   - Status is online, degraded or offline
//   - Capabilities contains only known check kinds
//   - AvgLatency and Timeout are not negative
//
// Status is read from the snapshot in hand at dispatch time; it is never
// cached across requests.
type Vendor struct {
	ID           id.VendorID    `json:"id"`
	Name         string         `json:"name"`
	Capabilities []id.CheckKind `json:"capabilities"`
	Status       Status         `json:"status"`
	Priority     int            `json:"priority"`

	// RoutingTag selects the adapter implementation. It does not affect ranking.
	RoutingTag string        `json:"routing_tag"`
	AvgLatency time.Duration `json:"avg_latency"`
	Region     string        `json:"region,omitempty"`
	Sandbox    bool          `json:"sandbox"`

	// Timeout overrides the computed per-call timeout when positive.
	Timeout     time.Duration `json:"timeout,omitempty"`
	Endpoint    string        `json:"-"`
	Credentials string        `json:"-"`
}

// Validate checks the vendor invariants.
func (v *Vendor) Validate() error {
	if v.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "vendor id cannot be empty")
	}
	if !v.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "vendor "+v.ID.String()+": invalid status")
	}
	for _, c := range v.Capabilities {
		if !c.IsValid() {
			return dErrors.New(dErrors.CodeInvariantViolation, "vendor "+v.ID.String()+": unknown capability "+string(c))
		}
	}
	if v.AvgLatency < 0 || v.Timeout < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "vendor "+v.ID.String()+": latency and timeout must not be negative")
	}
	return nil
}

// IsEligible reports whether the vendor may receive traffic.
func (v Vendor) IsEligible() bool {
	return v.Status != StatusOffline
}

func (v Vendor) Supports(check id.CheckKind) bool {
	return slices.Contains(v.Capabilities, check)
}
