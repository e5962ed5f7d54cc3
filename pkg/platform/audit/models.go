package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: the final
	// verification decision for a request. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers configuration changes that alter how requests are
	// decided (snapshot reloads).
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers per-request detail useful for debugging vendor
	// behaviour: individual attempts and rule evaluations.
	CategoryOperations EventCategory = "operations"
)

// Event is one line of a verification audit trail. Keep it transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`

	// Verification request the event belongs to. Every event of one trail
	// shares the same RequestID so sinks can partition by it.
	RequestID string `json:"request_id"`
	ClientID  string `json:"client_id,omitempty"`

	// Vendor attempt fields.
	VendorID  string `json:"vendor_id,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latency_ms,omitempty"`

	// Rule evaluation fields.
	RuleID  string `json:"rule_id,omitempty"`
	Matched bool   `json:"matched,omitempty"`

	// Decision fields. Score is nil when no vendor succeeded.
	Decision string   `json:"decision,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	Reason   string   `json:"reason,omitempty"`

	// CorrelationID is the transport-level request id (X-Request-ID).
	CorrelationID string `json:"correlation_id,omitempty"`
}

type AuditEvent string

const (
	EventRequestReceived  AuditEvent = "request_received"
	EventVendorAttempt    AuditEvent = "vendor_attempt"
	EventVendorError      AuditEvent = "vendor_error"
	EventRuleEvaluated    AuditEvent = "rule_evaluated"
	EventDecisionMade     AuditEvent = "decision_made"
	EventProcessRejected  AuditEvent = "process_rejected"
	EventSnapshotReloaded AuditEvent = "snapshot_reloaded"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDecisionMade:     CategoryCompliance,
	EventSnapshotReloaded: CategorySecurity,

	EventRequestReceived: CategoryOperations,
	EventVendorAttempt:   CategoryOperations,
	EventVendorError:     CategoryOperations,
	EventRuleEvaluated:   CategoryOperations,
	EventProcessRejected: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must preserve append order per
// RequestID.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader is implemented by stores that can serve a trail back.
type Reader interface {
	ListByRequest(ctx context.Context, requestID string) ([]Event, error)
}
