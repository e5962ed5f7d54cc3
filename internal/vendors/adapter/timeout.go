package adapter

import (
	"time"

	"veriflow/internal/vendors/models"
)

// TimeoutPolicy computes per-vendor call timeouts.
type TimeoutPolicy struct {
	// SafetyFactor multiplies the vendor's average latency.
	SafetyFactor float64
	Min          time.Duration
	Max          time.Duration
}

// DefaultTimeoutPolicy mirrors the configuration defaults.
func DefaultTimeoutPolicy() TimeoutPolicy {
	return TimeoutPolicy{SafetyFactor: 3, Min: 500 * time.Millisecond, Max: 10 * time.Second}
}

// TimeoutFor returns the vendor's override when set, otherwise
// avgLatency × SafetyFactor clamped to [Min, Max].
func (p TimeoutPolicy) TimeoutFor(vendor models.Vendor) time.Duration {
	if vendor.Timeout > 0 {
		return vendor.Timeout
	}
	d := time.Duration(float64(vendor.AvgLatency) * p.SafetyFactor)
	if d < p.Min {
		d = p.Min
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}
