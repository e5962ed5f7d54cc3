package models

import (
	"fmt"
	"math"
	"time"

	id "veriflow/pkg/domain"
)

// FailureCategory is the normalized vendor failure taxonomy.
type FailureCategory string

const (
	// FailureTimeout: the vendor did not answer within its timeout or the
	// request deadline.
	FailureTimeout FailureCategory = "timeout"

	// FailureBadData: the vendor rejected or could not process the evidence.
	FailureBadData FailureCategory = "bad_data"

	// FailureAuthentication: credentials were refused.
	FailureAuthentication FailureCategory = "authentication"

	// FailureProviderOutage: the vendor is unavailable (5xx, connection refused).
	FailureProviderOutage FailureCategory = "provider_outage"

	// FailureContractMismatch: the response did not match the expected shape.
	FailureContractMismatch FailureCategory = "contract_mismatch"

	// FailureRateLimited: the vendor throttled the call.
	FailureRateLimited FailureCategory = "rate_limited"

	// FailureCircuitOpen: the call was short-circuited by the vendor's breaker.
	FailureCircuitOpen FailureCategory = "circuit_open"

	// FailureInternal: an unexpected error inside the adapter.
	FailureInternal FailureCategory = "internal"
)

// Retryable reports whether another attempt against the same vendor may
// succeed. Only transient categories qualify.
func (c FailureCategory) Retryable() bool {
	switch c {
	case FailureTimeout, FailureProviderOutage, FailureRateLimited:
		return true
	}
	return false
}

// Failure is the structured reason attached to an unsuccessful result.
type Failure struct {
	Category FailureCategory `json:"category"`
	Message  string          `json:"message"`
}

func (f Failure) String() string {
	if f.Message == "" {
		return string(f.Category)
	}
	return fmt.Sprintf("%s: %s", f.Category, f.Message)
}

// Result is the normalized outcome of one vendor attempt. Immutable once
// recorded.
//
// Invariants:
//   - 0 <= Score <= 1
//   - Success == false implies Failure != nil
type Result struct {
	VendorID  id.VendorID   `json:"vendor_id"`
	Score     float64       `json:"score"`
	Success   bool          `json:"success"`
	Latency   time.Duration `json:"latency"`
	Failure   *Failure      `json:"failure,omitempty"`
	Attempt   int           `json:"attempt"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Succeeded builds a successful result, clamping score to [0,1].
func Succeeded(vendorID id.VendorID, score float64, latency time.Duration, at time.Time) Result {
	return Result{
		VendorID:  vendorID,
		Score:     ClampScore(score),
		Success:   true,
		Latency:   latency,
		CheckedAt: at,
	}
}

// Failed builds an unsuccessful result with a zero score.
func Failed(vendorID id.VendorID, category FailureCategory, message string, latency time.Duration, at time.Time) Result {
	return Result{
		VendorID:  vendorID,
		Success:   false,
		Latency:   latency,
		Failure:   &Failure{Category: category, Message: message},
		CheckedAt: at,
	}
}

// Retryable reports whether the result is a failure worth another attempt.
func (r Result) Retryable() bool {
	return !r.Success && r.Failure != nil && r.Failure.Category.Retryable()
}

// FailureCategory returns the failure category, or "" for successes.
func (r Result) FailureCategory() FailureCategory {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Category
}

// ClampScore bounds a score to [0,1]. NaN becomes 0.
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}
