package adapter

import (
	"context"
	"hash/fnv"
	"time"

	"veriflow/internal/vendors/models"
)

// Sandbox is a deterministic vendor used for sandbox vendors and tests.
// The score is BaseScore shifted by up to ±Spread according to a hash of the
// request and vendor ids, so the same request always scores the same.
type Sandbox struct {
	BaseScore float64
	Spread    float64
	Latency   time.Duration

	// FailWith, when set, makes every call fail with this category.
	FailWith models.FailureCategory
}

// NewSandbox returns a sandbox scoring around base with no latency.
func NewSandbox(base float64) *Sandbox {
	return &Sandbox{BaseScore: base, Spread: 0.05}
}

func (s *Sandbox) Submit(ctx context.Context, vendor models.Vendor, evidence models.Evidence, timeout time.Duration) models.Result {
	start := time.Now()

	if s.Latency > 0 {
		wait := s.Latency
		timer := time.NewTimer(min(wait, timeout))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.Failed(vendor.ID, models.FailureTimeout, "request deadline reached", time.Since(start), time.Now())
		case <-timer.C:
		}
		if wait > timeout {
			return models.Failed(vendor.ID, models.FailureTimeout, "sandbox latency exceeds timeout", time.Since(start), time.Now())
		}
	}

	if s.FailWith != "" {
		return models.Failed(vendor.ID, s.FailWith, "sandbox configured to fail", time.Since(start), time.Now())
	}

	return models.Succeeded(vendor.ID, s.scoreFor(vendor, evidence), time.Since(start), time.Now())
}

func (s *Sandbox) scoreFor(vendor models.Vendor, evidence models.Evidence) float64 {
	if s.Spread == 0 {
		return s.BaseScore
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(evidence.RequestID.String()))
	_, _ = h.Write([]byte(vendor.ID))
	// Map the hash onto [-1, 1].
	unit := float64(h.Sum32())/float64(^uint32(0))*2 - 1
	return s.BaseScore + unit*s.Spread
}
