package orchestrator

import (
	"slices"

	"veriflow/internal/decision"
	"veriflow/internal/dispatch"
	"veriflow/internal/rules"
	"veriflow/internal/snapshot"
	vendormodels "veriflow/internal/vendors/models"
	"veriflow/internal/verification/models"
)

// buildRuleContext gathers the facts rules are evaluated against: the
// request's evidence, the client, and what the vendors returned.
func buildRuleContext(req *models.VerificationRequest, client vendormodels.Client, snap *snapshot.Snapshot, outcome dispatch.Outcome) rules.Context {
	rc := rules.Context{
		Country:           req.Country,
		DocumentType:      req.DocumentType,
		RiskProfile:       string(client.RiskProfile),
		Client:            client.ID.String(),
		Score:             decision.Aggregate(outcome.Results),
		DeclaredRiskScore: req.RiskScore,
		VendorCount:       len(outcome.Results),
		Watchlist:         req.Watchlist,
		Device:            req.Device,
	}

	var slowest float64
	anySuccess := false
	checks := make([]string, 0, len(req.Checks))
	for _, c := range req.Checks {
		checks = append(checks, string(c))
	}
	for _, r := range outcome.Results {
		if !r.Success {
			rc.FailedCount++
			continue
		}
		anySuccess = true
		slowest = max(slowest, r.Latency.Seconds())
		if v, ok := snap.Vendors.Get(r.VendorID); ok {
			for _, c := range v.Capabilities {
				checks = append(checks, string(c))
			}
		}
	}
	if anySuccess {
		rc.Latency = &slowest
	}
	slices.Sort(checks)
	rc.Checks = slices.Compact(checks)
	return rc
}
