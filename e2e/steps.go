package e2e

import (
	"github.com/cucumber/godog"

	"veriflow/e2e/steps/admin"
	"veriflow/e2e/steps/common"
	"veriflow/e2e/steps/verification"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and assertions
	common.RegisterSteps(ctx, tc)

	// Submitting and processing verifications
	verification.RegisterSteps(ctx, tc)

	// Operator endpoints
	admin.RegisterSteps(ctx, tc)
}
