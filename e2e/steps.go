package e2e

import (
	"github.com/cucumber/godog"

	"carbonmint/e2e/steps/common"
	"carbonmint/e2e/steps/lifecycle"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (identities, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register credit lifecycle steps
	lifecycle.RegisterSteps(ctx, tc)
}
