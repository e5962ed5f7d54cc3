package admin

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
}

// RegisterSteps registers operator endpoint steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^vendor "([^"]*)" should be listed as "([^"]*)"$`, steps.vendorListedAs)
	ctx.Step(`^the audit trail should contain "([^"]*)"$`, steps.trailContains)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) vendorListedAs(ctx context.Context, vendorID, status string) error {
	if err := s.tc.GET("/v1/vendors", nil); err != nil {
		return err
	}
	value, err := s.tc.GetResponseField("vendors")
	if err != nil {
		return err
	}
	vendors, _ := value.([]interface{})
	for _, v := range vendors {
		obj, _ := v.(map[string]interface{})
		if obj["id"] == vendorID {
			if obj["status"] != status {
				return fmt.Errorf("vendor %s is %v, want %s", vendorID, obj["status"], status)
			}
			return nil
		}
	}
	return fmt.Errorf("vendor %s not listed", vendorID)
}

func (s *adminSteps) trailContains(ctx context.Context, action string) error {
	if err := s.tc.GET("/admin/verifications/{verification_id}/audit", nil); err != nil {
		return err
	}
	value, err := s.tc.GetResponseField("events")
	if err != nil {
		return err
	}
	events, _ := value.([]interface{})
	for _, e := range events {
		obj, _ := e.(map[string]interface{})
		if obj["action"] == action {
			return nil
		}
	}
	return fmt.Errorf("audit trail has no %q event", action)
}
