package verification

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Remember(name, value string)
}

// RegisterSteps registers verification lifecycle steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verificationSteps{tc: tc}

	ctx.Step(`^a verification for client "([^"]*)" with a "([^"]*)" from "([^"]*)"$`, steps.verificationFor)
	ctx.Step(`^the applicant is flagged on watchlist "([^"]*)"$`, steps.flaggedOn)
	ctx.Step(`^I submit the verification$`, steps.submit)
	ctx.Step(`^I process the verification$`, steps.process)
	ctx.Step(`^I fetch the verification$`, steps.fetch)
	ctx.Step(`^the decision status should be one of "([^"]*)"$`, steps.statusOneOf)
	ctx.Step(`^the decision should carry (\d+) vendor results?$`, steps.resultCount)
}

type verificationSteps struct {
	tc      TestContext
	payload map[string]interface{}
	id      string
}

func (s *verificationSteps) verificationFor(ctx context.Context, client, document, country string) error {
	s.payload = map[string]interface{}{
		"client_id":     client,
		"document_type": document,
		"country":       country,
		"identity":      map[string]string{"given_name": "Ada", "family_name": "Lovelace"},
		"checks":        []string{"Document"},
	}
	s.id = ""
	return nil
}

func (s *verificationSteps) flaggedOn(ctx context.Context, list string) error {
	s.payload["watchlist"] = []string{list}
	return nil
}

func (s *verificationSteps) submit(ctx context.Context) error {
	if err := s.tc.POST("/v1/verifications", s.payload); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return nil
	}
	value, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.id = fmt.Sprint(value)
	s.tc.Remember("verification_id", s.id)
	return nil
}

func (s *verificationSteps) process(ctx context.Context) error {
	if s.id == "" {
		return fmt.Errorf("no verification submitted")
	}
	return s.tc.POST("/v1/verifications/"+s.id+"/process", nil)
}

func (s *verificationSteps) fetch(ctx context.Context) error {
	if s.id == "" {
		return fmt.Errorf("no verification submitted")
	}
	return s.tc.GET("/v1/verifications/"+s.id, nil)
}

func (s *verificationSteps) statusOneOf(ctx context.Context, allowed string) error {
	value, err := s.tc.GetResponseField("status")
	if err != nil {
		return err
	}
	got := fmt.Sprint(value)
	for _, want := range strings.Split(allowed, ",") {
		if strings.TrimSpace(want) == got {
			return nil
		}
	}
	return fmt.Errorf("decision status %q not in %q", got, allowed)
}

func (s *verificationSteps) resultCount(ctx context.Context, n int) error {
	value, err := s.tc.GetResponseField("results")
	if err != nil {
		return err
	}
	results, ok := value.([]interface{})
	if !ok || len(results) != n {
		return fmt.Errorf("expected %d vendor results, got %v", n, value)
	}
	return nil
}
