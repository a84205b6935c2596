package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Request(ctx context.Context, method, path, role string, body any) error
	Status() int
	Body() string
	ResponseField(field string) (any, error)
	Save(name, value string)
	Expand(s string) string
}

// RegisterSteps registers generic request and assertion step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Request steps
	ctx.Step(`^"([^"]*)" sends (GET|POST|DELETE) "([^"]*)"$`, steps.send)
	ctx.Step(`^"([^"]*)" sends (POST) "([^"]*)" with:$`, steps.sendWithBody)
	ctx.Step(`^an anonymous caller sends (GET|POST|DELETE) "([^"]*)"$`, steps.sendAnonymous)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveField)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) send(ctx context.Context, role, method, path string) error {
	return s.tc.Request(ctx, method, path, role, nil)
}

func (s *commonSteps) sendWithBody(ctx context.Context, role, method, path string, doc *godog.DocString) error {
	var body map[string]any
	if err := json.Unmarshal([]byte(s.tc.Expand(doc.Content)), &body); err != nil {
		return fmt.Errorf("request body is not JSON: %w", err)
	}
	return s.tc.Request(ctx, method, path, role, body)
}

func (s *commonSteps) sendAnonymous(ctx context.Context, method, path string) error {
	return s.tc.Request(ctx, method, path, "", nil)
}

func (s *commonSteps) saveField(ctx context.Context, field, name string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(name, format(v))
	return nil
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if s.tc.Status() != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.tc.Status(), s.tc.Body())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldBe(ctx, "error", code)
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, expected string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got := format(v); got != s.tc.Expand(expected) {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

// format renders a decoded JSON value the way it is written in features.
func format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}
