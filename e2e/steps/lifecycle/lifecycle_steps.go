package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Request(ctx context.Context, method, path, role string, body any) error
	Status() int
	Body() string
	ResponseField(field string) (any, error)
	Address(role string) (string, error)
	Save(name, value string)
	Saved(name string) (string, bool)
}

const pollInterval = 250 * time.Millisecond

// RegisterSteps registers credit lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &lifecycleSteps{tc: tc}

	// Setup steps
	ctx.Step(`^"([^"]*)" is an authorized issuer$`, steps.ensureIssuer)
	ctx.Step(`^"([^"]*)" registers a credit of (\d+) for project "([^"]*)"$`, steps.registerCredit)
	ctx.Step(`^"([^"]*)" requests verification of the credit$`, steps.requestVerification)

	// Lifecycle steps
	ctx.Step(`^the verification should become "([^"]*)" within (\d+) seconds$`, steps.awaitVerification)
	ctx.Step(`^"([^"]*)" mints a batch of (\d+) for project "([^"]*)" to "([^"]*)"$`, steps.mintBatch)
	ctx.Step(`^"([^"]*)" issues (\d+) credits from the batch to "([^"]*)"$`, steps.issue)
	ctx.Step(`^"([^"]*)" retires (\d+) credits for "([^"]*)"$`, steps.retire)

	// Assertion steps
	ctx.Step(`^the balance of "([^"]*)" should be (\d+)$`, steps.balanceShouldBe)
}

type lifecycleSteps struct {
	tc TestContext
}

func (s *lifecycleSteps) ensureIssuer(ctx context.Context, role string) error {
	addr, err := s.tc.Address(role)
	if err != nil {
		return err
	}
	return s.expect(ctx, http.MethodPost, "/issuers", "admin", map[string]any{"address": addr}, http.StatusNoContent)
}

func (s *lifecycleSteps) registerCredit(ctx context.Context, role string, amount int, project string) error {
	body := map[string]any{"amount": amount, "project_id": project}
	if err := s.expect(ctx, http.MethodPost, "/credits", role, body, http.StatusCreated); err != nil {
		return err
	}
	return s.saveField("id", "credit")
}

func (s *lifecycleSteps) requestVerification(ctx context.Context, role string) error {
	credit, err := s.saved("credit")
	if err != nil {
		return err
	}
	path := "/credits/" + credit + "/verification"
	if err := s.expect(ctx, http.MethodPost, path, role, nil, http.StatusAccepted); err != nil {
		return err
	}
	return s.saveField("request_id", "request")
}

// awaitVerification polls until the request leaves pending. The verifier
// answers asynchronously through the outbox.
func (s *lifecycleSteps) awaitVerification(ctx context.Context, status string, seconds int) error {
	request, err := s.saved("request")
	if err != nil {
		return err
	}
	deadline := time.Now().Add(time.Duration(seconds) * time.Second)
	for {
		if err := s.expect(ctx, http.MethodGet, "/verifications/"+request, "", nil, http.StatusOK); err != nil {
			return err
		}
		got, err := s.tc.ResponseField("status")
		if err != nil {
			return err
		}
		if got == status {
			return nil
		}
		if got != "pending" {
			return fmt.Errorf("verification settled as %v, want %s: %s", got, status, s.tc.Body())
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("verification still pending after %ds", seconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (s *lifecycleSteps) mintBatch(ctx context.Context, role string, total int, project, recipient string) error {
	credit, err := s.saved("credit")
	if err != nil {
		return err
	}
	to, err := s.tc.Address(recipient)
	if err != nil {
		return err
	}
	var creditID uint64
	if _, err := fmt.Sscan(credit, &creditID); err != nil {
		return fmt.Errorf("saved credit id %q: %w", credit, err)
	}
	body := map[string]any{
		"recipient":        to,
		"project_id":       project,
		"total_credits":    total,
		"source_credit_id": creditID,
	}
	if err := s.tc.Request(ctx, http.MethodPost, "/batches", role, body); err != nil {
		return err
	}
	if s.tc.Status() != http.StatusCreated {
		// leave the response for the status assertions that follow
		return nil
	}
	if err := s.saveField("id", "batch"); err != nil {
		return err
	}
	return s.saveField("ledger_address", "ledger")
}

func (s *lifecycleSteps) issue(ctx context.Context, role string, amount int, recipient string) error {
	ledger, err := s.saved("ledger")
	if err != nil {
		return err
	}
	to, err := s.tc.Address(recipient)
	if err != nil {
		return err
	}
	return s.expect(ctx, http.MethodPost, "/ledgers/"+ledger+"/mint", role,
		map[string]any{"to": to, "amount": amount}, http.StatusOK)
}

func (s *lifecycleSteps) retire(ctx context.Context, role string, amount int, reason string) error {
	ledger, err := s.saved("ledger")
	if err != nil {
		return err
	}
	return s.tc.Request(ctx, http.MethodPost, "/ledgers/"+ledger+"/retire", role,
		map[string]any{"amount": amount, "reason": reason})
}

func (s *lifecycleSteps) balanceShouldBe(ctx context.Context, role string, expected int) error {
	ledger, err := s.saved("ledger")
	if err != nil {
		return err
	}
	holder, err := s.tc.Address(role)
	if err != nil {
		return err
	}
	if err := s.expect(ctx, http.MethodGet, "/ledgers/"+ledger+"/balances/"+holder, "", nil, http.StatusOK); err != nil {
		return err
	}
	got, err := s.tc.ResponseField("balance")
	if err != nil {
		return err
	}
	if got != float64(expected) {
		return fmt.Errorf("expected balance %d, got %v", expected, got)
	}
	return nil
}

func (s *lifecycleSteps) expect(ctx context.Context, method, path, role string, body any, status int) error {
	if err := s.tc.Request(ctx, method, path, role, body); err != nil {
		return err
	}
	if s.tc.Status() != status {
		return fmt.Errorf("%s %s: expected status %d, got %d: %s", method, path, status, s.tc.Status(), s.tc.Body())
	}
	return nil
}

func (s *lifecycleSteps) saveField(field, name string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		s.tc.Save(name, fmt.Sprintf("%d", uint64(t)))
	default:
		s.tc.Save(name, fmt.Sprint(t))
	}
	return nil
}

func (s *lifecycleSteps) saved(name string) (string, error) {
	v, ok := s.tc.Saved(name)
	if !ok {
		return "", fmt.Errorf("no %s saved by an earlier step", name)
	}
	return v, nil
}
