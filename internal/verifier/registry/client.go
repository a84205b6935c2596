// Package registry is the HTTP client for the external carbon registry API
// the verifier consults before fulfilling a request.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"carbonmint/internal/verifier/metrics"
	"carbonmint/pkg/platform/circuit"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultTrialInterval = 15 * time.Second
	maxBodyBytes         = 1 << 20
)

// Project is the registry's view of a carbon project.
type Project struct {
	GSID             string `json:"gsId"`
	AvailableForSale int64  `json:"availableForSale"`
	Timestamp        string `json:"timestamp"`
}

// Client looks projects up by id.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	breaker       *circuit.Breaker
	trialInterval time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time

	mu        sync.Mutex
	lastTrial time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		if b != nil {
			cl.breaker = b
		}
	}
}

// WithTrialInterval sets how often a call is let through while the breaker
// is open.
func WithTrialInterval(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.trialInterval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: defaultTimeout},
		breaker:       circuit.New("registry", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
		trialInterval: defaultTrialInterval,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches GET {base}/projects/{projectID}.
func (c *Client) Lookup(ctx context.Context, projectID string) (*Project, error) {
	if !c.allow() {
		c.observe("circuit_open", 0)
		return nil, NewError(ErrorOutage, projectID, "registry unavailable", ErrCircuitOpen)
	}

	start := c.now()
	project, err := c.lookup(ctx, projectID)
	elapsed := c.now().Sub(start)

	if IsRetryable(err) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "registry circuit opened", "breaker", c.breaker.Name(), "error", err)
		}
	} else {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "registry circuit closed", "breaker", c.breaker.Name())
		}
	}
	c.observe(string(outcome(err)), elapsed)
	return project, err
}

func (c *Client) lookup(ctx context.Context, projectID string) (*Project, error) {
	endpoint := c.baseURL + "/projects/" + url.PathEscape(projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewError(ErrorInternal, projectID, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(projectID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(projectID, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewError(ErrorNotFound, projectID, "project not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewError(ErrorRateLimited, projectID, "rate limited", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewError(ErrorAuthentication, projectID, fmt.Sprintf("registry rejected credentials (%d)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, NewError(ErrorTimeout, projectID, fmt.Sprintf("registry timed out (%d)", resp.StatusCode), nil)
	case resp.StatusCode >= 500:
		return nil, NewError(ErrorOutage, projectID, fmt.Sprintf("registry error (%d)", resp.StatusCode), nil)
	default:
		return nil, NewError(ErrorContractMismatch, projectID, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var project Project
	if err := json.Unmarshal(body, &project); err != nil {
		return nil, NewError(ErrorBadData, projectID, "malformed registry response", err)
	}
	project.GSID = strings.TrimSpace(project.GSID)
	if project.GSID == "" {
		return nil, NewError(ErrorBadData, projectID, "registry response is missing gsId", nil)
	}
	if strings.Contains(project.GSID, "|") || strings.Contains(project.Timestamp, "|") {
		return nil, NewError(ErrorBadData, projectID, "registry response contains a field separator", nil)
	}
	return &project, nil
}

// allow lets every call through while closed and one trial call per interval
// while open.
func (c *Client) allow() bool {
	if !c.breaker.IsOpen() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastTrial) < c.trialInterval {
		return false
	}
	c.lastTrial = now
	return true
}

func (c *Client) observe(result string, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveRegistryCall(result, elapsed)
	c.metrics.SetBreakerOpen(c.breaker.IsOpen())
}

func classifyTransport(projectID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTimeout, projectID, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(ErrorTimeout, projectID, "request timed out", err)
	}
	return NewError(ErrorOutage, projectID, "registry unreachable", err)
}

func outcome(err error) ErrorCategory {
	if err == nil {
		return "ok"
	}
	return CategoryOf(err)
}
