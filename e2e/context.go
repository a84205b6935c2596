package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultBaseURL    = "http://localhost:8080"
	defaultSigningKey = "dev-secret-key-change-in-production"
	defaultIssuer     = "carbonmint"
)

// defaultRoles mirror the server's development identities. Roles without a
// fixed server identity are plain addresses.
var defaultRoles = map[string]string{
	"admin":    "0x00000000000000000000000000000000000a0001",
	"verifier": "0x00000000000000000000000000000000000a0002",
	"issuer":   "0x00000000000000000000000000000000000000e1",
	"owner":    "0x00000000000000000000000000000000000000a1",
	"user":     "0x00000000000000000000000000000000000000b2",
	"stranger": "0x00000000000000000000000000000000000000c3",
}

// TestContext holds per-scenario state: the last response and any values
// saved by earlier steps.
type TestContext struct {
	baseURL    string
	signingKey []byte
	issuer     string
	client     *http.Client
	roles      map[string]string

	status int
	body   []byte
	saved  map[string]string
}

// NewTestContext reads the target server from the environment.
func NewTestContext() *TestContext {
	tc := &TestContext{
		baseURL:    strings.TrimRight(envOr("E2E_BASE_URL", defaultBaseURL), "/"),
		signingKey: []byte(envOr("JWT_SIGNING_KEY", defaultSigningKey)),
		issuer:     envOr("JWT_ISSUER", defaultIssuer),
		client:     &http.Client{Timeout: 10 * time.Second},
		roles:      map[string]string{},
	}
	for role, addr := range defaultRoles {
		tc.roles[role] = envOr("E2E_"+strings.ToUpper(role)+"_ADDRESS", addr)
	}
	tc.Reset()
	return tc
}

// Reset clears scenario state between scenarios.
func (tc *TestContext) Reset() {
	tc.status = 0
	tc.body = nil
	tc.saved = map[string]string{}
}

// Address resolves a role name to its address.
func (tc *TestContext) Address(role string) (string, error) {
	addr, ok := tc.roles[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return addr, nil
}

// Token mints a short-lived bearer token for the role.
func (tc *TestContext) Token(role string) (string, error) {
	addr, err := tc.Address(role)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   addr,
		Issuer:    tc.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.signingKey)
}

// Request sends a JSON request. An empty role sends it unauthenticated.
func (tc *TestContext) Request(ctx context.Context, method, path, role string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, err := tc.Token(role)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	return err
}

// Status returns the status code of the last response.
func (tc *TestContext) Status() int {
	return tc.status
}

// Body returns the raw body of the last response.
func (tc *TestContext) Body() string {
	return string(tc.body)
}

// ResponseField reads a top-level field from the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var result map[string]any
	if err := json.Unmarshal(tc.body, &result); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := result[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.body)
	}
	return v, nil
}

// Save stores a value for later {name} substitution.
func (tc *TestContext) Save(name, value string) {
	tc.saved[name] = value
}

// Saved returns a stored value.
func (tc *TestContext) Saved(name string) (string, bool) {
	v, ok := tc.saved[name]
	return v, ok
}

// Expand substitutes {name} placeholders with saved values and role
// addresses.
func (tc *TestContext) Expand(s string) string {
	for name, v := range tc.saved {
		s = strings.ReplaceAll(s, "{"+name+"}", v)
	}
	for role, addr := range tc.roles {
		s = strings.ReplaceAll(s, "{"+role+"}", addr)
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
