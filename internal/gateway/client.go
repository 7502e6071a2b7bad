package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds the provider credentials and endpoints. It is built once at
// startup and shared read-only by every orchestrator call.
type Config struct {
	BaseURL     string
	ClientID    string
	Secret      string
	Environment string // "sandbox" or "live"
	WebhookID   string
	SiteURL     string
	SiteName    string
	Timeout     time.Duration
}

// GatewayError is the typed failure every adapter call surfaces instead of
// provider-specific response shapes.
type GatewayError struct {
	Op         string
	StatusCode int
	Name       string
	Reason     string
}

func (e *GatewayError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("gateway %s: %s: %s", e.Op, e.Name, e.Reason)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Reason)
}

type providerError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type Client struct {
	cfg     Config
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpc: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "payment-gateway",
			MaxRequests: 3,
			Timeout:     30 * time.Second,
		}),
	}
}

// token returns a cached OAuth access token, fetching a fresh one when the
// cached one is about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", &GatewayError{Op: "oauth", Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newGatewayError("oauth", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// do performs one authenticated round trip behind the circuit breaker and
// returns the raw response body.
func (c *Client) do(ctx context.Context, op, method, path string, in any) ([]byte, error) {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		tok, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build %s request: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+tok)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, &GatewayError{Op: op, Reason: err.Error()}
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", op, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, newGatewayError(op, resp.StatusCode, b)
		}
		return b, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &GatewayError{Op: op, Reason: err.Error()}
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	body, err := c.do(ctx, op, method, path, in)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse %s response: %w", op, err)
		}
	}
	return nil
}

func newGatewayError(op string, status int, body []byte) *GatewayError {
	var pe providerError
	_ = json.Unmarshal(body, &pe)
	reason := pe.Message
	if reason == "" {
		reason = strings.TrimSpace(string(body))
	}
	if reason == "" {
		reason = http.StatusText(status)
	}
	return &GatewayError{Op: op, StatusCode: status, Name: pe.Name, Reason: reason}
}
