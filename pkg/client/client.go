// Package client provides a Go client for the custodian API.
//
// It abstracts HTTP communication with the service and provides one method
// per controller operation: status and eligibility polling, mint
// execution, configuration updates, emergency stop, rig hot-swap, and
// custody withdrawal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rigwatch/custodian/internal/models"
)

// Client is a custodian API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets a custom user agent.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// New creates a new custodian API client.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   strings.TrimSuffix(u.String(), "/"),
		userAgent: "custodian-client/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx response decoded from the service. Kind mirrors
// the server's error taxonomy: unauthorized, validation, guard_failure,
// rig_rejection, internal.
type APIError struct {
	Kind    string
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
}

// Temporary reports whether retrying later can help. Authorization and
// validation failures indicate misconfiguration and are permanent.
func (e *APIError) Temporary() bool {
	return e.Kind != "unauthorized" && e.Kind != "validation" && e.Kind != "bad_request"
}

// HealthCheck checks if the service is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Status fetches the controller's status aggregate.
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Eligibility fetches the current mint eligibility decision.
func (c *Client) Eligibility(ctx context.Context) (*models.EligibilityResponse, error) {
	var out models.EligibilityResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/eligibility", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events fetches recent controller events, newest first.
func (c *Client) Events(ctx context.Context) (*models.EventsResponse, error) {
	var out models.EventsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/events", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Mine triggers one mint execution as the given manager caller.
func (c *Client) Mine(ctx context.Context, req models.MineRequest) (*models.MineResponse, error) {
	var out models.MineResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/mine", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateConfig replaces the mining configuration record.
func (c *Client) UpdateConfig(ctx context.Context, req models.UpdateConfigRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/config", req, nil)
}

// EmergencyStop disables auto mining.
func (c *Client) EmergencyStop(ctx context.Context, caller string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/emergency-stop", models.CallerRequest{Caller: caller}, nil)
}

// UpdateRig hot-swaps the target rig.
func (c *Client) UpdateRig(ctx context.Context, req models.UpdateRigRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/rig", req, nil)
}

// Withdraw moves custody funds out of the controller.
func (c *Client) Withdraw(ctx context.Context, req models.WithdrawRequest) (*models.WithdrawResponse, error) {
	var out models.WithdrawResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/withdraw", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("reading error response: %w", err)
	}
	var apiErr models.ErrorResponse
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Error == "" {
		return &APIError{
			Kind:    "internal",
			Message: strings.TrimSpace(string(data)),
			Code:    resp.StatusCode,
		}
	}
	return &APIError{
		Kind:    apiErr.Error,
		Message: apiErr.Message,
		Code:    apiErr.Code,
	}
}
