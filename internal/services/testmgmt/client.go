// Package testmgmt implements the REST client for the test-management
// server: session management, projects, incidents, releases, users, custom
// properties, and the server-side data-mapping tables.
package testmgmt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/httpclient"
	"github.com/ternarybob/nexo/internal/interfaces"
)

// Client implements interfaces.TestManagementClient over the server's
// JSON/REST API.
type Client struct {
	baseURL    string
	username   string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger

	sessionToken string
}

// NewClient creates a client from the test-management configuration.
func NewClient(cfg common.TestManagementConfig, logger arbor.ILogger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("test management base URL is required")
	}

	timeout := 30 * time.Second
	if cfg.RequestTimeout != "" {
		parsed, err := time.ParseDuration(cfg.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid request_timeout: %w", err)
		}
		timeout = parsed
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		apiKey:     cfg.APIKey,
		httpClient: httpclient.NewRateLimitedHTTPClient(timeout, cfg.RatePerSecond),
		logger:     logger,
	}, nil
}

// Connect opens an authenticated session. The returned token accompanies
// every subsequent request.
func (c *Client) Connect(ctx context.Context) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doRequest(ctx, "POST", "/session", nil, &resp); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	c.sessionToken = resp.Token

	c.logger.Debug().Str("base_url", c.baseURL).Msg("Test-management session opened")
	return nil
}

// Disconnect closes the session. Errors are reported but the token is
// dropped either way.
func (c *Client) Disconnect(ctx context.Context) error {
	err := c.doRequest(ctx, "DELETE", "/session", nil, nil)
	c.sessionToken = ""
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// doRequest performs a JSON request against the API, decoding the response
// into out when out is non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Username", c.username)
	req.Header.Set("X-Api-Key", c.apiKey)
	if c.sessionToken != "" {
		req.Header.Set("X-Session-Token", c.sessionToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d for %s %s: %s", resp.StatusCode, method, path, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ensure interface compliance
var _ interfaces.TestManagementClient = (*Client)(nil)
