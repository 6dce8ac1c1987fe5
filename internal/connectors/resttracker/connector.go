// Package resttracker implements a connector for bug trackers exposing a
// plain JSON/REST API. The wire shape matches models.RemoteIssue directly;
// trackers with a different payload sit behind a thin proxy or get their own
// connector package.
package resttracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/nexo/internal/httpclient"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
)

// Connector implements interfaces.TrackerConnector over a generic REST API.
type Connector struct {
	id         string
	baseURL    string
	username   string
	apiKey     string
	httpClient *http.Client
}

// NewConnector creates a REST connector from a tracker definition.
func NewConnector(def *models.TrackerDefinition) (*Connector, error) {
	if def.Type != models.TrackerTypeREST {
		return nil, fmt.Errorf("invalid tracker type: %s", def.Type)
	}
	if def.REST == nil {
		return nil, fmt.Errorf("tracker %s has no rest configuration", def.ID)
	}

	return &Connector{
		id:         def.ID,
		baseURL:    def.REST.BaseURL,
		username:   def.REST.Username,
		apiKey:     def.REST.APIKey,
		httpClient: httpclient.NewDefaultHTTPClient(30 * time.Second),
	}, nil
}

// ID returns the tracker definition id
func (c *Connector) ID() string {
	return c.id
}

// Type returns the connector type
func (c *Connector) Type() models.TrackerType {
	return models.TrackerTypeREST
}

// TestConnection verifies the endpoint answers an authenticated ping.
func (c *Connector) TestConnection(ctx context.Context) error {
	if err := c.doRequest(ctx, "GET", "/ping", nil, nil); err != nil {
		return fmt.Errorf("rest tracker connection test failed: %w", err)
	}
	return nil
}

// GetNewIssues returns issues created after since.
func (c *Connector) GetNewIssues(ctx context.Context, since time.Time) ([]models.RemoteIssue, error) {
	return c.listIssues(ctx, "created_after", since)
}

// GetUpdatedIssues returns issues modified after since.
func (c *Connector) GetUpdatedIssues(ctx context.Context, since time.Time) ([]models.RemoteIssue, error) {
	return c.listIssues(ctx, "updated_after", since)
}

func (c *Connector) listIssues(ctx context.Context, filter string, since time.Time) ([]models.RemoteIssue, error) {
	path := fmt.Sprintf("/issues?%s=%s", filter, url.QueryEscape(since.UTC().Format(time.RFC3339)))

	var issues []models.RemoteIssue
	if err := c.doRequest(ctx, "GET", path, nil, &issues); err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	return issues, nil
}

// GetIssue fetches a single issue by key.
func (c *Connector) GetIssue(ctx context.Context, key string) (*models.RemoteIssue, error) {
	var issue models.RemoteIssue
	if err := c.doRequest(ctx, "GET", "/issues/"+url.PathEscape(key), nil, &issue); err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", key, err)
	}
	return &issue, nil
}

// CreateIssue creates an issue and returns the tracker-assigned key.
func (c *Connector) CreateIssue(ctx context.Context, issue *models.NewRemoteIssue) (string, error) {
	var created struct {
		Key string `json:"key"`
	}
	if err := c.doRequest(ctx, "POST", "/issues", issue, &created); err != nil {
		return "", fmt.Errorf("failed to create issue: %w", err)
	}
	if created.Key == "" {
		return "", fmt.Errorf("tracker returned no key for created issue")
	}
	return created.Key, nil
}

// UpdateIssue applies changed fields to an existing issue.
func (c *Connector) UpdateIssue(ctx context.Context, key string, issue *models.RemoteIssue) error {
	if err := c.doRequest(ctx, "PUT", "/issues/"+url.PathEscape(key), issue, nil); err != nil {
		return fmt.Errorf("failed to update issue %s: %w", key, err)
	}
	return nil
}

// AddComment appends a comment to an issue.
func (c *Connector) AddComment(ctx context.Context, key string, comment *models.RemoteComment) error {
	path := fmt.Sprintf("/issues/%s/comments", url.PathEscape(key))
	if err := c.doRequest(ctx, "POST", path, comment, nil); err != nil {
		return fmt.Errorf("failed to comment on issue %s: %w", key, err)
	}
	return nil
}

func (c *Connector) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
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
	if c.username != "" {
		req.SetBasicAuth(c.username, c.apiKey)
	} else if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tracker returned %d for %s %s: %s", resp.StatusCode, method, path, string(data))
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
var _ interfaces.TrackerConnector = (*Connector)(nil)
