package testmgmt

import (
	"context"
	"fmt"

	"github.com/ternarybob/nexo/internal/models"
)

// ListReleases returns all releases for a project.
func (c *Client) ListReleases(ctx context.Context, projectID int) ([]models.Release, error) {
	var releases []models.Release
	path := fmt.Sprintf("/projects/%d/releases", projectID)
	if err := c.doRequest(ctx, "GET", path, nil, &releases); err != nil {
		return nil, fmt.Errorf("failed to list releases for project %d: %w", projectID, err)
	}
	return releases, nil
}

// CreateRelease creates a release and returns it with the assigned id. Used
// to auto-provision a release when a tracker version has no mapping yet.
func (c *Client) CreateRelease(ctx context.Context, release *models.Release) (*models.Release, error) {
	var created models.Release
	path := fmt.Sprintf("/projects/%d/releases", release.ProjectID)
	if err := c.doRequest(ctx, "POST", path, release, &created); err != nil {
		return nil, fmt.Errorf("failed to create release %q: %w", release.Name, err)
	}
	return &created, nil
}

// ListUsers returns all user accounts. Users are global, not per project.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.doRequest(ctx, "GET", "/users", nil, &users); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListCustomProperties returns the custom incident property definitions for
// a project, including list values.
func (c *Client) ListCustomProperties(ctx context.Context, projectID int) ([]models.CustomProperty, error) {
	var props []models.CustomProperty
	path := fmt.Sprintf("/projects/%d/custom-properties", projectID)
	if err := c.doRequest(ctx, "GET", path, nil, &props); err != nil {
		return nil, fmt.Errorf("failed to list custom properties for project %d: %w", projectID, err)
	}
	return props, nil
}
