package testmgmt

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ternarybob/nexo/internal/models"
)

// ListProjects returns all active projects.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.doRequest(ctx, "GET", "/projects", nil, &projects); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetNewIncidents returns incidents created after since, one page at a time.
func (c *Client) GetNewIncidents(ctx context.Context, projectID int, since time.Time, start, pageSize int) ([]models.Incident, error) {
	return c.getIncidents(ctx, projectID, "created_after", since, start, pageSize)
}

// GetUpdatedIncidents returns incidents modified after since, one page at a
// time. Incidents created after since are excluded server-side.
func (c *Client) GetUpdatedIncidents(ctx context.Context, projectID int, since time.Time, start, pageSize int) ([]models.Incident, error) {
	return c.getIncidents(ctx, projectID, "updated_after", since, start, pageSize)
}

func (c *Client) getIncidents(ctx context.Context, projectID int, filter string, since time.Time, start, pageSize int) ([]models.Incident, error) {
	path := fmt.Sprintf("/projects/%d/incidents?%s=%s&start=%d&page_size=%d",
		projectID, filter, url.QueryEscape(since.UTC().Format(time.RFC3339)), start, pageSize)

	var incidents []models.Incident
	if err := c.doRequest(ctx, "GET", path, nil, &incidents); err != nil {
		return nil, fmt.Errorf("failed to get incidents for project %d: %w", projectID, err)
	}
	return incidents, nil
}

// GetIncident fetches one incident by id.
func (c *Client) GetIncident(ctx context.Context, projectID, incidentID int) (*models.Incident, error) {
	var incident models.Incident
	path := fmt.Sprintf("/projects/%d/incidents/%d", projectID, incidentID)
	if err := c.doRequest(ctx, "GET", path, nil, &incident); err != nil {
		return nil, fmt.Errorf("failed to get incident %d: %w", incidentID, err)
	}
	return &incident, nil
}

// CreateIncident creates an incident and returns it with the server-assigned
// id and concurrency date.
func (c *Client) CreateIncident(ctx context.Context, incident *models.Incident) (*models.Incident, error) {
	var created models.Incident
	path := fmt.Sprintf("/projects/%d/incidents", incident.ProjectID)
	if err := c.doRequest(ctx, "POST", path, incident, &created); err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}
	return &created, nil
}

// UpdateIncident applies changes to an existing incident.
func (c *Client) UpdateIncident(ctx context.Context, incident *models.Incident) error {
	path := fmt.Sprintf("/projects/%d/incidents/%d", incident.ProjectID, incident.ID)
	if err := c.doRequest(ctx, "PUT", path, incident, nil); err != nil {
		return fmt.Errorf("failed to update incident %d: %w", incident.ID, err)
	}
	return nil
}

// GetIncidentComments returns the comments on one incident.
func (c *Client) GetIncidentComments(ctx context.Context, projectID, incidentID int) ([]models.IncidentComment, error) {
	var comments []models.IncidentComment
	path := fmt.Sprintf("/projects/%d/incidents/%d/comments", projectID, incidentID)
	if err := c.doRequest(ctx, "GET", path, nil, &comments); err != nil {
		return nil, fmt.Errorf("failed to get comments for incident %d: %w", incidentID, err)
	}
	return comments, nil
}

// AddIncidentComments appends comments to their incidents in one batch.
func (c *Client) AddIncidentComments(ctx context.Context, projectID int, comments []models.IncidentComment) error {
	if len(comments) == 0 {
		return nil
	}
	path := fmt.Sprintf("/projects/%d/incidents/comments", projectID)
	if err := c.doRequest(ctx, "POST", path, comments, nil); err != nil {
		return fmt.Errorf("failed to add incident comments: %w", err)
	}
	return nil
}

// AddIncidentAttachment records an attachment against an incident. Only
// metadata and the source URL are mirrored; content stays in the tracker.
func (c *Client) AddIncidentAttachment(ctx context.Context, projectID int, attachment *models.IncidentAttachment) error {
	path := fmt.Sprintf("/projects/%d/incidents/%d/attachments", projectID, attachment.IncidentID)
	if err := c.doRequest(ctx, "POST", path, attachment, nil); err != nil {
		return fmt.Errorf("failed to add attachment to incident %d: %w", attachment.IncidentID, err)
	}
	return nil
}
