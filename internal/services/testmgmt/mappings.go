package testmgmt

import (
	"context"
	"fmt"

	"github.com/ternarybob/nexo/internal/models"
)

// GetMappings fetches one project-scoped mapping table. The server returns
// records in storage order; that order is preserved because lookups are
// first-match-wins.
func (c *Client) GetMappings(ctx context.Context, projectID int, table models.MappingTable) ([]models.DataMapping, error) {
	var mappings []models.DataMapping
	path := fmt.Sprintf("/projects/%d/data-mappings/%s", projectID, table)
	if err := c.doRequest(ctx, "GET", path, nil, &mappings); err != nil {
		return nil, fmt.Errorf("failed to get %s mappings for project %d: %w", table, projectID, err)
	}
	return mappings, nil
}

// GetUserMappings fetches the global user mapping table. User mappings carry
// no project scope.
func (c *Client) GetUserMappings(ctx context.Context) ([]models.DataMapping, error) {
	var mappings []models.DataMapping
	if err := c.doRequest(ctx, "GET", "/data-mappings/users", nil, &mappings); err != nil {
		return nil, fmt.Errorf("failed to get user mappings: %w", err)
	}
	return mappings, nil
}

// AddMappings persists a batch of new mapping records.
func (c *Client) AddMappings(ctx context.Context, projectID int, table models.MappingTable, add []models.DataMapping) error {
	if len(add) == 0 {
		return nil
	}
	path := fmt.Sprintf("/projects/%d/data-mappings/%s", projectID, table)
	if err := c.doRequest(ctx, "POST", path, add, nil); err != nil {
		return fmt.Errorf("failed to add %s mappings for project %d: %w", table, projectID, err)
	}
	return nil
}

// RemoveMappings deletes a batch of obsolete mapping records.
func (c *Client) RemoveMappings(ctx context.Context, projectID int, table models.MappingTable, remove []models.DataMapping) error {
	if len(remove) == 0 {
		return nil
	}
	path := fmt.Sprintf("/projects/%d/data-mappings/%s/remove", projectID, table)
	if err := c.doRequest(ctx, "POST", path, remove, nil); err != nil {
		return fmt.Errorf("failed to remove %s mappings for project %d: %w", table, projectID, err)
	}
	return nil
}
