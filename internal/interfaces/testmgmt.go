package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/nexo/internal/models"
)

// TestManagementClient is the REST client for the test-management server.
// All calls require a session established with Connect.
type TestManagementClient interface {
	// Session
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Projects
	ListProjects(ctx context.Context) ([]models.Project, error)

	// Incidents
	GetNewIncidents(ctx context.Context, projectID int, since time.Time, start, pageSize int) ([]models.Incident, error)
	GetUpdatedIncidents(ctx context.Context, projectID int, since time.Time, start, pageSize int) ([]models.Incident, error)
	GetIncident(ctx context.Context, projectID, incidentID int) (*models.Incident, error)
	CreateIncident(ctx context.Context, incident *models.Incident) (*models.Incident, error)
	UpdateIncident(ctx context.Context, incident *models.Incident) error

	// Comments and attachments
	GetIncidentComments(ctx context.Context, projectID, incidentID int) ([]models.IncidentComment, error)
	AddIncidentComments(ctx context.Context, projectID int, comments []models.IncidentComment) error
	AddIncidentAttachment(ctx context.Context, projectID int, attachment *models.IncidentAttachment) error

	// Releases
	ListReleases(ctx context.Context, projectID int) ([]models.Release, error)
	CreateRelease(ctx context.Context, release *models.Release) (*models.Release, error)

	// Users
	ListUsers(ctx context.Context) ([]models.User, error)

	// Custom properties
	ListCustomProperties(ctx context.Context, projectID int) ([]models.CustomProperty, error)

	// Data mappings
	GetMappings(ctx context.Context, projectID int, table models.MappingTable) ([]models.DataMapping, error)
	GetUserMappings(ctx context.Context) ([]models.DataMapping, error)
	AddMappings(ctx context.Context, projectID int, table models.MappingTable, add []models.DataMapping) error
	RemoveMappings(ctx context.Context, projectID int, table models.MappingTable, remove []models.DataMapping) error
}
