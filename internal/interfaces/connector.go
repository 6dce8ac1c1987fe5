package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/nexo/internal/models"
)

// TrackerConnector talks to one external bug tracker. Connectors map their
// native wire format into models.RemoteIssue so the sync pass stays
// tracker-agnostic.
type TrackerConnector interface {
	// ID returns the tracker definition id this connector serves.
	ID() string

	// Type returns the connector type
	Type() models.TrackerType

	// TestConnection verifies credentials against the remote system.
	TestConnection(ctx context.Context) error

	// GetNewIssues returns issues created after since.
	GetNewIssues(ctx context.Context, since time.Time) ([]models.RemoteIssue, error)

	// GetUpdatedIssues returns issues modified after since, excluding ones
	// created after since (those come from GetNewIssues).
	GetUpdatedIssues(ctx context.Context, since time.Time) ([]models.RemoteIssue, error)

	// GetIssue fetches a single issue by its external key.
	GetIssue(ctx context.Context, key string) (*models.RemoteIssue, error)

	// CreateIssue creates an issue and returns its assigned external key.
	CreateIssue(ctx context.Context, issue *models.NewRemoteIssue) (string, error)

	// UpdateIssue applies changed fields to an existing issue.
	UpdateIssue(ctx context.Context, key string, issue *models.RemoteIssue) error

	// AddComment appends a comment to an existing issue.
	AddComment(ctx context.Context, key string, comment *models.RemoteComment) error
}

// TrackerService resolves tracker definitions into live connectors.
type TrackerService interface {
	// ListTrackers returns all loaded tracker definitions.
	ListTrackers() []*models.TrackerDefinition

	// GetTracker returns one definition by id.
	GetTracker(id string) (*models.TrackerDefinition, error)

	// Connector returns a connector for the given tracker id.
	Connector(id string) (TrackerConnector, error)
}
