package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/nexo/internal/models"
)

// SyncRunListOptions controls run history queries.
type SyncRunListOptions struct {
	Status models.SyncRunStatus
	Limit  int
	Offset int
}

// SyncRunStorage persists sync run history.
type SyncRunStorage interface {
	SaveRun(ctx context.Context, run *models.SyncRun) error
	GetRun(ctx context.Context, id string) (*models.SyncRun, error)
	ListRuns(ctx context.Context, opts *SyncRunListOptions) ([]*models.SyncRun, error)
	// PruneRuns deletes the oldest runs beyond keep.
	PruneRuns(ctx context.Context, keep int) (int, error)
}

// WatermarkStorage persists per-project, per-tracker sync watermarks.
type WatermarkStorage interface {
	GetWatermark(ctx context.Context, trackerID string, projectID int) (time.Time, error)
	SetWatermark(ctx context.Context, trackerID string, projectID int, t time.Time) error
}

// TrackerStorage persists tracker definitions loaded from the definitions
// directory so the API can serve them.
type TrackerStorage interface {
	SaveTracker(ctx context.Context, def *models.TrackerDefinition) error
	GetTracker(ctx context.Context, id string) (*models.TrackerDefinition, error)
	ListTrackers(ctx context.Context) ([]*models.TrackerDefinition, error)
	DeleteTracker(ctx context.Context, id string) error
}

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	SyncRunStorage() SyncRunStorage
	WatermarkStorage() WatermarkStorage
	TrackerStorage() TrackerStorage
	Close() error
}
