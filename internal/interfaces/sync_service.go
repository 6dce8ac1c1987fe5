package interfaces

import (
	"context"

	"github.com/ternarybob/nexo/internal/models"
)

// SyncService runs synchronization passes.
type SyncService interface {
	// RunAll executes a full pass over every enabled tracker and its
	// projects. Trigger is recorded on the run ("schedule" or "manual").
	RunAll(ctx context.Context, trigger string) (*models.SyncRun, error)

	// RunProject executes a pass for a single project on a single tracker.
	RunProject(ctx context.Context, trackerID string, projectID int, trigger string) (*models.SyncRun, error)

	// IsRunning reports whether a pass is currently executing.
	IsRunning() bool
}

// SchedulerService triggers the sync job on a cron schedule.
type SchedulerService interface {
	Start() error
	Stop() error
	// TriggerNow runs the sync job immediately, outside the schedule.
	TriggerNow() error
	// Status returns last/next run information for the API.
	Status() SchedulerStatus
}

// SchedulerStatus describes the scheduler for the status endpoint.
type SchedulerStatus struct {
	Running   bool   `json:"running"`
	Schedule  string `json:"schedule"`
	LastRun   string `json:"last_run,omitempty"`
	NextRun   string `json:"next_run,omitempty"`
	LastError string `json:"last_error,omitempty"`
}
