// Package sync runs the bidirectional synchronization passes between the
// test-management server and the configured external bug trackers.
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
)

// Service implements interfaces.SyncService. The sync configuration is
// passed immutably at construction; nothing about a run is stored in
// mutable service state beyond the running flag.
type Service struct {
	cfg      common.SyncConfig
	client   interfaces.TestManagementClient
	trackers interfaces.TrackerService
	storage  interfaces.StorageManager
	logger   arbor.ILogger

	mu      sync.Mutex
	running bool
}

// NewService creates the sync service.
func NewService(cfg common.SyncConfig, client interfaces.TestManagementClient, trackers interfaces.TrackerService, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		cfg:      cfg,
		client:   client,
		trackers: trackers,
		storage:  storage,
		logger:   logger,
	}
}

// IsRunning reports whether a pass is currently executing.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) setRunning(v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v && s.running {
		return false
	}
	s.running = v
	return true
}

// RunAll executes a full pass over every enabled tracker and its projects.
func (s *Service) RunAll(ctx context.Context, trigger string) (*models.SyncRun, error) {
	return s.run(ctx, trigger, func(ctx context.Context, run *models.SyncRun) error {
		for _, def := range s.trackers.ListTrackers() {
			if !def.Enabled {
				s.logger.Debug().Str("tracker", def.ID).Msg("Tracker disabled, skipping")
				continue
			}
			for _, projectID := range def.Projects {
				s.runOneProject(ctx, run, def.ID, projectID)
			}
		}
		return nil
	})
}

// RunProject executes a pass for a single project on a single tracker.
func (s *Service) RunProject(ctx context.Context, trackerID string, projectID int, trigger string) (*models.SyncRun, error) {
	if _, err := s.trackers.GetTracker(trackerID); err != nil {
		return nil, err
	}
	return s.run(ctx, trigger, func(ctx context.Context, run *models.SyncRun) error {
		s.runOneProject(ctx, run, trackerID, projectID)
		return nil
	})
}

// run wraps a pass body with session handling, run persistence, and the
// single-runner guard.
func (s *Service) run(ctx context.Context, trigger string, body func(context.Context, *models.SyncRun) error) (*models.SyncRun, error) {
	if !s.setRunning(true) {
		return nil, fmt.Errorf("a sync run is already in progress")
	}
	defer s.setRunning(false)

	run := &models.SyncRun{
		ID:        common.NewRunID(),
		Status:    models.SyncRunStatusRunning,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	if err := s.storage.SyncRunStorage().SaveRun(ctx, run); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist sync run start")
	}

	s.logger.Info().Str("run_id", run.ID).Str("trigger", trigger).Msg("Sync run started")

	err := s.client.Connect(ctx)
	if err == nil {
		defer func() {
			if derr := s.client.Disconnect(context.Background()); derr != nil {
				s.logger.Warn().Err(derr).Msg("Failed to close test-management session")
			}
		}()
		err = body(ctx, run)
	}

	completed := time.Now()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = models.SyncRunStatusFailed
		run.Error = err.Error()
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Sync run failed")
	} else {
		run.Status = models.SyncRunStatusCompleted
		totals := run.Totals()
		s.logger.Info().
			Str("run_id", run.ID).
			Int("synced", totals.Synced).
			Int("skipped", totals.Skipped).
			Int("failed", totals.Failed).
			Msg("Sync run completed")
	}

	if serr := s.storage.SyncRunStorage().SaveRun(ctx, run); serr != nil {
		s.logger.Warn().Err(serr).Msg("Failed to persist sync run result")
	}
	if s.cfg.MaxRunsKept > 0 {
		if _, perr := s.storage.SyncRunStorage().PruneRuns(ctx, s.cfg.MaxRunsKept); perr != nil {
			s.logger.Warn().Err(perr).Msg("Failed to prune run history")
		}
	}

	if err != nil {
		return run, err
	}
	return run, nil
}

// runOneProject executes one project pass and folds the outcome into the
// run. A pass failure is recorded on the project entry and does not abort
// the remaining projects.
func (s *Service) runOneProject(ctx context.Context, run *models.SyncRun, trackerID string, projectID int) {
	projectRun := models.ProjectRun{
		ProjectID: projectID,
		TrackerID: trackerID,
	}

	if err := s.syncProject(ctx, trackerID, projectID, &projectRun); err != nil {
		projectRun.Error = err.Error()
		s.logger.Error().
			Err(err).
			Str("tracker", trackerID).
			Int("project", projectID).
			Msg("Project sync failed")
	}

	if s.cfg.KeepResults > 0 && len(projectRun.Results) > s.cfg.KeepResults {
		projectRun.Results = projectRun.Results[:s.cfg.KeepResults]
	}

	run.Projects = append(run.Projects, projectRun)
}
