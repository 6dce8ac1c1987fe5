// Package scheduler triggers sync runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/interfaces"
)

// Service implements interfaces.SchedulerService
type Service struct {
	cfg         common.SyncConfig
	syncService interfaces.SyncService
	cron        *cron.Cron
	logger      arbor.ILogger

	mu        sync.Mutex
	running   bool
	entryID   cron.EntryID
	lastRun   *time.Time
	lastError string
}

// NewService creates a new scheduler service
func NewService(cfg common.SyncConfig, syncService interfaces.SyncService, logger arbor.ILogger) *Service {
	return &Service{
		cfg:         cfg,
		syncService: syncService,
		cron:        cron.New(),
		logger:      logger,
	}
}

// Start registers the sync job and starts the cron loop.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if !s.cfg.Enabled {
		s.logger.Info().Msg("Sync schedule disabled, scheduler not started")
		return nil
	}

	schedule := s.cfg.Schedule
	if schedule == "" {
		schedule = "*/15 * * * *"
	}

	entryID, err := s.cron.AddFunc(schedule, s.runScheduledSync)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", schedule).Msg("Scheduler started")

	if s.cfg.AutoStart {
		common.SafeGo(s.logger, "autoStartSync", s.runScheduledSync)
	}

	return nil
}

// Stop halts the scheduler, waiting for an in-flight job to finish.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// TriggerNow runs the sync job immediately, outside the schedule.
func (s *Service) TriggerNow() error {
	if s.syncService.IsRunning() {
		return fmt.Errorf("a sync run is already in progress")
	}
	common.SafeGo(s.logger, "manualSync", func() {
		s.executeSync("manual")
	})
	return nil
}

// Status returns last/next run information for the API.
func (s *Service) Status() interfaces.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := interfaces.SchedulerStatus{
		Running:   s.running,
		Schedule:  s.cfg.Schedule,
		LastError: s.lastError,
	}
	if s.lastRun != nil {
		status.LastRun = s.lastRun.Format(time.RFC3339)
	}
	if s.running {
		entry := s.cron.Entry(s.entryID)
		if !entry.Next.IsZero() {
			status.NextRun = entry.Next.Format(time.RFC3339)
		}
	}
	return status
}

func (s *Service) runScheduledSync() {
	if s.syncService.IsRunning() {
		s.logger.Warn().Msg("Previous sync run still in progress, skipping scheduled run")
		return
	}
	s.executeSync("schedule")
}

func (s *Service) executeSync(trigger string) {
	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.mu.Unlock()

	_, err := s.syncService.RunAll(context.Background(), trigger)

	s.mu.Lock()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()
}

// Ensure interface compliance
var _ interfaces.SchedulerService = (*Service)(nil)
