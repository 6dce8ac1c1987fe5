package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/handlers"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/services/scheduler"
	"github.com/ternarybob/nexo/internal/services/sync"
	"github.com/ternarybob/nexo/internal/services/testmgmt"
	"github.com/ternarybob/nexo/internal/services/trackers"
	"github.com/ternarybob/nexo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Test-management server client
	Client interfaces.TestManagementClient

	// Tracker definitions and connectors
	TrackerService interfaces.TrackerService

	// Sync pass execution
	SyncService      interfaces.SyncService
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	SyncHandler    *handlers.SyncHandler
	TrackerHandler *handlers.TrackerHandler
	MappingHandler *handlers.MappingHandler
	ProjectHandler *handlers.ProjectHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	client, err := testmgmt.NewClient(cfg.TestManagement, logger)
	if err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to create test-management client: %w", err)
	}
	app.Client = client

	trackerService := trackers.NewService(storageManager.TrackerStorage(), logger)
	if err := trackerService.LoadFromDir(ctx, cfg.Trackers.Dir); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to load tracker definitions: %w", err)
	}
	app.TrackerService = trackerService

	app.SyncService = sync.NewService(cfg.Sync, client, trackerService, storageManager, logger)
	app.SchedulerService = scheduler.NewService(cfg.Sync, app.SyncService, logger)

	app.APIHandler = handlers.NewAPIHandler()
	app.SyncHandler = handlers.NewSyncHandler(app.SyncService, app.SchedulerService, storageManager.SyncRunStorage())
	app.TrackerHandler = handlers.NewTrackerHandler(trackerService)
	app.MappingHandler = handlers.NewMappingHandler(client)
	app.ProjectHandler = handlers.NewProjectHandler(client)

	logger.Info().
		Int("trackers", len(trackerService.ListTrackers())).
		Str("trackers_dir", cfg.Trackers.Dir).
		Msg("Application initialized")

	return app, nil
}

// Close releases application resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	return nil
}
