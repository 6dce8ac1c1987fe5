package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	syncRun   interfaces.SyncRunStorage
	watermark interfaces.WatermarkStorage
	tracker   interfaces.TrackerStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		syncRun:   NewSyncRunStorage(db, logger),
		watermark: NewWatermarkStorage(db, logger),
		tracker:   NewTrackerStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// SyncRunStorage returns the SyncRun storage interface
func (m *Manager) SyncRunStorage() interfaces.SyncRunStorage {
	return m.syncRun
}

// WatermarkStorage returns the Watermark storage interface
func (m *Manager) WatermarkStorage() interfaces.WatermarkStorage {
	return m.watermark
}

// TrackerStorage returns the Tracker storage interface
func (m *Manager) TrackerStorage() interfaces.TrackerStorage {
	return m.tracker
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
