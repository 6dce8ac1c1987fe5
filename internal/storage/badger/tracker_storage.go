package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// TrackerStorage implements the TrackerStorage interface for Badger
type TrackerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTrackerStorage creates a new TrackerStorage instance
func NewTrackerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TrackerStorage {
	return &TrackerStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TrackerStorage) SaveTracker(ctx context.Context, def *models.TrackerDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("tracker ID is required")
	}
	if err := s.db.Store().Upsert(def.ID, def); err != nil {
		return fmt.Errorf("failed to save tracker: %w", err)
	}
	return nil
}

func (s *TrackerStorage) GetTracker(ctx context.Context, id string) (*models.TrackerDefinition, error) {
	var def models.TrackerDefinition
	if err := s.db.Store().Get(id, &def); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("tracker not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get tracker: %w", err)
	}
	return &def, nil
}

func (s *TrackerStorage) ListTrackers(ctx context.Context) ([]*models.TrackerDefinition, error) {
	var defs []models.TrackerDefinition
	if err := s.db.Store().Find(&defs, badgerhold.Where("ID").Ne("").SortBy("ID")); err != nil {
		return nil, fmt.Errorf("failed to list trackers: %w", err)
	}

	result := make([]*models.TrackerDefinition, len(defs))
	for i := range defs {
		result[i] = &defs[i]
	}
	return result, nil
}

func (s *TrackerStorage) DeleteTracker(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.TrackerDefinition{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete tracker: %w", err)
	}
	return nil
}
