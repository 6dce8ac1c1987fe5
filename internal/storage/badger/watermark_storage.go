package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// WatermarkStorage implements the WatermarkStorage interface for Badger
type WatermarkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewWatermarkStorage creates a new WatermarkStorage instance
func NewWatermarkStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WatermarkStorage {
	return &WatermarkStorage{
		db:     db,
		logger: logger,
	}
}

func watermarkKey(trackerID string, projectID int) string {
	return fmt.Sprintf("%s/%d", trackerID, projectID)
}

// GetWatermark returns the last successful pass time for the pair, or the
// zero time when no pass has completed yet (first sync pulls everything).
func (s *WatermarkStorage) GetWatermark(ctx context.Context, trackerID string, projectID int) (time.Time, error) {
	var wm models.SyncWatermark
	if err := s.db.Store().Get(watermarkKey(trackerID, projectID), &wm); err != nil {
		if err == badgerhold.ErrNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get watermark: %w", err)
	}
	return wm.LastSync, nil
}

func (s *WatermarkStorage) SetWatermark(ctx context.Context, trackerID string, projectID int, t time.Time) error {
	wm := models.SyncWatermark{
		Key:       watermarkKey(trackerID, projectID),
		ProjectID: projectID,
		TrackerID: trackerID,
		LastSync:  t,
	}
	if err := s.db.Store().Upsert(wm.Key, &wm); err != nil {
		return fmt.Errorf("failed to set watermark: %w", err)
	}
	return nil
}
