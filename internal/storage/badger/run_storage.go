package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SyncRunStorage implements the SyncRunStorage interface for Badger
type SyncRunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSyncRunStorage creates a new SyncRunStorage instance
func NewSyncRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SyncRunStorage {
	return &SyncRunStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SyncRunStorage) SaveRun(ctx context.Context, run *models.SyncRun) error {
	if run.ID == "" {
		return fmt.Errorf("sync run ID is required")
	}

	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save sync run: %w", err)
	}
	return nil
}

func (s *SyncRunStorage) GetRun(ctx context.Context, id string) (*models.SyncRun, error) {
	var run models.SyncRun
	if err := s.db.Store().Get(id, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("sync run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}
	return &run, nil
}

func (s *SyncRunStorage) ListRuns(ctx context.Context, opts *interfaces.SyncRunListOptions) ([]*models.SyncRun, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("StartedAt").Reverse()

	var runs []models.SyncRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}

	result := make([]*models.SyncRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *SyncRunStorage) PruneRuns(ctx context.Context, keep int) (int, error) {
	var runs []models.SyncRun
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if err := s.db.Store().Find(&runs, query); err != nil {
		return 0, fmt.Errorf("failed to list sync runs for pruning: %w", err)
	}

	if len(runs) <= keep {
		return 0, nil
	}

	pruned := 0
	for _, run := range runs[keep:] {
		if err := s.db.Store().Delete(run.ID, &models.SyncRun{}); err != nil {
			s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to prune sync run")
			continue
		}
		pruned++
	}
	return pruned, nil
}
