package badger

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func TestSyncRunPersistence(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewSyncRunStorage(db, logger)

	ctx := context.Background()

	run := &models.SyncRun{
		ID:        "run_test_1",
		Status:    models.SyncRunStatusRunning,
		Trigger:   "manual",
		StartedAt: time.Now(),
	}
	if err := storage.SaveRun(ctx, run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	// Complete the run and verify the update round-trips
	now := time.Now()
	run.Status = models.SyncRunStatusCompleted
	run.CompletedAt = &now
	run.Projects = []models.ProjectRun{
		{ProjectID: 1, TrackerID: "gh-main", Summary: models.RunSummary{Synced: 3, Skipped: 1}},
	}
	if err := storage.SaveRun(ctx, run); err != nil {
		t.Fatalf("Failed to update run: %v", err)
	}

	loaded, err := storage.GetRun(ctx, "run_test_1")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if loaded.Status != models.SyncRunStatusCompleted {
		t.Errorf("Expected status completed, got %s", loaded.Status)
	}
	if totals := loaded.Totals(); totals.Synced != 3 || totals.Skipped != 1 {
		t.Errorf("Unexpected totals: %+v", totals)
	}

	if _, err := storage.GetRun(ctx, "missing"); err == nil {
		t.Error("Expected error for missing run")
	}
}

func TestSyncRunSaveRequiresID(t *testing.T) {
	db := newTestDB(t)
	storage := NewSyncRunStorage(db, arbor.NewLogger())

	if err := storage.SaveRun(context.Background(), &models.SyncRun{}); err == nil {
		t.Error("Expected error saving run without ID")
	}
}

func TestSyncRunListAndPrune(t *testing.T) {
	db := newTestDB(t)
	storage := NewSyncRunStorage(db, arbor.NewLogger())

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	statuses := []models.SyncRunStatus{
		models.SyncRunStatusCompleted,
		models.SyncRunStatusCompleted,
		models.SyncRunStatusFailed,
		models.SyncRunStatusCompleted,
		models.SyncRunStatusCompleted,
	}
	ids := []string{"run_a", "run_b", "run_c", "run_d", "run_e"}
	for i, id := range ids {
		run := &models.SyncRun{
			ID:        id,
			Status:    statuses[i],
			Trigger:   "schedule",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := storage.SaveRun(ctx, run); err != nil {
			t.Fatalf("Failed to save run %s: %v", id, err)
		}
	}

	// Newest first
	runs, err := storage.ListRuns(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 5 {
		t.Fatalf("Expected 5 runs, got %d", len(runs))
	}
	if runs[0].ID != "run_e" {
		t.Errorf("Expected newest run first, got %s", runs[0].ID)
	}

	// Status filter
	failed, err := storage.ListRuns(ctx, &interfaces.SyncRunListOptions{Status: models.SyncRunStatusFailed})
	if err != nil {
		t.Fatalf("Failed to list failed runs: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "run_c" {
		t.Errorf("Expected only run_c, got %v", failed)
	}

	// Prune keeps the newest
	pruned, err := storage.PruneRuns(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to prune runs: %v", err)
	}
	if pruned != 3 {
		t.Errorf("Expected 3 pruned, got %d", pruned)
	}

	remaining, err := storage.ListRuns(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to list runs after prune: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("Expected 2 runs after prune, got %d", len(remaining))
	}
	if remaining[0].ID != "run_e" || remaining[1].ID != "run_d" {
		t.Errorf("Prune kept wrong runs: %s, %s", remaining[0].ID, remaining[1].ID)
	}
}

func TestWatermarkRoundTrip(t *testing.T) {
	db := newTestDB(t)
	storage := NewWatermarkStorage(db, arbor.NewLogger())

	ctx := context.Background()

	// Missing watermark is the zero time, not an error
	wm, err := storage.GetWatermark(ctx, "gh-main", 1)
	if err != nil {
		t.Fatalf("Failed to get missing watermark: %v", err)
	}
	if !wm.IsZero() {
		t.Errorf("Expected zero time for missing watermark, got %v", wm)
	}

	ts := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	if err := storage.SetWatermark(ctx, "gh-main", 1, ts); err != nil {
		t.Fatalf("Failed to set watermark: %v", err)
	}

	wm, err = storage.GetWatermark(ctx, "gh-main", 1)
	if err != nil {
		t.Fatalf("Failed to get watermark: %v", err)
	}
	if !wm.Equal(ts) {
		t.Errorf("Expected %v, got %v", ts, wm)
	}

	// Other project pairs are unaffected
	other, err := storage.GetWatermark(ctx, "gh-main", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !other.IsZero() {
		t.Errorf("Expected zero time for other project, got %v", other)
	}
}
