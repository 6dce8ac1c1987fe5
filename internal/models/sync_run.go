package models

import "time"

// SyncRunStatus represents the lifecycle state of a sync run.
type SyncRunStatus string

const (
	SyncRunStatusRunning   SyncRunStatus = "running"
	SyncRunStatusCompleted SyncRunStatus = "completed"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

// SyncPhase identifies one of the four phases of a project sync pass.
// Mapping journal checkpoints happen at the end of each phase.
type SyncPhase string

const (
	PhaseImportNew     SyncPhase = "import-new"
	PhaseExportNew     SyncPhase = "export-new"
	PhaseImportUpdates SyncPhase = "import-updates"
	PhaseExportUpdates SyncPhase = "export-updates"
)

// RecordOutcome classifies what happened to a single record during a phase.
type RecordOutcome string

const (
	OutcomeSynced  RecordOutcome = "synced"
	OutcomeSkipped RecordOutcome = "skipped"
	OutcomeFailed  RecordOutcome = "failed"
)

// RecordResult is the per-record outcome of sync processing. Skips are the
// expected path for records that cannot be translated (a required field with
// no mapping); failures are transport or server errors on that one record.
// Neither aborts the phase.
type RecordResult struct {
	Phase       SyncPhase     `json:"phase"`
	Outcome     RecordOutcome `json:"outcome"`
	InternalID  int           `json:"internal_id,omitempty"`
	ExternalKey string        `json:"external_key,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// RunSummary aggregates RecordResults for one project pass.
type RunSummary struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Add folds a record result into the summary.
func (s *RunSummary) Add(r RecordResult) {
	switch r.Outcome {
	case OutcomeSynced:
		s.Synced++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// ProjectRun is the outcome of one project's pass within a sync run.
type ProjectRun struct {
	ProjectID   int            `json:"project_id"`
	ProjectName string         `json:"project_name"`
	TrackerID   string         `json:"tracker_id"`
	Summary     RunSummary     `json:"summary"`
	Results     []RecordResult `json:"results,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// SyncRun records one execution of the synchronization job across all
// configured projects. Persisted for run history.
type SyncRun struct {
	ID          string        `json:"id" badgerhold:"key"`
	Status      SyncRunStatus `json:"status"`
	Trigger     string        `json:"trigger"` // "schedule" or "manual"
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Projects    []ProjectRun  `json:"projects,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Totals sums the per-project summaries.
func (r *SyncRun) Totals() RunSummary {
	var total RunSummary
	for _, p := range r.Projects {
		total.Synced += p.Summary.Synced
		total.Skipped += p.Summary.Skipped
		total.Failed += p.Summary.Failed
	}
	return total
}

// SyncWatermark stores the last successful pass time for one project and
// tracker pair. Incident retrieval on the next pass starts from here.
type SyncWatermark struct {
	Key       string    `json:"key" badgerhold:"key"` // "<tracker>/<project-id>"
	ProjectID int       `json:"project_id"`
	TrackerID string    `json:"tracker_id"`
	LastSync  time.Time `json:"last_sync"`
}
