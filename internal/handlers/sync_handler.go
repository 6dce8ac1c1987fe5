package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
)

// SyncHandler exposes sync run management over HTTP.
type SyncHandler struct {
	syncService interfaces.SyncService
	scheduler   interfaces.SchedulerService
	runStorage  interfaces.SyncRunStorage
	logger      arbor.ILogger
}

func NewSyncHandler(syncService interfaces.SyncService, scheduler interfaces.SchedulerService, runStorage interfaces.SyncRunStorage) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		scheduler:   scheduler,
		runStorage:  runStorage,
		logger:      common.GetLogger(),
	}
}

// TriggerHandler starts a sync pass in the background.
// POST /api/sync/trigger           - all trackers, all projects
// POST /api/sync/trigger?tracker=X&project=N - a single project
func (h *SyncHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if h.syncService.IsRunning() {
		WriteError(w, http.StatusConflict, "A sync pass is already running")
		return
	}

	trackerID := r.URL.Query().Get("tracker")
	projectRaw := r.URL.Query().Get("project")

	if trackerID != "" && projectRaw != "" {
		projectID, err := strconv.Atoi(projectRaw)
		if err != nil || projectID <= 0 {
			WriteError(w, http.StatusBadRequest, "Invalid project id")
			return
		}

		// The pass outlives the request, so it runs on its own context.
		common.SafeGo(h.logger, "manual-project-sync", func() {
			if _, err := h.syncService.RunProject(context.Background(), trackerID, projectID, "manual"); err != nil {
				h.logger.Error().Err(err).Str("tracker", trackerID).Int("project", projectID).Msg("Manual project sync failed")
			}
		})
		WriteStarted(w, "Sync started for tracker "+trackerID+" project "+projectRaw)
		return
	}

	if err := h.scheduler.TriggerNow(); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	WriteStarted(w, "Sync started for all trackers")
}

// ListRunsHandler returns run history, newest first.
// GET /api/sync/runs?status=completed&limit=20&offset=0
func (h *SyncHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	opts := &interfaces.SyncRunListOptions{
		Status: models.SyncRunStatus(r.URL.Query().Get("status")),
		Limit:  GetIntParam(r, "limit", 20),
		Offset: GetIntParam(r, "offset", 0),
	}

	runs, err := h.runStorage.ListRuns(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list sync runs")
		WriteError(w, http.StatusInternalServerError, "Failed to list sync runs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRunHandler returns a single run by id.
// GET /api/sync/runs/{id}
func (h *SyncHandler) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/sync/runs/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	run, err := h.runStorage.GetRun(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Run not found: "+id)
		return
	}

	WriteJSON(w, http.StatusOK, run)
}

// StatusHandler reports scheduler and sync state.
// GET /api/sync/status
func (h *SyncHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"running":   h.syncService.IsRunning(),
		"scheduler": h.scheduler.Status(),
	})
}
