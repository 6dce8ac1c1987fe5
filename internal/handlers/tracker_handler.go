package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/interfaces"
)

// TrackerHandler serves tracker definitions and connection checks.
type TrackerHandler struct {
	trackers interfaces.TrackerService
	logger   arbor.ILogger
}

func NewTrackerHandler(trackers interfaces.TrackerService) *TrackerHandler {
	return &TrackerHandler{
		trackers: trackers,
		logger:   common.GetLogger(),
	}
}

// ListHandler returns all loaded tracker definitions.
// GET /api/trackers
func (h *TrackerHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	defs := h.trackers.ListTrackers()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"trackers": defs,
		"count":    len(defs),
	})
}

// GetHandler returns one tracker definition, or runs a connection test.
// GET /api/trackers/{id}
// POST /api/trackers/{id}/test
func (h *TrackerHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/trackers/")

	if strings.HasSuffix(path, "/test") {
		h.testConnection(w, r, strings.TrimSuffix(path, "/test"))
		return
	}

	if !RequireMethod(w, r, "GET") {
		return
	}
	if path == "" || strings.Contains(path, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid tracker id")
		return
	}

	def, err := h.trackers.GetTracker(path)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Tracker not found: "+path)
		return
	}

	WriteJSON(w, http.StatusOK, def)
}

func (h *TrackerHandler) testConnection(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	connector, err := h.trackers.Connector(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Tracker not found: "+id)
		return
	}

	if err := connector.TestConnection(r.Context()); err != nil {
		h.logger.Warn().Err(err).Str("tracker", id).Msg("Tracker connection test failed")
		WriteError(w, http.StatusBadGateway, "Connection test failed: "+err.Error())
		return
	}

	WriteSuccess(w, "Connection OK")
}
