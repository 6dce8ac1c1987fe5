package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
)

// MappingHandler exposes read-only views of the data mappings held by the
// test-management server, for diagnostics.
type MappingHandler struct {
	client interfaces.TestManagementClient
	logger arbor.ILogger
}

func NewMappingHandler(client interfaces.TestManagementClient) *MappingHandler {
	return &MappingHandler{
		client: client,
		logger: common.GetLogger(),
	}
}

// ProjectMappingsHandler returns one mapping table for a project.
// GET /api/mappings/{projectID}/{table}
func (h *MappingHandler) ProjectMappingsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/mappings/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, http.StatusBadRequest, "Expected /api/mappings/{projectID}/{table}")
		return
	}

	projectID, err := strconv.Atoi(parts[0])
	if err != nil || projectID <= 0 {
		WriteError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	table := models.MappingTable(parts[1])
	mappings, err := h.client.GetMappings(r.Context(), projectID, table)
	if err != nil {
		h.logger.Error().Err(err).Int("project_id", projectID).Str("table", string(table)).Msg("Failed to fetch mappings")
		WriteError(w, http.StatusBadGateway, "Failed to fetch mappings: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"table":      table,
		"mappings":   mappings,
		"count":      len(mappings),
	})
}

// UserMappingsHandler returns the global user mapping table.
// GET /api/mappings/users
func (h *MappingHandler) UserMappingsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	mappings, err := h.client.GetUserMappings(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch user mappings")
		WriteError(w, http.StatusBadGateway, "Failed to fetch user mappings: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"table":    models.MappingTableUsers,
		"mappings": mappings,
		"count":    len(mappings),
	})
}
