package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/interfaces"
)

// ProjectHandler exposes read-only reference data from the test-management
// server: projects, their releases, and user accounts. Operators use these
// when setting up mapping tables.
type ProjectHandler struct {
	client interfaces.TestManagementClient
	logger arbor.ILogger
}

func NewProjectHandler(client interfaces.TestManagementClient) *ProjectHandler {
	return &ProjectHandler{
		client: client,
		logger: common.GetLogger(),
	}
}

// ListHandler returns all active projects.
// GET /api/projects
func (h *ProjectHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	projects, err := h.client.ListProjects(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list projects")
		WriteError(w, http.StatusBadGateway, "Failed to list projects: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	})
}

// ReleasesHandler returns the releases of one project.
// GET /api/projects/{projectID}/releases
func (h *ProjectHandler) ReleasesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/projects/"), "/")
	if len(parts) != 2 || parts[1] != "releases" {
		WriteError(w, http.StatusBadRequest, "Expected /api/projects/{projectID}/releases")
		return
	}

	projectID, err := strconv.Atoi(parts[0])
	if err != nil || projectID <= 0 {
		WriteError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	releases, err := h.client.ListReleases(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Int("project_id", projectID).Msg("Failed to list releases")
		WriteError(w, http.StatusBadGateway, "Failed to list releases: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"releases":   releases,
		"count":      len(releases),
	})
}

// UsersHandler returns all user accounts.
// GET /api/users
func (h *ProjectHandler) UsersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	users, err := h.client.ListUsers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list users")
		WriteError(w, http.StatusBadGateway, "Failed to list users: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}
