package testmgmt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(common.TestManagementConfig{
		BaseURL:  server.URL,
		Username: "syncuser",
		APIKey:   "secret",
	}, arbor.NewLogger())
	require.NoError(t, err)
	return client, server
}

func TestConnectSendsCredentials(t *testing.T) {
	var gotUser, gotKey string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/session", r.URL.Path)
		gotUser = r.Header.Get("X-Username")
		gotKey = r.Header.Get("X-Api-Key")
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	}))

	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, "syncuser", gotUser)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "tok-123", client.sessionToken)
}

func TestSessionTokenAccompaniesRequests(t *testing.T) {
	var gotToken string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-9"})
		case "/projects":
			gotToken = r.Header.Get("X-Session-Token")
			json.NewEncoder(w).Encode([]models.Project{{ID: 1, Name: "Library System", Active: true}})
		default:
			http.NotFound(w, r)
		}
	}))

	ctx := context.Background()
	require.NoError(t, client.Connect(ctx))

	projects, err := client.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "tok-9", gotToken)
	assert.Equal(t, "Library System", projects[0].Name)
}

func TestGetMappingsPreservesOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects/4/data-mappings/incidents", r.URL.Path)
		json.NewEncoder(w).Encode([]models.DataMapping{
			{ProjectID: 4, InternalID: 10, ExternalKey: "BUG-1", IsPrimary: true},
			{ProjectID: 4, InternalID: 10, ExternalKey: "BUG-2"},
			{ProjectID: 4, InternalID: 11, ExternalKey: "BUG-3", IsPrimary: true},
		})
	}))

	mappings, err := client.GetMappings(context.Background(), 4, models.MappingTableIncidents)
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	assert.Equal(t, "BUG-1", mappings[0].ExternalKey)
	assert.Equal(t, "BUG-2", mappings[1].ExternalKey)
	assert.Equal(t, "BUG-3", mappings[2].ExternalKey)
}

func TestAddMappingsSkipsEmptyBatch(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	err := client.AddMappings(context.Background(), 1, models.MappingTableReleases, nil)
	require.NoError(t, err)
	assert.False(t, called, "empty batch should not hit the server")
}

func TestServerErrorIsReported(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "project not found", http.StatusNotFound)
	}))

	_, err := client.GetIncident(context.Background(), 99, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestCreateIncidentReturnsAssignedID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/projects/2/incidents", r.URL.Path)

		var incoming models.Incident
		require.NoError(t, json.NewDecoder(r.Body).Decode(&incoming))
		incoming.ID = 42
		json.NewEncoder(w).Encode(incoming)
	}))

	created, err := client.CreateIncident(context.Background(), &models.Incident{
		ProjectID: 2,
		Name:      "Login fails with special characters",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, created.ID)
	assert.Equal(t, "Login fails with special characters", created.Name)
}
