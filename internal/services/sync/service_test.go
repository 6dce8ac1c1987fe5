package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/common"
	"github.com/ternarybob/nexo/internal/models"
)

const testProject = 1

func newTestService(tm *fakeTMClient, connector *fakeConnector) (*Service, *memStorage) {
	storage := newMemStorage()
	trackers := &fakeTrackerService{
		def: &models.TrackerDefinition{
			ID:       connector.id,
			Type:     models.TrackerTypeREST,
			Enabled:  true,
			Projects: []int{testProject},
		},
		connector: connector,
	}
	cfg := common.SyncConfig{
		Enabled:     true,
		PageSize:    50,
		MaxRunsKept: 10,
	}
	return NewService(cfg, tm, trackers, storage, arbor.NewLogger()), storage
}

// baseMappings seeds the lookup tables a pass needs for translation.
func baseMappings(tm *fakeTMClient) {
	tm.mappings[models.MappingTableStatuses] = []models.DataMapping{
		{ProjectID: testProject, InternalID: 1, ExternalKey: "open", IsPrimary: true},
		{ProjectID: testProject, InternalID: 2, ExternalKey: "closed", IsPrimary: true},
	}
	tm.mappings[models.MappingTableTypes] = []models.DataMapping{
		{ProjectID: testProject, InternalID: 3, ExternalKey: "bug", IsPrimary: true},
	}
	tm.mappings[models.MappingTablePriorities] = []models.DataMapping{
		{ProjectID: testProject, InternalID: 4, ExternalKey: "high", IsPrimary: true},
	}
	tm.userMappings = []models.DataMapping{
		{InternalID: 7, ExternalKey: "alice"},
	}
}

func TestImportNewIssueCreatesIncidentAndMapping(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)

	connector := newFakeConnector("tracker-1")
	connector.newIssues = []models.RemoteIssue{
		{
			Key:         "EXT-1",
			Name:        "Crash on startup",
			Description: "Stack trace attached",
			Status:      "open",
			Priority:    "high",
			Assignee:    "alice",
			CreatedAt:   time.Now().Add(-time.Hour),
		},
	}

	svc, storage := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, models.SyncRunStatusCompleted, run.Status)
	totals := run.Totals()
	assert.Equal(t, 1, totals.Synced)
	assert.Equal(t, 0, totals.Skipped)
	assert.Equal(t, 0, totals.Failed)

	// The incident was created with translated fields.
	require.Len(t, tm.incidents, 1)
	var incident *models.Incident
	for _, inc := range tm.incidents {
		incident = inc
	}
	assert.Equal(t, "Crash on startup", incident.Name)
	assert.Equal(t, "Stack trace attached", incident.Description)
	assert.Equal(t, 1, incident.StatusID)
	assert.Equal(t, 3, incident.TypeID, "tracker without a type concept defaults to the bug mapping")
	assert.Equal(t, 4, incident.PriorityID)
	assert.Equal(t, 7, incident.OwnerID)

	// A primary incident mapping was flushed at the phase checkpoint.
	added := tm.addedMappings[models.MappingTableIncidents]
	require.Len(t, added, 1)
	assert.Equal(t, "EXT-1", added[0].ExternalKey)
	assert.Equal(t, incident.ID, added[0].InternalID)
	assert.True(t, added[0].IsPrimary)

	// Watermark advanced.
	wm, err := storage.GetWatermark(context.Background(), "tracker-1", testProject)
	require.NoError(t, err)
	assert.False(t, wm.IsZero())
}

func TestImportSkipsAlreadyMappedIssue(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)
	tm.mappings[models.MappingTableIncidents] = []models.DataMapping{
		{ProjectID: testProject, InternalID: 55, ExternalKey: "EXT-1", IsPrimary: true},
	}

	connector := newFakeConnector("tracker-1")
	connector.newIssues = []models.RemoteIssue{
		{Key: "EXT-1", Name: "Duplicate", Status: "open", CreatedAt: time.Now()},
	}

	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	totals := run.Totals()
	assert.Equal(t, 0, totals.Synced)
	assert.Equal(t, 1, totals.Skipped)
	assert.Empty(t, tm.incidents, "no incident should be created for an already-mapped issue")
}

func TestImportSkipsOnMissingRequiredMapping(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)

	connector := newFakeConnector("tracker-1")
	connector.newIssues = []models.RemoteIssue{
		{Key: "EXT-2", Name: "Odd state", Status: "limbo", CreatedAt: time.Now()},
	}

	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	totals := run.Totals()
	assert.Equal(t, 1, totals.Skipped)
	assert.Empty(t, tm.incidents)

	require.Len(t, run.Projects, 1)
	require.NotEmpty(t, run.Projects[0].Results)
	assert.Contains(t, run.Projects[0].Results[0].Reason, "no status mapping")
}

func TestImportUnmappedOptionalFieldIsLeftUnset(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)

	connector := newFakeConnector("tracker-1")
	connector.newIssues = []models.RemoteIssue{
		{Key: "EXT-3", Name: "Minor", Status: "open", Priority: "cosmic", CreatedAt: time.Now()},
	}

	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, run.Totals().Synced, "unmapped optional field must not skip the record")
	for _, incident := range tm.incidents {
		assert.Zero(t, incident.PriorityID, "unmapped priority stays unset")
	}
}

func TestExportNewIncidentCreatesIssueAndMapping(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)
	tm.newIncidents = []models.Incident{
		{
			ID:         200,
			ProjectID:  testProject,
			Name:       "Report export hangs",
			StatusID:   1,
			TypeID:     3,
			PriorityID: 4,
			OwnerID:    7,
		},
	}

	connector := newFakeConnector("tracker-1")
	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, run.Totals().Synced)
	require.Len(t, connector.createdIssues, 1)
	created := connector.createdIssues[0]
	assert.Equal(t, "Report export hangs", created.Name)
	assert.Equal(t, "open", created.Status)
	assert.Equal(t, "bug", created.Type)
	assert.Equal(t, "high", created.Priority)
	assert.Equal(t, "alice", created.Assignee)

	added := tm.addedMappings[models.MappingTableIncidents]
	require.Len(t, added, 1)
	assert.Equal(t, 200, added[0].InternalID)
	assert.True(t, added[0].IsPrimary)
}

func TestUpdateRequiresPrimaryMapping(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)
	tm.mappings[models.MappingTableIncidents] = []models.DataMapping{
		// Secondary external record for incident 55: must not drive updates.
		{ProjectID: testProject, InternalID: 55, ExternalKey: "EXT-9", IsPrimary: false},
	}
	tm.incidents[55] = &models.Incident{ID: 55, ProjectID: testProject, Name: "Old", StatusID: 1}

	connector := newFakeConnector("tracker-1")
	connector.updatedIssues = []models.RemoteIssue{
		{Key: "EXT-9", Name: "New name", Status: "closed", UpdatedAt: time.Now()},
	}

	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, run.Totals().Skipped)
	assert.Equal(t, "Old", tm.incidents[55].Name, "non-primary mapping must not update the incident")
}

func TestUpdateAppliesIssueNameToIncidentName(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)
	tm.mappings[models.MappingTableIncidents] = []models.DataMapping{
		{ProjectID: testProject, InternalID: 55, ExternalKey: "EXT-9", IsPrimary: true},
	}
	tm.incidents[55] = &models.Incident{
		ID: 55, ProjectID: testProject,
		Name: "Old name", Description: "Old description", StatusID: 1,
	}

	connector := newFakeConnector("tracker-1")
	connector.updatedIssues = []models.RemoteIssue{
		{
			Key:         "EXT-9",
			Name:        "Renamed issue",
			Description: "Updated description",
			Status:      "closed",
			UpdatedAt:   time.Now(),
		},
	}

	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	assert.Equal(t, 1, run.Totals().Synced)
	updated := tm.incidents[55]
	assert.Equal(t, "Renamed issue", updated.Name)
	assert.Equal(t, "Updated description", updated.Description)
	assert.Equal(t, 2, updated.StatusID)
}

func TestImportAutoProvisionsRelease(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)

	connector := newFakeConnector("tracker-1")
	connector.newIssues = []models.RemoteIssue{
		{Key: "EXT-4", Name: "Broken in v2.1", Status: "open", DetectedVersion: "v2.1", CreatedAt: time.Now()},
	}

	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, run.Totals().Synced)

	// Release created on the server and its mapping journaled.
	require.Len(t, tm.releases, 1)
	assert.Equal(t, "v2.1", tm.releases[0].Name)

	added := tm.addedMappings[models.MappingTableReleases]
	require.Len(t, added, 1)
	assert.Equal(t, "v2.1", added[0].ExternalKey)
	assert.Equal(t, tm.releases[0].ID, added[0].InternalID)

	for _, incident := range tm.incidents {
		assert.Equal(t, tm.releases[0].ID, incident.DetectedReleaseID)
	}
}

func TestConcurrentRunRejected(t *testing.T) {
	tm := newFakeTMClient()
	connector := newFakeConnector("tracker-1")
	svc, _ := newTestService(tm, connector)

	require.True(t, svc.setRunning(true))
	_, err := svc.RunAll(context.Background(), "manual")
	assert.Error(t, err, "second concurrent run must be rejected")
	svc.setRunning(false)
}

func TestRunProjectUnknownTracker(t *testing.T) {
	tm := newFakeTMClient()
	connector := newFakeConnector("tracker-1")
	svc, _ := newTestService(tm, connector)

	_, err := svc.RunProject(context.Background(), "missing", testProject, "manual")
	assert.Error(t, err)
}

func TestRunHistoryPersisted(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)
	connector := newFakeConnector("tracker-1")

	svc, storage := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "schedule")
	require.NoError(t, err)

	saved, err := storage.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunStatusCompleted, saved.Status)
	assert.Equal(t, "schedule", saved.Trigger)
	require.NotNil(t, saved.CompletedAt)
}

func TestCommentMirroringDoesNotEcho(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)
	tm.mappings[models.MappingTableIncidents] = []models.DataMapping{
		{ProjectID: testProject, InternalID: 55, ExternalKey: "EXT-9", IsPrimary: true},
	}
	incident := &models.Incident{ID: 55, ProjectID: testProject, Name: "Flaky login", StatusID: 1}
	tm.incidents[55] = incident
	tm.updatedIncidents = []models.Incident{*incident}
	tm.comments[55] = []models.IncidentComment{
		{IncidentID: 55, CreatorID: 7, Text: "needs info", CreationDate: time.Now()},
	}

	connector := newFakeConnector("tracker-1")
	connector.updatedIssues = []models.RemoteIssue{
		{
			Key:       "EXT-9",
			Name:      "Flaky login",
			Status:    "open",
			UpdatedAt: time.Now(),
			Comments: []models.RemoteComment{
				{Author: "ext-user", Body: "external remark", CreatedAt: time.Now()},
			},
		},
	}

	svc, _ := newTestService(tm, connector)
	_, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	// The external comment landed on the incident, prefixed with its author.
	require.Len(t, tm.comments[55], 2)
	assert.Equal(t, "[ext-user] external remark", tm.comments[55][1].Text)

	// Only the incident's own comment went out; the one that arrived from
	// the tracker in the same pass was not posted back to it.
	require.Len(t, connector.comments["EXT-9"], 1)
	assert.Equal(t, "[alice] needs info", connector.comments["EXT-9"][0].Body)

	// Next pass: the tracker now shows the comment this service posted.
	// It must not be imported back onto the incident.
	connector.updatedIssues[0].Comments = append(connector.updatedIssues[0].Comments,
		models.RemoteComment{Author: "sync-bot", Body: "[alice] needs info", CreatedAt: time.Now().Add(time.Hour)})

	_, err = svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)

	assert.Len(t, tm.comments[55], 2, "mirrored comment must not bounce back onto the incident")
	assert.Len(t, connector.comments["EXT-9"], 1, "mirrored comment must not bounce back to the tracker")
}

func TestImportMirrorsAttachmentMetadata(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)

	connector := newFakeConnector("tracker-1")
	connector.newIssues = []models.RemoteIssue{
		{
			Key:       "EXT-5",
			Name:      "Crash dump attached",
			Status:    "open",
			CreatedAt: time.Now(),
			Attachments: []models.RemoteAttachment{
				{Filename: "core.dmp", URL: "https://tracker.example/files/core.dmp", Size: 2048, Author: "alice"},
			},
		},
	}

	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, run.Totals().Synced)

	var incidentID int
	for id := range tm.incidents {
		incidentID = id
	}
	attachments := tm.attachments[incidentID]
	require.Len(t, attachments, 1)
	assert.Equal(t, "core.dmp", attachments[0].Filename)
	assert.Equal(t, "https://tracker.example/files/core.dmp", attachments[0].URL)
	assert.Equal(t, int64(2048), attachments[0].Size)
	assert.Equal(t, 7, attachments[0].AuthorID, "mapped author resolves to the internal user")
}

func TestReleaseReusedWhenAlreadyOnServer(t *testing.T) {
	tm := newFakeTMClient()
	baseMappings(tm)
	tm.releases = []models.Release{
		{ID: 900, ProjectID: testProject, Name: "v2.1", VersionNumber: "v2.1", Active: true},
	}

	connector := newFakeConnector("tracker-1")
	connector.newIssues = []models.RemoteIssue{
		{Key: "EXT-6", Name: "Broken in v2.1", Status: "open", DetectedVersion: "v2.1", CreatedAt: time.Now()},
	}

	svc, _ := newTestService(tm, connector)
	run, err := svc.RunAll(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, run.Totals().Synced)

	assert.Len(t, tm.releases, 1, "existing release must be reused, not duplicated")

	added := tm.addedMappings[models.MappingTableReleases]
	require.Len(t, added, 1)
	assert.Equal(t, 900, added[0].InternalID)

	for _, incident := range tm.incidents {
		assert.Equal(t, 900, incident.DetectedReleaseID)
	}
}
