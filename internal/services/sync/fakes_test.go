package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
)

// fakeTMClient is an in-memory test-management server.
type fakeTMClient struct {
	connected bool

	projects  []models.Project
	incidents map[int]*models.Incident // by incident id
	nextID    int

	newIncidents     []models.Incident
	updatedIncidents []models.Incident
	comments         map[int][]models.IncidentComment
	attachments      map[int][]models.IncidentAttachment

	mappings     map[models.MappingTable][]models.DataMapping
	userMappings []models.DataMapping
	props        []models.CustomProperty

	releases      []models.Release
	nextReleaseID int

	addedMappings   map[models.MappingTable][]models.DataMapping
	removedMappings map[models.MappingTable][]models.DataMapping
	flushCount      int
}

func newFakeTMClient() *fakeTMClient {
	return &fakeTMClient{
		incidents:       make(map[int]*models.Incident),
		nextID:          100,
		comments:        make(map[int][]models.IncidentComment),
		attachments:     make(map[int][]models.IncidentAttachment),
		mappings:        make(map[models.MappingTable][]models.DataMapping),
		addedMappings:   make(map[models.MappingTable][]models.DataMapping),
		removedMappings: make(map[models.MappingTable][]models.DataMapping),
		nextReleaseID:   500,
	}
}

func (f *fakeTMClient) Connect(ctx context.Context) error    { f.connected = true; return nil }
func (f *fakeTMClient) Disconnect(ctx context.Context) error { f.connected = false; return nil }

func (f *fakeTMClient) ListProjects(ctx context.Context) ([]models.Project, error) {
	return f.projects, nil
}

func (f *fakeTMClient) GetNewIncidents(ctx context.Context, projectID int, since time.Time, start, pageSize int) ([]models.Incident, error) {
	return page(f.newIncidents, start, pageSize), nil
}

func (f *fakeTMClient) GetUpdatedIncidents(ctx context.Context, projectID int, since time.Time, start, pageSize int) ([]models.Incident, error) {
	return page(f.updatedIncidents, start, pageSize), nil
}

func page(incidents []models.Incident, start, pageSize int) []models.Incident {
	if start >= len(incidents) {
		return nil
	}
	end := start + pageSize
	if end > len(incidents) {
		end = len(incidents)
	}
	return incidents[start:end]
}

func (f *fakeTMClient) GetIncident(ctx context.Context, projectID, incidentID int) (*models.Incident, error) {
	incident, ok := f.incidents[incidentID]
	if !ok {
		return nil, fmt.Errorf("incident not found: %d", incidentID)
	}
	clone := *incident
	return &clone, nil
}

func (f *fakeTMClient) CreateIncident(ctx context.Context, incident *models.Incident) (*models.Incident, error) {
	created := *incident
	created.ID = f.nextID
	f.nextID++
	f.incidents[created.ID] = &created
	return &created, nil
}

func (f *fakeTMClient) UpdateIncident(ctx context.Context, incident *models.Incident) error {
	clone := *incident
	f.incidents[incident.ID] = &clone
	return nil
}

func (f *fakeTMClient) GetIncidentComments(ctx context.Context, projectID, incidentID int) ([]models.IncidentComment, error) {
	return f.comments[incidentID], nil
}

func (f *fakeTMClient) AddIncidentComments(ctx context.Context, projectID int, comments []models.IncidentComment) error {
	for _, c := range comments {
		f.comments[c.IncidentID] = append(f.comments[c.IncidentID], c)
	}
	return nil
}

func (f *fakeTMClient) AddIncidentAttachment(ctx context.Context, projectID int, attachment *models.IncidentAttachment) error {
	f.attachments[attachment.IncidentID] = append(f.attachments[attachment.IncidentID], *attachment)
	return nil
}

func (f *fakeTMClient) ListReleases(ctx context.Context, projectID int) ([]models.Release, error) {
	return f.releases, nil
}

func (f *fakeTMClient) CreateRelease(ctx context.Context, release *models.Release) (*models.Release, error) {
	created := *release
	created.ID = f.nextReleaseID
	f.nextReleaseID++
	f.releases = append(f.releases, created)
	return &created, nil
}

func (f *fakeTMClient) ListUsers(ctx context.Context) ([]models.User, error) { return nil, nil }

func (f *fakeTMClient) ListCustomProperties(ctx context.Context, projectID int) ([]models.CustomProperty, error) {
	return f.props, nil
}

func (f *fakeTMClient) GetMappings(ctx context.Context, projectID int, table models.MappingTable) ([]models.DataMapping, error) {
	return f.mappings[table], nil
}

func (f *fakeTMClient) GetUserMappings(ctx context.Context) ([]models.DataMapping, error) {
	return f.userMappings, nil
}

func (f *fakeTMClient) AddMappings(ctx context.Context, projectID int, table models.MappingTable, add []models.DataMapping) error {
	f.addedMappings[table] = append(f.addedMappings[table], add...)
	f.flushCount++
	return nil
}

func (f *fakeTMClient) RemoveMappings(ctx context.Context, projectID int, table models.MappingTable, remove []models.DataMapping) error {
	f.removedMappings[table] = append(f.removedMappings[table], remove...)
	return nil
}

var _ interfaces.TestManagementClient = (*fakeTMClient)(nil)

// fakeConnector is an in-memory external tracker.
type fakeConnector struct {
	id            string
	newIssues     []models.RemoteIssue
	updatedIssues []models.RemoteIssue

	createdIssues []models.NewRemoteIssue
	updatedByKey  map[string]*models.RemoteIssue
	comments      map[string][]models.RemoteComment
	nextNumber    int
}

func newFakeConnector(id string) *fakeConnector {
	return &fakeConnector{
		id:           id,
		updatedByKey: make(map[string]*models.RemoteIssue),
		comments:     make(map[string][]models.RemoteComment),
		nextNumber:   1000,
	}
}

func (f *fakeConnector) ID() string                               { return f.id }
func (f *fakeConnector) Type() models.TrackerType                 { return models.TrackerTypeREST }
func (f *fakeConnector) TestConnection(ctx context.Context) error { return nil }

func (f *fakeConnector) GetNewIssues(ctx context.Context, since time.Time) ([]models.RemoteIssue, error) {
	return f.newIssues, nil
}

func (f *fakeConnector) GetUpdatedIssues(ctx context.Context, since time.Time) ([]models.RemoteIssue, error) {
	return f.updatedIssues, nil
}

func (f *fakeConnector) GetIssue(ctx context.Context, key string) (*models.RemoteIssue, error) {
	return nil, fmt.Errorf("issue not found: %s", key)
}

func (f *fakeConnector) CreateIssue(ctx context.Context, issue *models.NewRemoteIssue) (string, error) {
	f.createdIssues = append(f.createdIssues, *issue)
	key := fmt.Sprintf("EXT-%d", f.nextNumber)
	f.nextNumber++
	return key, nil
}

func (f *fakeConnector) UpdateIssue(ctx context.Context, key string, issue *models.RemoteIssue) error {
	clone := *issue
	f.updatedByKey[key] = &clone
	return nil
}

func (f *fakeConnector) AddComment(ctx context.Context, key string, comment *models.RemoteComment) error {
	f.comments[key] = append(f.comments[key], *comment)
	return nil
}

var _ interfaces.TrackerConnector = (*fakeConnector)(nil)

// fakeTrackerService serves a single fake connector.
type fakeTrackerService struct {
	def       *models.TrackerDefinition
	connector interfaces.TrackerConnector
}

func (f *fakeTrackerService) ListTrackers() []*models.TrackerDefinition {
	return []*models.TrackerDefinition{f.def}
}

func (f *fakeTrackerService) GetTracker(id string) (*models.TrackerDefinition, error) {
	if id != f.def.ID {
		return nil, fmt.Errorf("tracker not found: %s", id)
	}
	return f.def, nil
}

func (f *fakeTrackerService) Connector(id string) (interfaces.TrackerConnector, error) {
	if id != f.def.ID {
		return nil, fmt.Errorf("tracker not found: %s", id)
	}
	return f.connector, nil
}

var _ interfaces.TrackerService = (*fakeTrackerService)(nil)

// memStorage implements interfaces.StorageManager in memory.
type memStorage struct {
	runs       map[string]*models.SyncRun
	watermarks map[string]time.Time
	trackers   map[string]*models.TrackerDefinition
}

func newMemStorage() *memStorage {
	return &memStorage{
		runs:       make(map[string]*models.SyncRun),
		watermarks: make(map[string]time.Time),
		trackers:   make(map[string]*models.TrackerDefinition),
	}
}

func (m *memStorage) SyncRunStorage() interfaces.SyncRunStorage     { return m }
func (m *memStorage) WatermarkStorage() interfaces.WatermarkStorage { return m }
func (m *memStorage) TrackerStorage() interfaces.TrackerStorage     { return m }
func (m *memStorage) Close() error                                  { return nil }

func (m *memStorage) SaveRun(ctx context.Context, run *models.SyncRun) error {
	clone := *run
	m.runs[run.ID] = &clone
	return nil
}

func (m *memStorage) GetRun(ctx context.Context, id string) (*models.SyncRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return run, nil
}

func (m *memStorage) ListRuns(ctx context.Context, opts *interfaces.SyncRunListOptions) ([]*models.SyncRun, error) {
	var result []*models.SyncRun
	for _, run := range m.runs {
		result = append(result, run)
	}
	return result, nil
}

func (m *memStorage) PruneRuns(ctx context.Context, keep int) (int, error) { return 0, nil }

func (m *memStorage) GetWatermark(ctx context.Context, trackerID string, projectID int) (time.Time, error) {
	return m.watermarks[fmt.Sprintf("%s/%d", trackerID, projectID)], nil
}

func (m *memStorage) SetWatermark(ctx context.Context, trackerID string, projectID int, t time.Time) error {
	m.watermarks[fmt.Sprintf("%s/%d", trackerID, projectID)] = t
	return nil
}

func (m *memStorage) SaveTracker(ctx context.Context, def *models.TrackerDefinition) error {
	m.trackers[def.ID] = def
	return nil
}

func (m *memStorage) GetTracker(ctx context.Context, id string) (*models.TrackerDefinition, error) {
	return m.trackers[id], nil
}

func (m *memStorage) ListTrackers(ctx context.Context) ([]*models.TrackerDefinition, error) {
	return nil, nil
}

func (m *memStorage) DeleteTracker(ctx context.Context, id string) error { return nil }

var _ interfaces.StorageManager = (*memStorage)(nil)
