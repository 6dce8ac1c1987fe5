package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/mapping"
	"github.com/ternarybob/nexo/internal/models"
)

// snapshot holds the mapping tables fetched once at the start of a project
// pass. The slices are read through the resolver during the pass; the only
// local mutation is appending auto-provisioned release mappings so later
// records in the same pass can resolve them.
type snapshot struct {
	incidents  []models.DataMapping
	statuses   []models.DataMapping
	types      []models.DataMapping
	priorities []models.DataMapping
	severities []models.DataMapping
	releases   []models.DataMapping
	custom     []models.DataMapping
	users      []models.DataMapping // global, not project scoped

	props []models.CustomProperty // custom property definitions, not mappings
}

// pass carries the state of one project sync pass through its four phases.
type pass struct {
	projectID int
	client    interfaces.TestManagementClient
	connector interfaces.TrackerConnector
	snap      *snapshot
	journal   *mapping.Journal
	since     time.Time
	pageSize  int
	logger    arbor.ILogger
}

// syncProject runs the four sync phases for one project against one
// tracker, with a mapping journal checkpoint after each phase.
func (s *Service) syncProject(ctx context.Context, trackerID string, projectID int, projectRun *models.ProjectRun) error {
	connector, err := s.trackers.Connector(trackerID)
	if err != nil {
		return err
	}

	since, err := s.storage.WatermarkStorage().GetWatermark(ctx, trackerID, projectID)
	if err != nil {
		return fmt.Errorf("failed to load watermark: %w", err)
	}
	passStart := time.Now()

	snap, err := s.fetchSnapshot(ctx, projectID)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("tracker", trackerID).
		Int("project", projectID).
		Str("since", since.Format(time.RFC3339)).
		Int("incident_mappings", len(snap.incidents)).
		Msg("Starting project sync pass")

	p := &pass{
		projectID: projectID,
		client:    s.client,
		connector: connector,
		snap:      snap,
		journal:   mapping.NewJournal(projectID),
		since:     since,
		pageSize:  s.cfg.PageSize,
		logger:    s.logger,
	}

	phases := []struct {
		name models.SyncPhase
		fn   func(context.Context) ([]models.RecordResult, error)
	}{
		{models.PhaseImportNew, p.importNewIssues},
		{models.PhaseExportNew, p.exportNewIncidents},
		{models.PhaseImportUpdates, p.importUpdatedIssues},
		{models.PhaseExportUpdates, p.exportUpdatedIncidents},
	}

	for _, phase := range phases {
		results, err := phase.fn(ctx)
		for _, r := range results {
			projectRun.Summary.Add(r)
			projectRun.Results = append(projectRun.Results, r)
		}
		if err != nil {
			return fmt.Errorf("phase %s failed: %w", phase.name, err)
		}

		// Checkpoint: push accumulated mapping changes as one batch.
		if err := p.journal.Flush(ctx, s.client); err != nil {
			return fmt.Errorf("mapping checkpoint after %s failed: %w", phase.name, err)
		}
	}

	if err := s.storage.WatermarkStorage().SetWatermark(ctx, trackerID, projectID, passStart); err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}

	return nil
}

// fetchSnapshot pulls every mapping table for the project, plus the global
// user table, fresh from the server.
func (s *Service) fetchSnapshot(ctx context.Context, projectID int) (*snapshot, error) {
	snap := &snapshot{}

	tables := []struct {
		table models.MappingTable
		dest  *[]models.DataMapping
	}{
		{models.MappingTableIncidents, &snap.incidents},
		{models.MappingTableStatuses, &snap.statuses},
		{models.MappingTableTypes, &snap.types},
		{models.MappingTablePriorities, &snap.priorities},
		{models.MappingTableSeverities, &snap.severities},
		{models.MappingTableReleases, &snap.releases},
		{models.MappingTableCustom, &snap.custom},
	}

	for _, t := range tables {
		mappings, err := s.client.GetMappings(ctx, projectID, t.table)
		if err != nil {
			return nil, err
		}
		*t.dest = mappings
	}

	users, err := s.client.GetUserMappings(ctx)
	if err != nil {
		return nil, err
	}
	snap.users = users

	props, err := s.client.ListCustomProperties(ctx, projectID)
	if err != nil {
		return nil, err
	}
	snap.props = props

	return snap, nil
}

// importNewIssues creates incidents for external issues that have no
// mapping yet.
func (p *pass) importNewIssues(ctx context.Context) ([]models.RecordResult, error) {
	issues, err := p.connector.GetNewIssues(ctx, p.since)
	if err != nil {
		return nil, err
	}

	var results []models.RecordResult
	for i := range issues {
		issue := &issues[i]
		r := p.importOneIssue(ctx, issue)
		results = append(results, r)

		if r.Outcome != models.OutcomeSynced {
			p.logger.Warn().
				Str("key", issue.Key).
				Str("reason", r.Reason).
				Str("outcome", string(r.Outcome)).
				Msg("External issue not imported")
		}
	}
	return results, nil
}

func (p *pass) importOneIssue(ctx context.Context, issue *models.RemoteIssue) models.RecordResult {
	result := models.RecordResult{Phase: models.PhaseImportNew, ExternalKey: issue.Key}

	// Already mapped: an earlier pass imported it, or it originated here.
	if existing := mapping.FindByExternalKey(p.projectID, issue.Key, p.snap.incidents, false); existing != nil {
		result.Outcome = models.OutcomeSkipped
		result.Reason = "already mapped"
		result.InternalID = existing.InternalID
		return result
	}

	incident, skipReason := p.toIncident(ctx, issue)
	if skipReason != "" {
		result.Outcome = models.OutcomeSkipped
		result.Reason = skipReason
		return result
	}

	created, err := p.client.CreateIncident(ctx, incident)
	if err != nil {
		result.Outcome = models.OutcomeFailed
		result.Reason = err.Error()
		return result
	}

	newMapping := models.DataMapping{
		ProjectID:   p.projectID,
		InternalID:  created.ID,
		ExternalKey: issue.Key,
		IsPrimary:   true,
	}
	p.journal.Add(models.MappingTableIncidents, newMapping)
	p.snap.incidents = append(p.snap.incidents, newMapping)

	if err := p.mirrorCommentsToIncident(ctx, created.ID, issue.Comments); err != nil {
		p.logger.Warn().Err(err).Str("key", issue.Key).Msg("Failed to mirror issue comments")
	}
	if err := p.mirrorAttachmentsToIncident(ctx, created.ID, issue.Attachments); err != nil {
		p.logger.Warn().Err(err).Str("key", issue.Key).Msg("Failed to mirror issue attachments")
	}

	result.Outcome = models.OutcomeSynced
	result.InternalID = created.ID
	return result
}

// exportNewIncidents creates external issues for incidents that have no
// mapping yet.
func (p *pass) exportNewIncidents(ctx context.Context) ([]models.RecordResult, error) {
	var results []models.RecordResult

	for start := 0; ; start += p.pageSize {
		incidents, err := p.client.GetNewIncidents(ctx, p.projectID, p.since, start, p.pageSize)
		if err != nil {
			return results, err
		}
		if len(incidents) == 0 {
			break
		}

		for i := range incidents {
			incident := &incidents[i]
			r := p.exportOneIncident(ctx, incident)
			results = append(results, r)

			if r.Outcome != models.OutcomeSynced {
				p.logger.Warn().
					Int("incident", incident.ID).
					Str("reason", r.Reason).
					Str("outcome", string(r.Outcome)).
					Msg("Incident not exported")
			}
		}

		if len(incidents) < p.pageSize {
			break
		}
	}
	return results, nil
}

func (p *pass) exportOneIncident(ctx context.Context, incident *models.Incident) models.RecordResult {
	result := models.RecordResult{Phase: models.PhaseExportNew, InternalID: incident.ID}

	if existing := mapping.FindByInternalID(p.projectID, incident.ID, p.snap.incidents); existing != nil {
		result.Outcome = models.OutcomeSkipped
		result.Reason = "already mapped"
		result.ExternalKey = existing.ExternalKey
		return result
	}

	newIssue, skipReason := p.toNewRemoteIssue(incident)
	if skipReason != "" {
		result.Outcome = models.OutcomeSkipped
		result.Reason = skipReason
		return result
	}

	key, err := p.connector.CreateIssue(ctx, newIssue)
	if err != nil {
		result.Outcome = models.OutcomeFailed
		result.Reason = err.Error()
		return result
	}

	newMapping := models.DataMapping{
		ProjectID:   p.projectID,
		InternalID:  incident.ID,
		ExternalKey: key,
		IsPrimary:   true,
	}
	p.journal.Add(models.MappingTableIncidents, newMapping)
	p.snap.incidents = append(p.snap.incidents, newMapping)

	result.Outcome = models.OutcomeSynced
	result.ExternalKey = key
	return result
}

// importUpdatedIssues applies changes from external issues onto their mapped
// incidents. Only the primary mapping drives updates; secondary external
// records for the same incident are observers.
func (p *pass) importUpdatedIssues(ctx context.Context) ([]models.RecordResult, error) {
	issues, err := p.connector.GetUpdatedIssues(ctx, p.since)
	if err != nil {
		return nil, err
	}

	var results []models.RecordResult
	for i := range issues {
		issue := &issues[i]
		result := models.RecordResult{Phase: models.PhaseImportUpdates, ExternalKey: issue.Key}

		m := mapping.FindByExternalKey(p.projectID, issue.Key, p.snap.incidents, true)
		if m == nil {
			result.Outcome = models.OutcomeSkipped
			result.Reason = "no primary mapping"
			results = append(results, result)
			continue
		}
		result.InternalID = m.InternalID

		incident, err := p.client.GetIncident(ctx, p.projectID, m.InternalID)
		if err != nil {
			result.Outcome = models.OutcomeFailed
			result.Reason = err.Error()
			results = append(results, result)
			continue
		}

		if skipReason := p.applyIssueToIncident(issue, incident); skipReason != "" {
			result.Outcome = models.OutcomeSkipped
			result.Reason = skipReason
			results = append(results, result)
			continue
		}

		if err := p.client.UpdateIncident(ctx, incident); err != nil {
			result.Outcome = models.OutcomeFailed
			result.Reason = err.Error()
			results = append(results, result)
			continue
		}

		newComments := commentsSince(issue.Comments, p.since)
		if err := p.mirrorCommentsToIncident(ctx, incident.ID, newComments); err != nil {
			p.logger.Warn().Err(err).Str("key", issue.Key).Msg("Failed to mirror new issue comments")
		}
		newAttachments := attachmentsSince(issue.Attachments, p.since)
		if err := p.mirrorAttachmentsToIncident(ctx, incident.ID, newAttachments); err != nil {
			p.logger.Warn().Err(err).Str("key", issue.Key).Msg("Failed to mirror new issue attachments")
		}

		result.Outcome = models.OutcomeSynced
		results = append(results, result)
	}
	return results, nil
}

// exportUpdatedIncidents pushes changed incidents to their mapped external
// issues, mirroring comments added since the last pass.
func (p *pass) exportUpdatedIncidents(ctx context.Context) ([]models.RecordResult, error) {
	var results []models.RecordResult

	for start := 0; ; start += p.pageSize {
		incidents, err := p.client.GetUpdatedIncidents(ctx, p.projectID, p.since, start, p.pageSize)
		if err != nil {
			return results, err
		}
		if len(incidents) == 0 {
			break
		}

		for i := range incidents {
			incident := &incidents[i]
			result := models.RecordResult{Phase: models.PhaseExportUpdates, InternalID: incident.ID}

			m := mapping.FindByInternalID(p.projectID, incident.ID, p.snap.incidents)
			if m == nil {
				result.Outcome = models.OutcomeSkipped
				result.Reason = "not mapped"
				results = append(results, result)
				continue
			}
			result.ExternalKey = m.ExternalKey

			issue, skipReason := p.toRemoteIssueUpdate(incident)
			if skipReason != "" {
				result.Outcome = models.OutcomeSkipped
				result.Reason = skipReason
				results = append(results, result)
				continue
			}

			if err := p.connector.UpdateIssue(ctx, m.ExternalKey, issue); err != nil {
				result.Outcome = models.OutcomeFailed
				result.Reason = err.Error()
				results = append(results, result)
				continue
			}

			if err := p.mirrorCommentsToIssue(ctx, incident, m.ExternalKey); err != nil {
				p.logger.Warn().Err(err).Int("incident", incident.ID).Msg("Failed to mirror incident comments")
			}

			result.Outcome = models.OutcomeSynced
			results = append(results, result)
		}

		if len(incidents) < p.pageSize {
			break
		}
	}
	return results, nil
}

// mirrorCommentsToIncident copies external comments onto an incident,
// resolving authors through the global user mapping where possible.
// Comments already carrying the mirror prefix originated on the incident
// side and are skipped, so a comment only ever crosses over once.
func (p *pass) mirrorCommentsToIncident(ctx context.Context, incidentID int, comments []models.RemoteComment) error {
	incidentComments := make([]models.IncidentComment, 0, len(comments))
	for _, c := range comments {
		if isMirrored(c.Body) {
			continue
		}

		comment := models.IncidentComment{
			IncidentID:   incidentID,
			Text:         mirrorText(c.Author, c.Body),
			CreationDate: c.CreatedAt,
		}
		if c.Author != "" {
			if m := mapping.FindGlobalByExternalKey(c.Author, p.snap.users); m != nil {
				comment.CreatorID = m.InternalID
			}
		}
		incidentComments = append(incidentComments, comment)
	}
	if len(incidentComments) == 0 {
		return nil
	}

	return p.client.AddIncidentComments(ctx, p.projectID, incidentComments)
}

// mirrorCommentsToIssue pushes incident comments added since the watermark
// to the external issue. Comments carrying the mirror prefix came from the
// tracker in the first place and are skipped.
func (p *pass) mirrorCommentsToIssue(ctx context.Context, incident *models.Incident, key string) error {
	comments, err := p.client.GetIncidentComments(ctx, p.projectID, incident.ID)
	if err != nil {
		return err
	}

	for _, c := range comments {
		if !c.CreationDate.After(p.since) {
			continue
		}
		if isMirrored(c.Text) {
			continue
		}

		var author string
		if m := mapping.FindGlobalByInternalID(c.CreatorID, p.snap.users); m != nil {
			author = m.ExternalKey
		} else if c.CreatorID != 0 {
			author = fmt.Sprintf("user-%d", c.CreatorID)
		}

		remote := &models.RemoteComment{Body: mirrorText(author, c.Text), CreatedAt: c.CreationDate}
		if err := p.connector.AddComment(ctx, key, remote); err != nil {
			return err
		}
	}
	return nil
}

// mirrorAttachmentsToIncident records attachment metadata from an external
// issue against an incident. Content stays on the tracker; the URL points
// back at it.
func (p *pass) mirrorAttachmentsToIncident(ctx context.Context, incidentID int, attachments []models.RemoteAttachment) error {
	for i := range attachments {
		a := &attachments[i]
		attachment := &models.IncidentAttachment{
			IncidentID: incidentID,
			Filename:   a.Filename,
			Size:       a.Size,
			URL:        a.URL,
		}
		if a.Author != "" {
			if m := mapping.FindGlobalByExternalKey(a.Author, p.snap.users); m != nil {
				attachment.AuthorID = m.InternalID
			}
		}
		if err := p.client.AddIncidentAttachment(ctx, p.projectID, attachment); err != nil {
			return err
		}
	}
	return nil
}

// mirrorText prefixes a comment body with its original author. The prefix
// doubles as a provenance marker: mirrored comments carry it, original
// comments do not, and the mirror functions never copy a marked comment a
// second time.
func mirrorText(author, body string) string {
	if author == "" {
		author = "unknown"
	}
	return fmt.Sprintf("[%s] %s", author, body)
}

func isMirrored(body string) bool {
	if !strings.HasPrefix(body, "[") {
		return false
	}
	return strings.Index(body, "] ") > 1
}

func commentsSince(comments []models.RemoteComment, since time.Time) []models.RemoteComment {
	var result []models.RemoteComment
	for _, c := range comments {
		if c.CreatedAt.After(since) {
			result = append(result, c)
		}
	}
	return result
}

func attachmentsSince(attachments []models.RemoteAttachment, since time.Time) []models.RemoteAttachment {
	var result []models.RemoteAttachment
	for _, a := range attachments {
		if a.CreatedAt.After(since) {
			result = append(result, a)
		}
	}
	return result
}
