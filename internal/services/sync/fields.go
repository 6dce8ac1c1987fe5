package sync

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ternarybob/nexo/internal/mapping"
	"github.com/ternarybob/nexo/internal/models"
)

// Field translation policy: status and type are required, so a missing
// mapping skips the record with a reason. Priority, severity, assignee,
// reporter, versions, and custom fields are optional; a missing mapping is
// logged and the field left unset. Trackers without an issue type concept
// report everything under the "bug" key.
const defaultTypeKey = "bug"

// toIncident builds a new incident from an external issue. Returns a
// non-empty skip reason when a required field cannot be translated.
func (p *pass) toIncident(ctx context.Context, issue *models.RemoteIssue) (*models.Incident, string) {
	incident := &models.Incident{
		ProjectID:      p.projectID,
		Name:           issue.Name,
		Description:    issue.Description,
		CreationDate:   issue.CreatedAt,
		LastUpdateDate: issue.UpdatedAt,
		ClosedDate:     issue.ClosedAt,
	}

	m := mapping.FindByExternalKey(p.projectID, issue.Status, p.snap.statuses, false)
	if m == nil {
		return nil, fmt.Sprintf("no status mapping for %q", issue.Status)
	}
	incident.StatusID = m.InternalID

	typeKey := issue.Type
	if typeKey == "" {
		typeKey = defaultTypeKey
	}
	m = mapping.FindByExternalKey(p.projectID, typeKey, p.snap.types, false)
	if m == nil {
		return nil, fmt.Sprintf("no type mapping for %q", typeKey)
	}
	incident.TypeID = m.InternalID

	if issue.Priority != "" {
		if m := mapping.FindByExternalKey(p.projectID, issue.Priority, p.snap.priorities, false); m != nil {
			incident.PriorityID = m.InternalID
		} else {
			p.logger.Warn().Str("key", issue.Key).Str("priority", issue.Priority).Msg("No priority mapping, leaving unset")
		}
	}
	if issue.Severity != "" {
		if m := mapping.FindByExternalKey(p.projectID, issue.Severity, p.snap.severities, false); m != nil {
			incident.SeverityID = m.InternalID
		} else {
			p.logger.Warn().Str("key", issue.Key).Str("severity", issue.Severity).Msg("No severity mapping, leaving unset")
		}
	}

	if issue.Assignee != "" {
		if m := mapping.FindGlobalByExternalKey(issue.Assignee, p.snap.users); m != nil {
			incident.OwnerID = m.InternalID
		} else {
			p.logger.Warn().Str("key", issue.Key).Str("assignee", issue.Assignee).Msg("No user mapping for assignee, leaving unset")
		}
	}
	if issue.Reporter != "" {
		if m := mapping.FindGlobalByExternalKey(issue.Reporter, p.snap.users); m != nil {
			incident.OpenerID = m.InternalID
		}
	}

	incident.DetectedReleaseID = p.resolveReleaseID(ctx, issue.DetectedVersion)
	incident.ResolvedReleaseID = p.resolveReleaseID(ctx, issue.ResolvedVersion)

	incident.CustomProperties = p.customFieldsToInternal(issue)

	return incident, ""
}

// applyIssueToIncident copies changed external fields onto an existing
// incident. The issue name maps to the incident name, not the description.
func (p *pass) applyIssueToIncident(issue *models.RemoteIssue, incident *models.Incident) string {
	m := mapping.FindByExternalKey(p.projectID, issue.Status, p.snap.statuses, false)
	if m == nil {
		return fmt.Sprintf("no status mapping for %q", issue.Status)
	}

	incident.Name = issue.Name
	incident.Description = issue.Description
	incident.StatusID = m.InternalID
	incident.LastUpdateDate = issue.UpdatedAt
	incident.ClosedDate = issue.ClosedAt

	if issue.Priority != "" {
		if m := mapping.FindByExternalKey(p.projectID, issue.Priority, p.snap.priorities, false); m != nil {
			incident.PriorityID = m.InternalID
		}
	}
	if issue.Severity != "" {
		if m := mapping.FindByExternalKey(p.projectID, issue.Severity, p.snap.severities, false); m != nil {
			incident.SeverityID = m.InternalID
		}
	}
	if issue.Assignee != "" {
		if m := mapping.FindGlobalByExternalKey(issue.Assignee, p.snap.users); m != nil {
			incident.OwnerID = m.InternalID
		}
	}

	for key, value := range p.customFieldsToInternal(issue) {
		if incident.CustomProperties == nil {
			incident.CustomProperties = make(map[string]string)
		}
		incident.CustomProperties[key] = value
	}

	return ""
}

// toNewRemoteIssue builds an external issue from a new incident.
func (p *pass) toNewRemoteIssue(incident *models.Incident) (*models.NewRemoteIssue, string) {
	issue := &models.NewRemoteIssue{
		Name:        incident.Name,
		Description: incident.Description,
	}

	m := mapping.FindByInternalID(p.projectID, incident.StatusID, p.snap.statuses)
	if m == nil {
		return nil, fmt.Sprintf("no status mapping for internal id %d", incident.StatusID)
	}
	issue.Status = m.ExternalKey

	if m := mapping.FindByInternalID(p.projectID, incident.TypeID, p.snap.types); m != nil {
		issue.Type = m.ExternalKey
	}
	if incident.PriorityID != 0 {
		if m := mapping.FindByInternalID(p.projectID, incident.PriorityID, p.snap.priorities); m != nil {
			issue.Priority = m.ExternalKey
		} else {
			p.logger.Warn().Int("incident", incident.ID).Int("priority_id", incident.PriorityID).Msg("No priority mapping, leaving unset")
		}
	}
	if incident.SeverityID != 0 {
		if m := mapping.FindByInternalID(p.projectID, incident.SeverityID, p.snap.severities); m != nil {
			issue.Severity = m.ExternalKey
		} else {
			p.logger.Warn().Int("incident", incident.ID).Int("severity_id", incident.SeverityID).Msg("No severity mapping, leaving unset")
		}
	}
	if incident.OwnerID != 0 {
		if m := mapping.FindGlobalByInternalID(incident.OwnerID, p.snap.users); m != nil {
			issue.Assignee = m.ExternalKey
		} else {
			p.logger.Warn().Int("incident", incident.ID).Int("owner_id", incident.OwnerID).Msg("No user mapping for owner, leaving unset")
		}
	}
	if incident.DetectedReleaseID != 0 {
		if m := mapping.FindByInternalID(p.projectID, incident.DetectedReleaseID, p.snap.releases); m != nil {
			issue.Version = m.ExternalKey
		}
	}

	issue.CustomFields = p.customFieldsToExternal(incident)

	return issue, ""
}

// toRemoteIssueUpdate builds the update payload for an already-mapped
// incident.
func (p *pass) toRemoteIssueUpdate(incident *models.Incident) (*models.RemoteIssue, string) {
	issue := &models.RemoteIssue{
		Name:        incident.Name,
		Description: incident.Description,
		UpdatedAt:   incident.LastUpdateDate,
	}

	m := mapping.FindByInternalID(p.projectID, incident.StatusID, p.snap.statuses)
	if m == nil {
		return nil, fmt.Sprintf("no status mapping for internal id %d", incident.StatusID)
	}
	issue.Status = m.ExternalKey

	if incident.PriorityID != 0 {
		if m := mapping.FindByInternalID(p.projectID, incident.PriorityID, p.snap.priorities); m != nil {
			issue.Priority = m.ExternalKey
		}
	}
	if incident.SeverityID != 0 {
		if m := mapping.FindByInternalID(p.projectID, incident.SeverityID, p.snap.severities); m != nil {
			issue.Severity = m.ExternalKey
		}
	}
	if incident.OwnerID != 0 {
		if m := mapping.FindGlobalByInternalID(incident.OwnerID, p.snap.users); m != nil {
			issue.Assignee = m.ExternalKey
		}
	}

	issue.CustomFields = p.customFieldsToExternal(incident)

	return issue, ""
}

// resolveReleaseID maps a tracker version string to a release id,
// auto-provisioning the release when no mapping exists. Returns zero when
// the version is empty or provisioning fails; callers treat the field as
// optional.
func (p *pass) resolveReleaseID(ctx context.Context, version string) int {
	if version == "" {
		return 0
	}

	if m := mapping.FindByExternalKey(p.projectID, version, p.snap.releases, false); m != nil {
		return m.InternalID
	}

	release := p.findExistingRelease(ctx, version)
	if release == nil {
		created, err := p.client.CreateRelease(ctx, &models.Release{
			ProjectID:     p.projectID,
			Name:          version,
			VersionNumber: version,
			Active:        true,
		})
		if err != nil {
			p.logger.Warn().Err(err).Str("version", version).Msg("Failed to auto-provision release, leaving unset")
			return 0
		}
		p.logger.Info().Str("version", version).Int("release_id", created.ID).Msg("Auto-provisioned release for tracker version")
		release = created
	}

	newMapping := models.DataMapping{
		ProjectID:   p.projectID,
		InternalID:  release.ID,
		ExternalKey: version,
		IsPrimary:   true,
	}
	p.journal.Add(models.MappingTableReleases, newMapping)
	p.snap.releases = append(p.snap.releases, newMapping)

	return release.ID
}

// findExistingRelease checks the server for a release matching the version
// by name. A release can exist without a mapping, for example when created
// by hand, and reusing it beats creating a duplicate.
func (p *pass) findExistingRelease(ctx context.Context, version string) *models.Release {
	releases, err := p.client.ListReleases(ctx, p.projectID)
	if err != nil {
		p.logger.Warn().Err(err).Str("version", version).Msg("Failed to list releases")
		return nil
	}
	for i := range releases {
		if releases[i].Name == version || releases[i].VersionNumber == version {
			return &releases[i]
		}
	}
	return nil
}

// customFieldsToInternal translates tracker custom fields into custom
// property values. List properties resolve through the custom-property
// mapping table; text properties copy verbatim. An unmapped list value is
// logged and dropped.
func (p *pass) customFieldsToInternal(issue *models.RemoteIssue) map[string]string {
	if len(issue.CustomFields) == 0 {
		return nil
	}

	result := make(map[string]string)
	for _, prop := range p.snap.props {
		value, ok := issue.CustomFields[prop.Name]
		if !ok || value == "" {
			continue
		}

		if !prop.IsList {
			result[prop.PropertyNumber] = value
			continue
		}

		if m := mapping.FindByExternalKey(p.projectID, value, p.snap.custom, false); m != nil {
			result[prop.PropertyNumber] = strconv.Itoa(m.InternalID)
		} else {
			p.logger.Warn().
				Str("property", prop.Name).
				Str("value", value).
				Msg("No custom value mapping, dropping field")
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// customFieldsToExternal is the reverse translation for export.
func (p *pass) customFieldsToExternal(incident *models.Incident) map[string]string {
	if len(incident.CustomProperties) == 0 {
		return nil
	}

	result := make(map[string]string)
	for _, prop := range p.snap.props {
		value, ok := incident.CustomProperties[prop.PropertyNumber]
		if !ok || value == "" {
			continue
		}

		if !prop.IsList {
			result[prop.Name] = value
			continue
		}

		internalID, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		if m := mapping.FindByInternalID(p.projectID, internalID, p.snap.custom); m != nil {
			result[prop.Name] = m.ExternalKey
		} else {
			p.logger.Warn().
				Str("property", prop.Name).
				Int("value_id", internalID).
				Msg("No custom value mapping, dropping field")
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
