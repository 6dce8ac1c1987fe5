package models

import "time"

// Incident represents a defect record in the test-management system.
type Incident struct {
	ID          int    `json:"id"`
	ProjectID   int    `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	StatusID   int `json:"status_id"`
	TypeID     int `json:"type_id"`
	PriorityID int `json:"priority_id,omitempty"`
	SeverityID int `json:"severity_id,omitempty"`

	OpenerID int `json:"opener_id,omitempty"`
	OwnerID  int `json:"owner_id,omitempty"`

	DetectedReleaseID int `json:"detected_release_id,omitempty"`
	ResolvedReleaseID int `json:"resolved_release_id,omitempty"`

	CreationDate    time.Time  `json:"creation_date"`
	LastUpdateDate  time.Time  `json:"last_update_date"`
	ClosedDate      *time.Time `json:"closed_date,omitempty"`
	ConcurrencyDate time.Time  `json:"concurrency_date,omitempty"`

	// Custom property values keyed by property number, holding the internal
	// value id for list properties or the literal text for text properties.
	CustomProperties map[string]string `json:"custom_properties,omitempty"`
}

// IncidentComment represents a resolution/comment entry on an incident.
type IncidentComment struct {
	ID           int       `json:"id,omitempty"`
	IncidentID   int       `json:"incident_id"`
	CreatorID    int       `json:"creator_id,omitempty"`
	Text         string    `json:"text"`
	CreationDate time.Time `json:"creation_date"`
}

// IncidentAttachment describes a file attached to an incident. Content is
// carried separately; the sync only mirrors metadata and a download URL.
type IncidentAttachment struct {
	ID         int    `json:"id,omitempty"`
	IncidentID int    `json:"incident_id"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size,omitempty"`
	AuthorID   int    `json:"author_id,omitempty"`
	URL        string `json:"url,omitempty"`
}
