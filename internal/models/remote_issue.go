package models

import "time"

// RemoteIssue is the typed payload exchanged with an external bug tracker.
// Every connector maps its native wire format into this shape so the sync
// pass never handles tracker-specific types.
type RemoteIssue struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`

	Status   string `json:"status"`
	Type     string `json:"type,omitempty"`
	Priority string `json:"priority,omitempty"`
	Severity string `json:"severity,omitempty"`

	Assignee string `json:"assignee,omitempty"`
	Reporter string `json:"reporter,omitempty"`

	DetectedVersion string `json:"detected_version,omitempty"`
	ResolvedVersion string `json:"resolved_version,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	Comments     []RemoteComment    `json:"comments,omitempty"`
	Attachments  []RemoteAttachment `json:"attachments,omitempty"`
	CustomFields map[string]string  `json:"custom_fields,omitempty"`
}

// RemoteComment is a comment on an external issue.
type RemoteComment struct {
	Author    string    `json:"author,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// RemoteAttachment is attachment metadata on an external issue. The file
// content stays on the tracker; only metadata and the download URL cross.
type RemoteAttachment struct {
	Filename  string    `json:"filename"`
	URL       string    `json:"url,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// NewRemoteIssue is a RemoteIssue being created in the external tracker,
// before the tracker has assigned it a key.
type NewRemoteIssue struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Status       string            `json:"status,omitempty"`
	Type         string            `json:"type,omitempty"`
	Priority     string            `json:"priority,omitempty"`
	Severity     string            `json:"severity,omitempty"`
	Assignee     string            `json:"assignee,omitempty"`
	Version      string            `json:"version,omitempty"`
	Labels       []string          `json:"labels,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}
