package models

import (
	"errors"
	"time"
)

// TrackerType defines the kind of external bug tracker.
type TrackerType string

const (
	TrackerTypeGitHub TrackerType = "github"
	TrackerTypeREST   TrackerType = "rest"
)

// TrackerDefinition is an external bug tracker configuration, loaded from a
// TOML or YAML file in the trackers directory and persisted for the API.
type TrackerDefinition struct {
	ID       string      `json:"id" toml:"id" yaml:"id" validate:"required"`
	Name     string      `json:"name" toml:"name" yaml:"name"`
	Type     TrackerType `json:"type" toml:"type" yaml:"type" validate:"required,oneof=github rest"`
	Enabled  bool        `json:"enabled" toml:"enabled" yaml:"enabled"`
	Projects []int       `json:"projects" toml:"projects" yaml:"projects" validate:"min=1"`

	GitHub *GitHubTrackerConfig `json:"github,omitempty" toml:"github" yaml:"github"`
	REST   *RESTTrackerConfig   `json:"rest,omitempty" toml:"rest" yaml:"rest"`

	CreatedAt time.Time `json:"created_at,omitempty" toml:"-" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty" toml:"-" yaml:"-"`
}

// GitHubTrackerConfig configures a GitHub Issues tracker.
type GitHubTrackerConfig struct {
	Owner string `json:"owner" toml:"owner" yaml:"owner" validate:"required"`
	Repo  string `json:"repo" toml:"repo" yaml:"repo" validate:"required"`
	Token string `json:"-" toml:"token" yaml:"token" validate:"required"`
}

// RESTTrackerConfig configures a generic JSON/REST tracker.
type RESTTrackerConfig struct {
	BaseURL  string `json:"base_url" toml:"base_url" yaml:"base_url" validate:"required,url"`
	Username string `json:"username,omitempty" toml:"username" yaml:"username"`
	APIKey   string `json:"-" toml:"api_key" yaml:"api_key"`
}

// Validate checks that the type-specific section matching Type is present.
// Field-level constraints are enforced separately by the validator.
func (d *TrackerDefinition) Validate() error {
	switch d.Type {
	case TrackerTypeGitHub:
		if d.GitHub == nil {
			return errors.New("github tracker requires a [github] section")
		}
	case TrackerTypeREST:
		if d.REST == nil {
			return errors.New("rest tracker requires a [rest] section")
		}
	default:
		return errors.New("unknown tracker type: " + string(d.Type))
	}
	return nil
}
