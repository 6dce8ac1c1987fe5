package github

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/nexo/internal/interfaces"
	"github.com/ternarybob/nexo/internal/models"
	"golang.org/x/oauth2"
)

// Connector implements interfaces.TrackerConnector for GitHub Issues.
type Connector struct {
	id     string
	owner  string
	repo   string
	client *github.Client
}

// NewConnector creates a GitHub connector from a tracker definition.
func NewConnector(def *models.TrackerDefinition) (*Connector, error) {
	if def.Type != models.TrackerTypeGitHub {
		return nil, fmt.Errorf("invalid tracker type: %s", def.Type)
	}
	if def.GitHub == nil {
		return nil, fmt.Errorf("tracker %s has no github configuration", def.ID)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: def.GitHub.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &Connector{
		id:     def.ID,
		owner:  def.GitHub.Owner,
		repo:   def.GitHub.Repo,
		client: github.NewClient(tc),
	}, nil
}

// ID returns the tracker definition id
func (c *Connector) ID() string {
	return c.id
}

// Type returns the connector type
func (c *Connector) Type() models.TrackerType {
	return models.TrackerTypeGitHub
}

// TestConnection verifies the token works by getting the authenticated user
func (c *Connector) TestConnection(ctx context.Context) error {
	_, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return fmt.Errorf("github connection test failed: %w", err)
	}
	return nil
}

// GetNewIssues returns issues created after since.
func (c *Connector) GetNewIssues(ctx context.Context, since time.Time) ([]models.RemoteIssue, error) {
	issues, err := c.listIssues(ctx, since)
	if err != nil {
		return nil, err
	}

	var result []models.RemoteIssue
	for _, issue := range issues {
		if issue.CreatedAt == nil || !issue.CreatedAt.After(since) {
			continue
		}
		remote := c.toRemoteIssue(issue)
		if issue.GetComments() > 0 {
			comments, err := c.fetchComments(ctx, issue.GetNumber())
			if err != nil {
				return nil, err
			}
			remote.Comments = comments
		}
		result = append(result, remote)
	}
	return result, nil
}

// GetUpdatedIssues returns issues modified after since but created before it.
func (c *Connector) GetUpdatedIssues(ctx context.Context, since time.Time) ([]models.RemoteIssue, error) {
	issues, err := c.listIssues(ctx, since)
	if err != nil {
		return nil, err
	}

	var result []models.RemoteIssue
	for _, issue := range issues {
		if issue.CreatedAt != nil && issue.CreatedAt.After(since) {
			continue
		}
		remote := c.toRemoteIssue(issue)
		if issue.GetComments() > 0 {
			comments, err := c.fetchComments(ctx, issue.GetNumber())
			if err != nil {
				return nil, err
			}
			remote.Comments = comments
		}
		result = append(result, remote)
	}
	return result, nil
}

// listIssues pages through issues updated since the watermark. Pull requests
// share the issues endpoint and are filtered out.
func (c *Connector) listIssues(ctx context.Context, since time.Time) ([]*github.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Since:       since,
		Sort:        "updated",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var all []*github.Issue
	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues for %s/%s: %w", c.owner, c.repo, err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			all = append(all, issue)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// GetIssue fetches a single issue by its number.
func (c *Connector) GetIssue(ctx context.Context, key string) (*models.RemoteIssue, error) {
	number, err := strconv.Atoi(key)
	if err != nil {
		return nil, fmt.Errorf("invalid github issue key %q: %w", key, err)
	}

	issue, _, err := c.client.Issues.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", key, err)
	}

	remote := c.toRemoteIssue(issue)
	if issue.GetComments() > 0 {
		comments, err := c.fetchComments(ctx, number)
		if err != nil {
			return nil, err
		}
		remote.Comments = comments
	}
	return &remote, nil
}

// fetchComments pages through the comments of one issue.
func (c *Connector) fetchComments(ctx context.Context, number int) ([]models.RemoteComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var result []models.RemoteComment
	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments for issue %d: %w", number, err)
		}
		for _, comment := range comments {
			remote := models.RemoteComment{
				Author: comment.GetUser().GetLogin(),
				Body:   comment.GetBody(),
			}
			if comment.CreatedAt != nil {
				remote.CreatedAt = comment.CreatedAt.Time
			}
			result = append(result, remote)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return result, nil
}

// CreateIssue creates an issue and returns its number as the external key.
func (c *Connector) CreateIssue(ctx context.Context, issue *models.NewRemoteIssue) (string, error) {
	req := &github.IssueRequest{
		Title: github.String(issue.Name),
		Body:  github.String(issue.Description),
	}
	labels := issue.Labels
	if issue.Priority != "" {
		labels = append(labels, "priority:"+issue.Priority)
	}
	if issue.Severity != "" {
		labels = append(labels, "severity:"+issue.Severity)
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	if issue.Assignee != "" {
		req.Assignee = github.String(issue.Assignee)
	}

	created, _, err := c.client.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil {
		return "", fmt.Errorf("failed to create issue: %w", err)
	}
	return strconv.Itoa(created.GetNumber()), nil
}

// UpdateIssue applies name, description, state, and assignee changes.
func (c *Connector) UpdateIssue(ctx context.Context, key string, issue *models.RemoteIssue) error {
	number, err := strconv.Atoi(key)
	if err != nil {
		return fmt.Errorf("invalid github issue key %q: %w", key, err)
	}

	req := &github.IssueRequest{
		Title: github.String(issue.Name),
		Body:  github.String(issue.Description),
	}
	if issue.Status != "" {
		req.State = github.String(issue.Status)
	}
	if issue.Assignee != "" {
		req.Assignee = github.String(issue.Assignee)
	}

	if _, _, err := c.client.Issues.Edit(ctx, c.owner, c.repo, number, req); err != nil {
		return fmt.Errorf("failed to update issue %s: %w", key, err)
	}
	return nil
}

// AddComment appends a comment to an issue.
func (c *Connector) AddComment(ctx context.Context, key string, comment *models.RemoteComment) error {
	number, err := strconv.Atoi(key)
	if err != nil {
		return fmt.Errorf("invalid github issue key %q: %w", key, err)
	}

	body := comment.Body
	if comment.Author != "" {
		body = fmt.Sprintf("*%s wrote:*\n\n%s", comment.Author, comment.Body)
	}

	_, _, err = c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on issue %s: %w", key, err)
	}
	return nil
}

// toRemoteIssue maps a GitHub issue into the tracker-agnostic shape. GitHub
// has no native priority or severity; both come from labels of the form
// "priority:high" / "severity:critical", and the milestone stands in for the
// detected version.
func (c *Connector) toRemoteIssue(issue *github.Issue) models.RemoteIssue {
	remote := models.RemoteIssue{
		Key:         strconv.Itoa(issue.GetNumber()),
		Name:        issue.GetTitle(),
		Description: issue.GetBody(),
		Status:      issue.GetState(),
		Assignee:    issue.GetAssignee().GetLogin(),
		Reporter:    issue.GetUser().GetLogin(),
	}

	if issue.CreatedAt != nil {
		remote.CreatedAt = issue.CreatedAt.Time
	}
	if issue.UpdatedAt != nil {
		remote.UpdatedAt = issue.UpdatedAt.Time
	}
	if issue.ClosedAt != nil {
		closed := issue.ClosedAt.Time
		remote.ClosedAt = &closed
	}
	if issue.Milestone != nil {
		remote.DetectedVersion = issue.Milestone.GetTitle()
	}

	for _, label := range issue.Labels {
		name := label.GetName()
		switch {
		case len(name) > 9 && name[:9] == "priority:":
			remote.Priority = name[9:]
		case len(name) > 9 && name[:9] == "severity:":
			remote.Severity = name[9:]
		}
	}

	return remote
}

// Ensure interface compliance
var _ interfaces.TrackerConnector = (*Connector)(nil)
