// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"strings"
)

// UpdateIssueRequest holds the issue fields to change. Nil fields are
// left unchanged. StateReason is "completed", "not_planned", or
// "reopened".
type UpdateIssueRequest struct {
	Body        *string `json:"body,omitempty"`
	State       *string `json:"state,omitempty"`
	StateReason *string `json:"state_reason,omitempty"`
}

// ListIssuesOptions filters ListIssues.
type ListIssuesOptions struct {
	State   string   // "open", "closed", "all" (default: "open")
	Labels  []string // issues must carry every label
	PerPage int      // results per page (max 100)
}

// GetIssue fetches an issue.
func (client *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number)
	if err := client.get(ctx, path, &issue); err != nil {
		return nil, fmt.Errorf("getting issue %s/%s#%d: %w", owner, repo, number, err)
	}
	return &issue, nil
}

// ListIssues returns every issue matching options, following
// pagination. The issues API includes pull requests; check
// Issue.PullRequest to tell them apart.
func (client *Client) ListIssues(ctx context.Context, owner, repo string, options ListIssuesOptions) ([]Issue, error) {
	var q query
	q.set("state", options.State)
	q.set("labels", strings.Join(options.Labels, ","))
	q.setInt("per_page", options.PerPage)
	issues, err := list[Issue](client, q.path(fmt.Sprintf("/repos/%s/%s/issues", owner, repo))).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing issues in %s/%s: %w", owner, repo, err)
	}
	return issues, nil
}

// UpdateIssue edits an issue.
func (client *Client) UpdateIssue(ctx context.Context, owner, repo string, number int, request UpdateIssueRequest) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number)
	if err := client.patch(ctx, path, request, &issue); err != nil {
		return nil, fmt.Errorf("updating issue %s/%s#%d: %w", owner, repo, number, err)
	}
	return &issue, nil
}

// CreateIssueComment posts a comment on an issue.
func (client *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*Comment, error) {
	var comment Comment
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	if err := client.post(ctx, path, map[string]string{"body": body}, &comment); err != nil {
		return nil, fmt.Errorf("commenting on %s/%s#%d: %w", owner, repo, number, err)
	}
	return &comment, nil
}

// AddLabels adds labels to an issue, keeping the existing ones.
func (client *Client) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", owner, repo, number)
	if err := client.post(ctx, path, map[string][]string{"labels": labels}, nil); err != nil {
		return fmt.Errorf("labelling %s/%s#%d: %w", owner, repo, number, err)
	}
	return nil
}
