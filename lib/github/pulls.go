// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// CreatePullRequestRequest holds the fields for opening a pull request.
type CreatePullRequestRequest struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Head  string `json:"head"`
	Base  string `json:"base"`
}

// ListPullRequestsOptions filters ListPullRequests.
type ListPullRequestsOptions struct {
	State string // "open", "closed", "all" (default: "open")
	Head  string // "owner:branch"
	Base  string
}

// CreatePullRequest opens a pull request.
func (client *Client) CreatePullRequest(ctx context.Context, owner, repo string, request CreatePullRequestRequest) (*PullRequest, error) {
	var pullRequest PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", owner, repo)
	if err := client.post(ctx, path, request, &pullRequest); err != nil {
		return nil, fmt.Errorf("opening pull request %s -> %s in %s/%s: %w", request.Head, request.Base, owner, repo, err)
	}
	return &pullRequest, nil
}

// ListPullRequests returns every pull request matching options.
func (client *Client) ListPullRequests(ctx context.Context, owner, repo string, options ListPullRequestsOptions) ([]PullRequest, error) {
	var q query
	q.set("state", options.State)
	q.set("head", options.Head)
	q.set("base", options.Base)
	q.setInt("per_page", 100)
	pullRequests, err := list[PullRequest](client, q.path(fmt.Sprintf("/repos/%s/%s/pulls", owner, repo))).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests in %s/%s: %w", owner, repo, err)
	}
	return pullRequests, nil
}
