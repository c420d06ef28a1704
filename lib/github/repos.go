// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"net/url"
)

// CreateFromTemplateRequest holds the fields for generating a
// repository from a template.
type CreateFromTemplateRequest struct {
	Owner              string `json:"owner"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	IncludeAllBranches bool   `json:"include_all_branches"`
	Private            bool   `json:"private"`
}

// UpdateRepositoryRequest holds the repository metadata fields the
// classroom edits. Nil fields are left unchanged.
type UpdateRepositoryRequest struct {
	Description *string `json:"description,omitempty"`
	Homepage    *string `json:"homepage,omitempty"`
}

// CreatePagesRequest configures a GitHub Pages site. BuildType is
// "workflow" or "legacy".
type CreatePagesRequest struct {
	BuildType string `json:"build_type"`
}

// GetRepository fetches a repository.
func (client *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var repository Repository
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	if err := client.get(ctx, path, &repository); err != nil {
		return nil, fmt.Errorf("getting repository %s/%s: %w", owner, repo, err)
	}
	return &repository, nil
}

// CreateRepositoryFromTemplate generates a new repository from
// templateOwner/templateRepo.
func (client *Client) CreateRepositoryFromTemplate(ctx context.Context, templateOwner, templateRepo string, request CreateFromTemplateRequest) (*Repository, error) {
	var repository Repository
	path := fmt.Sprintf("/repos/%s/%s/generate", templateOwner, templateRepo)
	if err := client.post(ctx, path, request, &repository); err != nil {
		return nil, fmt.Errorf("creating %s/%s from template %s/%s: %w", request.Owner, request.Name, templateOwner, templateRepo, err)
	}
	return &repository, nil
}

// DeleteRepository deletes a repository.
func (client *Client) DeleteRepository(ctx context.Context, owner, repo string) error {
	if err := client.delete(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo)); err != nil {
		return fmt.Errorf("deleting repository %s/%s: %w", owner, repo, err)
	}
	return nil
}

// UpdateRepository edits repository metadata.
func (client *Client) UpdateRepository(ctx context.Context, owner, repo string, request UpdateRepositoryRequest) (*Repository, error) {
	var repository Repository
	path := fmt.Sprintf("/repos/%s/%s", owner, repo)
	if err := client.patch(ctx, path, request, &repository); err != nil {
		return nil, fmt.Errorf("updating repository %s/%s: %w", owner, repo, err)
	}
	return &repository, nil
}

// GetBranch fetches one branch. A repository generated from a template
// answers 404 here until its initial commit has landed.
func (client *Client) GetBranch(ctx context.Context, owner, repo, branch string) (*RepositoryBranch, error) {
	var result RepositoryBranch
	path := fmt.Sprintf("/repos/%s/%s/branches/%s", owner, repo, url.PathEscape(branch))
	if err := client.get(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("getting branch %s of %s/%s: %w", branch, owner, repo, err)
	}
	return &result, nil
}

// CreateOrUpdateEnvironment ensures a deployment environment exists.
func (client *Client) CreateOrUpdateEnvironment(ctx context.Context, owner, repo, name string) (*Environment, error) {
	var environment Environment
	path := fmt.Sprintf("/repos/%s/%s/environments/%s", owner, repo, url.PathEscape(name))
	if err := client.put(ctx, path, struct{}{}, &environment); err != nil {
		return nil, fmt.Errorf("creating environment %s in %s/%s: %w", name, owner, repo, err)
	}
	return &environment, nil
}

// CreatePagesSite enables GitHub Pages. Returns a 409 *APIError when a
// site already exists.
func (client *Client) CreatePagesSite(ctx context.Context, owner, repo string, request CreatePagesRequest) (*PagesSite, error) {
	var site PagesSite
	path := fmt.Sprintf("/repos/%s/%s/pages", owner, repo)
	if err := client.post(ctx, path, request, &site); err != nil {
		return nil, fmt.Errorf("creating pages site for %s/%s: %w", owner, repo, err)
	}
	return &site, nil
}

// GetPagesSite fetches the GitHub Pages configuration.
func (client *Client) GetPagesSite(ctx context.Context, owner, repo string) (*PagesSite, error) {
	var site PagesSite
	path := fmt.Sprintf("/repos/%s/%s/pages", owner, repo)
	if err := client.get(ctx, path, &site); err != nil {
		return nil, fmt.Errorf("getting pages site for %s/%s: %w", owner, repo, err)
	}
	return &site, nil
}

// SearchRepositories returns every repository matching a search query,
// for example `gh-int-na1- in:name org:githubschool`. Search results
// are eventually consistent and match on tokens, so callers filter
// names themselves.
func (client *Client) SearchRepositories(ctx context.Context, searchQuery string) ([]Repository, error) {
	var q query
	q.set("q", searchQuery)
	q.setInt("per_page", 100)
	repositories, err := listItems[Repository](client, q.path("/search/repositories")).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching repositories for %q: %w", searchQuery, err)
	}
	return repositories, nil
}
