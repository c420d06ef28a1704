// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
)

// CreateTeamRequest holds the fields for creating a team. Maintainers
// become team maintainers at creation time.
type CreateTeamRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Maintainers []string `json:"maintainers,omitempty"`
	Privacy     string   `json:"privacy,omitempty"`
}

// GetTeam fetches a team by slug.
func (client *Client) GetTeam(ctx context.Context, org, slug string) (*Team, error) {
	var team Team
	if err := client.get(ctx, fmt.Sprintf("/orgs/%s/teams/%s", org, slug), &team); err != nil {
		return nil, fmt.Errorf("getting team %s/%s: %w", org, slug, err)
	}
	return &team, nil
}

// CreateTeam creates a team. Returns a 422 *APIError when the name is
// taken.
func (client *Client) CreateTeam(ctx context.Context, org string, request CreateTeamRequest) (*Team, error) {
	var team Team
	if err := client.post(ctx, fmt.Sprintf("/orgs/%s/teams", org), request, &team); err != nil {
		return nil, fmt.Errorf("creating team %s in %s: %w", request.Name, org, err)
	}
	return &team, nil
}

// DeleteTeam deletes a team and all of its memberships.
func (client *Client) DeleteTeam(ctx context.Context, org, slug string) error {
	if err := client.delete(ctx, fmt.Sprintf("/orgs/%s/teams/%s", org, slug)); err != nil {
		return fmt.Errorf("deleting team %s/%s: %w", org, slug, err)
	}
	return nil
}

// AddOrUpdateTeamMembership adds username to the team with the given
// role ("member" or "maintainer"), inviting them to the organization
// first when needed.
func (client *Client) AddOrUpdateTeamMembership(ctx context.Context, org, slug, username, role string) (*TeamMembership, error) {
	var membership TeamMembership
	path := fmt.Sprintf("/orgs/%s/teams/%s/memberships/%s", org, slug, username)
	if err := client.put(ctx, path, map[string]string{"role": role}, &membership); err != nil {
		return nil, fmt.Errorf("adding %s to team %s/%s: %w", username, org, slug, err)
	}
	return &membership, nil
}

// GetTeamMembership fetches username's membership in the team.
func (client *Client) GetTeamMembership(ctx context.Context, org, slug, username string) (*TeamMembership, error) {
	var membership TeamMembership
	path := fmt.Sprintf("/orgs/%s/teams/%s/memberships/%s", org, slug, username)
	if err := client.get(ctx, path, &membership); err != nil {
		return nil, fmt.Errorf("getting team membership of %s in %s/%s: %w", username, org, slug, err)
	}
	return &membership, nil
}

// RemoveTeamMembership removes username from the team.
func (client *Client) RemoveTeamMembership(ctx context.Context, org, slug, username string) error {
	path := fmt.Sprintf("/orgs/%s/teams/%s/memberships/%s", org, slug, username)
	if err := client.delete(ctx, path); err != nil {
		return fmt.Errorf("removing %s from team %s/%s: %w", username, org, slug, err)
	}
	return nil
}

// ListTeamMembers returns every active member of the team.
func (client *Client) ListTeamMembers(ctx context.Context, org, slug string) ([]User, error) {
	var q query
	q.setInt("per_page", 100)
	members, err := list[User](client, q.path(fmt.Sprintf("/orgs/%s/teams/%s/members", org, slug))).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing members of team %s/%s: %w", org, slug, err)
	}
	return members, nil
}

// AddOrUpdateTeamRepoPermission grants the team permission ("pull",
// "triage", "push", "maintain", or "admin") on owner/repo.
func (client *Client) AddOrUpdateTeamRepoPermission(ctx context.Context, org, slug, owner, repo, permission string) error {
	path := fmt.Sprintf("/orgs/%s/teams/%s/repos/%s/%s", org, slug, owner, repo)
	if err := client.put(ctx, path, map[string]string{"permission": permission}, nil); err != nil {
		return fmt.Errorf("granting team %s/%s %s on %s/%s: %w", org, slug, permission, owner, repo, err)
	}
	return nil
}
