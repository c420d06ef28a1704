// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import "time"

// User is a GitHub account reference.
type User struct {
	Login   string `json:"login"`
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
	Email   string `json:"email,omitempty"`
}

// Label is an issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Repository is a GitHub repository.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Owner         User   `json:"owner"`
	Private       bool   `json:"private"`
	Description   string `json:"description"`
	Homepage      string `json:"homepage"`
	HTMLURL       string `json:"html_url"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
	// Size is reported in kilobytes; zero until the first push lands.
	Size int `json:"size"`
}

// RepositoryBranch is one branch of a repository.
type RepositoryBranch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
	Protected bool `json:"protected"`
}

// Environment is a deployment environment.
type Environment struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// PagesSite is a repository's GitHub Pages configuration.
type PagesSite struct {
	URL       string `json:"url"`
	HTMLURL   string `json:"html_url"`
	BuildType string `json:"build_type"`
	Status    string `json:"status"`
}

// Team is an organization team.
type Team struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
	HTMLURL     string `json:"html_url"`
}

// TeamMembership is a user's membership in a team. Role is "member" or
// "maintainer"; State is "active" or "pending".
type TeamMembership struct {
	Role  string `json:"role"`
	State string `json:"state"`
}

// OrgMembership is a user's membership in an organization. State is
// "active" or "pending"; Role is "admin", "member", or
// "billing_manager".
type OrgMembership struct {
	State string `json:"state"`
	Role  string `json:"role"`
	User  User   `json:"user"`
}

// Invitation is a pending organization invitation.
type Invitation struct {
	ID        int64     `json:"id"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Issue is a GitHub issue. PullRequest is non-nil when the issues API
// returned a pull request.
type Issue struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	State       string     `json:"state"`
	StateReason string     `json:"state_reason,omitempty"`
	HTMLURL     string     `json:"html_url"`
	User        User       `json:"user"`
	Labels      []Label    `json:"labels"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request,omitempty"`
}

// HasLabel reports whether the issue carries the named label.
func (issue *Issue) HasLabel(name string) bool {
	for _, label := range issue.Labels {
		if label.Name == name {
			return true
		}
	}
	return false
}

// Comment is an issue comment.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	HTMLURL   string    `json:"html_url"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Branch is one end of a pull request.
type Branch struct {
	Label string `json:"label"`
	Ref   string `json:"ref"`
	SHA   string `json:"sha"`
}

// PullRequest is a GitHub pull request.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	User    User   `json:"user"`
	Head    Branch `json:"head"`
	Base    Branch `json:"base"`
}

// UserIdentity is the identity data the GraphQL API exposes for a
// login: the public email (empty when hidden) and whether the account
// belongs to a GitHub employee.
type UserIdentity struct {
	Login      string `json:"login"`
	Email      string `json:"email"`
	IsEmployee bool   `json:"isEmployee"`
}
