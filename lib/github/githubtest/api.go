// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package githubtest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bureau-foundation/classroom/lib/github"
)

// --- repositories ---

func (fake *Fake) GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetRepository", repo); err != nil {
		return nil, err
	}
	entry, ok := fake.repositories[repoKey(owner, repo)]
	if !ok {
		return nil, notFound("Repository")
	}
	repository := entry.repository
	return &repository, nil
}

func (fake *Fake) CreateRepositoryFromTemplate(ctx context.Context, templateOwner, templateRepo string, request github.CreateFromTemplateRequest) (*github.Repository, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("CreateRepositoryFromTemplate", request.Name); err != nil {
		return nil, err
	}
	if _, ok := fake.repositories[repoKey(request.Owner, request.Name)]; ok {
		return nil, &github.APIError{StatusCode: 422, Message: "Validation Failed", Errors: []github.ValidationError{
			{Resource: "Repository", Field: "name", Message: "name already exists on this account"},
		}}
	}
	entry := fake.addRepositoryLocked(request.Owner, request.Name, fake.NotReadyPolls)
	entry.repository.Private = request.Private
	entry.repository.Description = request.Description
	repository := entry.repository
	return &repository, nil
}

func (fake *Fake) DeleteRepository(ctx context.Context, owner, repo string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("DeleteRepository", repo); err != nil {
		return err
	}
	if _, ok := fake.repositories[repoKey(owner, repo)]; !ok {
		return notFound("Repository")
	}
	delete(fake.repositories, repoKey(owner, repo))
	return nil
}

func (fake *Fake) UpdateRepository(ctx context.Context, owner, repo string, request github.UpdateRepositoryRequest) (*github.Repository, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("UpdateRepository", repo); err != nil {
		return nil, err
	}
	entry, ok := fake.repositories[repoKey(owner, repo)]
	if !ok {
		return nil, notFound("Repository")
	}
	if request.Description != nil {
		entry.repository.Description = *request.Description
	}
	if request.Homepage != nil {
		entry.repository.Homepage = *request.Homepage
	}
	repository := entry.repository
	return &repository, nil
}

func (fake *Fake) GetBranch(ctx context.Context, owner, repo, branch string) (*github.RepositoryBranch, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetBranch", repo); err != nil {
		return nil, err
	}
	entry, ok := fake.repositories[repoKey(owner, repo)]
	if !ok || branch != entry.repository.DefaultBranch {
		return nil, notFound("Branch")
	}
	if entry.pendingPolls > 0 {
		entry.pendingPolls--
		return nil, notFound("Branch")
	}
	result := &github.RepositoryBranch{Name: branch}
	result.Commit.SHA = fmt.Sprintf("%040d", entry.repository.ID)
	return result, nil
}

func (fake *Fake) CreateOrUpdateEnvironment(ctx context.Context, owner, repo, name string) (*github.Environment, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("CreateOrUpdateEnvironment", repo); err != nil {
		return nil, err
	}
	entry, ok := fake.repositories[repoKey(owner, repo)]
	if !ok {
		return nil, notFound("Repository")
	}
	entry.environments[name] = true
	return &github.Environment{Name: name}, nil
}

func (fake *Fake) CreatePagesSite(ctx context.Context, owner, repo string, request github.CreatePagesRequest) (*github.PagesSite, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("CreatePagesSite", repo); err != nil {
		return nil, err
	}
	entry, ok := fake.repositories[repoKey(owner, repo)]
	if !ok {
		return nil, notFound("Repository")
	}
	if entry.pages != nil {
		return nil, &github.APIError{StatusCode: 409, Message: "GitHub Pages is already enabled."}
	}
	entry.pages = &github.PagesSite{
		HTMLURL:   fmt.Sprintf("https://%s.github.io/%s/", strings.ToLower(owner), repo),
		BuildType: request.BuildType,
		Status:    "built",
	}
	site := *entry.pages
	return &site, nil
}

func (fake *Fake) GetPagesSite(ctx context.Context, owner, repo string) (*github.PagesSite, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetPagesSite", repo); err != nil {
		return nil, err
	}
	entry, ok := fake.repositories[repoKey(owner, repo)]
	if !ok || entry.pages == nil {
		return nil, notFound("Pages")
	}
	site := *entry.pages
	return &site, nil
}

// SearchRepositories matches on the first whitespace-separated term of
// the query as a name prefix within the org named by an "org:" term.
func (fake *Fake) SearchRepositories(ctx context.Context, searchQuery string) ([]github.Repository, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("SearchRepositories", searchQuery); err != nil {
		return nil, err
	}
	terms := strings.Fields(searchQuery)
	if len(terms) == 0 {
		return nil, nil
	}
	org := fake.Org
	for _, term := range terms {
		if value, ok := strings.CutPrefix(term, "org:"); ok {
			org = value
		}
	}
	var matches []github.Repository
	for _, entry := range fake.repositories {
		if entry.repository.Owner.Login == org && strings.HasPrefix(entry.repository.Name, terms[0]) {
			matches = append(matches, entry.repository)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return matches, nil
}

// --- teams ---

func (fake *Fake) GetTeam(ctx context.Context, org, slug string) (*github.Team, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetTeam", slug); err != nil {
		return nil, err
	}
	team, ok := fake.teams[slug]
	if !ok {
		return nil, notFound("Team")
	}
	result := team.team
	return &result, nil
}

func (fake *Fake) CreateTeam(ctx context.Context, org string, request github.CreateTeamRequest) (*github.Team, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("CreateTeam", request.Name); err != nil {
		return nil, err
	}
	if _, ok := fake.teams[request.Name]; ok {
		return nil, &github.APIError{StatusCode: 422, Message: "Validation Failed", Errors: []github.ValidationError{
			{Resource: "Team", Field: "name", Code: "already_exists"},
		}}
	}
	fake.nextID++
	team := &fakeTeam{
		team:    github.Team{ID: fake.nextID, Name: request.Name, Slug: request.Name, Privacy: request.Privacy},
		members: make(map[string]string),
	}
	for _, login := range request.Maintainers {
		team.members[login] = "maintainer"
		if fake.memberships[login] == "" {
			fake.setMembershipLocked(login, "pending")
		}
	}
	fake.teams[request.Name] = team
	result := team.team
	return &result, nil
}

func (fake *Fake) DeleteTeam(ctx context.Context, org, slug string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("DeleteTeam", slug); err != nil {
		return err
	}
	if _, ok := fake.teams[slug]; !ok {
		return notFound("Team")
	}
	delete(fake.teams, slug)
	for _, entry := range fake.repositories {
		delete(entry.teamAccess, slug)
	}
	return nil
}

// AddOrUpdateTeamMembership invites logins that are not yet
// organization members, as GitHub does.
func (fake *Fake) AddOrUpdateTeamMembership(ctx context.Context, org, slug, username, role string) (*github.TeamMembership, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("AddOrUpdateTeamMembership", slug+"/"+username+"="+role); err != nil {
		return nil, err
	}
	team, ok := fake.teams[slug]
	if !ok {
		return nil, notFound("Team")
	}
	team.members[username] = role
	if fake.memberships[username] == "" {
		fake.setMembershipLocked(username, "pending")
	}
	return &github.TeamMembership{Role: role, State: fake.memberships[username]}, nil
}

func (fake *Fake) GetTeamMembership(ctx context.Context, org, slug, username string) (*github.TeamMembership, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetTeamMembership", slug+"/"+username); err != nil {
		return nil, err
	}
	team, ok := fake.teams[slug]
	if !ok {
		return nil, notFound("Team")
	}
	role, ok := team.members[username]
	if !ok {
		return nil, notFound("Membership")
	}
	return &github.TeamMembership{Role: role, State: fake.memberships[username]}, nil
}

func (fake *Fake) RemoveTeamMembership(ctx context.Context, org, slug, username string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("RemoveTeamMembership", slug+"/"+username); err != nil {
		return err
	}
	team, ok := fake.teams[slug]
	if !ok {
		return notFound("Team")
	}
	if _, ok := team.members[username]; !ok {
		return notFound("Membership")
	}
	delete(team.members, username)
	return nil
}

// ListTeamMembers lists active members only, matching the REST API.
func (fake *Fake) ListTeamMembers(ctx context.Context, org, slug string) ([]github.User, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("ListTeamMembers", slug); err != nil {
		return nil, err
	}
	team, ok := fake.teams[slug]
	if !ok {
		return nil, notFound("Team")
	}
	var members []github.User
	for login := range team.members {
		if fake.memberships[login] == "active" {
			members = append(members, github.User{Login: login})
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Login < members[j].Login })
	return members, nil
}

func (fake *Fake) AddOrUpdateTeamRepoPermission(ctx context.Context, org, slug, owner, repo, permission string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("AddOrUpdateTeamRepoPermission", repo); err != nil {
		return err
	}
	if _, ok := fake.teams[slug]; !ok {
		return notFound("Team")
	}
	entry, ok := fake.repositories[repoKey(owner, repo)]
	if !ok {
		return notFound("Repository")
	}
	entry.teamAccess[slug] = permission
	return nil
}

// --- organization ---

func (fake *Fake) GetOrgMembership(ctx context.Context, org, username string) (*github.OrgMembership, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetOrgMembership", username); err != nil {
		return nil, err
	}
	state, ok := fake.memberships[username]
	if !ok {
		return nil, notFound("Membership")
	}
	return &github.OrgMembership{State: state, Role: "member", User: github.User{Login: username}}, nil
}

// RemoveOrgMember also drops the login from every team.
func (fake *Fake) RemoveOrgMember(ctx context.Context, org, username string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("RemoveOrgMember", username); err != nil {
		return err
	}
	if fake.memberships[username] != "active" {
		return notFound("Member")
	}
	delete(fake.memberships, username)
	for _, team := range fake.teams {
		delete(team.members, username)
	}
	return nil
}

func (fake *Fake) ListPendingInvitations(ctx context.Context, org string) ([]github.Invitation, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("ListPendingInvitations", org); err != nil {
		return nil, err
	}
	return append([]github.Invitation(nil), fake.invitations...), nil
}

func (fake *Fake) CancelInvitation(ctx context.Context, org string, invitationID int64) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("CancelInvitation", fmt.Sprint(invitationID)); err != nil {
		return err
	}
	for index, invitation := range fake.invitations {
		if invitation.ID == invitationID {
			fake.invitations = append(fake.invitations[:index], fake.invitations[index+1:]...)
			delete(fake.memberships, invitation.Login)
			for _, team := range fake.teams {
				delete(team.members, invitation.Login)
			}
			return nil
		}
	}
	return notFound("Invitation")
}

// --- issues and pull requests ---

func (fake *Fake) GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetIssue", fmt.Sprint(number)); err != nil {
		return nil, err
	}
	entry, ok := fake.issues[issueKey(owner, repo, number)]
	if !ok {
		return nil, notFound("Issue")
	}
	issue := entry.issue
	return &issue, nil
}

func (fake *Fake) ListIssues(ctx context.Context, owner, repo string, options github.ListIssuesOptions) ([]github.Issue, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("ListIssues", repo); err != nil {
		return nil, err
	}
	state := options.State
	if state == "" {
		state = "open"
	}
	prefix := repoKey(owner, repo) + "#"
	var issues []github.Issue
	for key, entry := range fake.issues {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if state != "all" && entry.issue.State != state {
			continue
		}
		matches := true
		for _, label := range options.Labels {
			if !entry.issue.HasLabel(label) {
				matches = false
			}
		}
		if matches {
			issues = append(issues, entry.issue)
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Number < issues[j].Number })
	return issues, nil
}

func (fake *Fake) UpdateIssue(ctx context.Context, owner, repo string, number int, request github.UpdateIssueRequest) (*github.Issue, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("UpdateIssue", fmt.Sprint(number)); err != nil {
		return nil, err
	}
	entry, ok := fake.issues[issueKey(owner, repo, number)]
	if !ok {
		return nil, notFound("Issue")
	}
	if request.Body != nil {
		entry.issue.Body = *request.Body
	}
	if request.State != nil {
		entry.issue.State = *request.State
	}
	if request.StateReason != nil {
		entry.issue.StateReason = *request.StateReason
	}
	issue := entry.issue
	return &issue, nil
}

func (fake *Fake) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*github.Comment, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("CreateIssueComment", fmt.Sprint(number)); err != nil {
		return nil, err
	}
	entry, ok := fake.issues[issueKey(owner, repo, number)]
	if !ok {
		return nil, notFound("Issue")
	}
	entry.comments = append(entry.comments, body)
	fake.nextID++
	return &github.Comment{ID: fake.nextID, Body: body}, nil
}

func (fake *Fake) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("AddLabels", fmt.Sprint(number)); err != nil {
		return err
	}
	entry, ok := fake.issues[issueKey(owner, repo, number)]
	if !ok {
		return notFound("Issue")
	}
	for _, label := range labels {
		if !entry.issue.HasLabel(label) {
			entry.issue.Labels = append(entry.issue.Labels, github.Label{Name: label})
		}
	}
	return nil
}

func (fake *Fake) CreatePullRequest(ctx context.Context, owner, repo string, request github.CreatePullRequestRequest) (*github.PullRequest, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("CreatePullRequest", repo+":"+request.Head); err != nil {
		return nil, err
	}
	key := repoKey(owner, repo)
	if _, ok := fake.repositories[key]; !ok {
		return nil, notFound("Repository")
	}
	for _, existing := range fake.pulls[key] {
		if existing.Head.Ref == request.Head && existing.State == "open" {
			return nil, &github.APIError{StatusCode: 422, Message: "A pull request already exists for " + request.Head}
		}
	}
	pullRequest := github.PullRequest{
		Number: len(fake.pulls[key]) + 1,
		Title:  request.Title,
		Body:   request.Body,
		State:  "open",
		Head:   github.Branch{Ref: request.Head, Label: owner + ":" + request.Head},
		Base:   github.Branch{Ref: request.Base},
	}
	fake.pulls[key] = append(fake.pulls[key], pullRequest)
	return &pullRequest, nil
}

func (fake *Fake) ListPullRequests(ctx context.Context, owner, repo string, options github.ListPullRequestsOptions) ([]github.PullRequest, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("ListPullRequests", repo); err != nil {
		return nil, err
	}
	var matches []github.PullRequest
	for _, pullRequest := range fake.pulls[repoKey(owner, repo)] {
		if options.Head != "" && pullRequest.Head.Label != options.Head {
			continue
		}
		if options.State != "all" && pullRequest.State != "open" {
			continue
		}
		matches = append(matches, pullRequest)
	}
	return matches, nil
}

// --- identity ---

func (fake *Fake) GetAuthenticatedUser(ctx context.Context) (*github.User, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetAuthenticatedUser", ""); err != nil {
		return nil, err
	}
	return &github.User{Login: fake.Actor}, nil
}

// GetUserIdentity answers unknown logins with an empty, non-employee
// identity rather than an error.
func (fake *Fake) GetUserIdentity(ctx context.Context, login string) (*github.UserIdentity, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if err := fake.record("GetUserIdentity", login); err != nil {
		return nil, err
	}
	identity, ok := fake.identities[login]
	if !ok {
		identity = github.UserIdentity{Login: login}
	}
	return &identity, nil
}
