// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package githubtest provides an in-memory stand-in for the GitHub
// client. Fake has the same method set as *github.Client for the calls
// classroom components make, keeps organization state in maps, and
// records every mutating call so tests can assert on both outcomes and
// call sequences.
package githubtest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bureau-foundation/classroom/lib/github"
)

// Fake is an in-memory organization. The zero value is not usable;
// call New.
type Fake struct {
	mu sync.Mutex

	// Org is the organization the fake hosts.
	Org string

	// Actor is returned by GetAuthenticatedUser.
	Actor string

	repositories map[string]*fakeRepository
	teams        map[string]*fakeTeam
	memberships  map[string]string // login -> "active" | "pending"
	invitations  []github.Invitation
	identities   map[string]github.UserIdentity
	issues       map[string]*fakeIssue
	pulls        map[string][]github.PullRequest

	// NotReadyPolls makes GetBranch answer 404 this many times for each
	// newly generated repository, modelling template initialization.
	NotReadyPolls int

	// Failures injects errors. A "Method" key fails every call to that
	// method; a "Method:subject" key fails only calls whose recorded
	// subject matches (see Calls).
	Failures map[string]error

	calls     []string
	nextID    int64
	nextIssue int
}

type fakeRepository struct {
	repository   github.Repository
	pendingPolls int
	environments map[string]bool
	pages        *github.PagesSite
	teamAccess   map[string]string
}

type fakeTeam struct {
	team    github.Team
	members map[string]string // login -> role
}

type fakeIssue struct {
	issue    github.Issue
	comments []string
}

// New returns an empty organization.
func New(org string) *Fake {
	return &Fake{
		Org:          org,
		Actor:        "gh-intermediate-issueops[bot]",
		repositories: make(map[string]*fakeRepository),
		teams:        make(map[string]*fakeTeam),
		memberships:  make(map[string]string),
		identities:   make(map[string]github.UserIdentity),
		issues:       make(map[string]*fakeIssue),
		pulls:        make(map[string][]github.PullRequest),
		Failures:     make(map[string]error),
		nextID:       1000,
		nextIssue:    1,
	}
}

func notFound(what string) error {
	return &github.APIError{StatusCode: 404, Message: what + " Not Found"}
}

func repoKey(owner, repo string) string { return owner + "/" + repo }

// record logs a call and returns any injected failure for it.
func (fake *Fake) record(method string, subject string) error {
	fake.calls = append(fake.calls, method+" "+subject)
	if err, ok := fake.Failures[method+":"+subject]; ok {
		return err
	}
	return fake.Failures[method]
}

// Calls returns the recorded call log as "Method subject" strings.
func (fake *Fake) Calls() []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return append([]string(nil), fake.calls...)
}

// CallsTo returns the subjects of every recorded call to method.
func (fake *Fake) CallsTo(method string) []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	var subjects []string
	for _, call := range fake.calls {
		name, subject, _ := strings.Cut(call, " ")
		if name == method {
			subjects = append(subjects, subject)
		}
	}
	return subjects
}

// ResetCalls clears the call log.
func (fake *Fake) ResetCalls() {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.calls = nil
}

// --- seeding and inspection ---

// AddRepository seeds an existing, initialized repository.
func (fake *Fake) AddRepository(owner, name string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.addRepositoryLocked(owner, name, 0)
}

func (fake *Fake) addRepositoryLocked(owner, name string, pendingPolls int) *fakeRepository {
	fake.nextID++
	entry := &fakeRepository{
		repository: github.Repository{
			ID:            fake.nextID,
			Name:          name,
			FullName:      owner + "/" + name,
			Owner:         github.User{Login: owner},
			Private:       true,
			HTMLURL:       "https://github.com/" + owner + "/" + name,
			CloneURL:      "https://github.com/" + owner + "/" + name + ".git",
			DefaultBranch: "main",
		},
		pendingPolls: pendingPolls,
		environments: make(map[string]bool),
		teamAccess:   make(map[string]string),
	}
	fake.repositories[repoKey(owner, name)] = entry
	return entry
}

// HasRepository reports whether owner/name exists.
func (fake *Fake) HasRepository(owner, name string) bool {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	_, ok := fake.repositories[repoKey(owner, name)]
	return ok
}

// Repository returns a copy of owner/name and whether it exists.
func (fake *Fake) Repository(owner, name string) (github.Repository, bool) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	entry, ok := fake.repositories[repoKey(owner, name)]
	if !ok {
		return github.Repository{}, false
	}
	return entry.repository, true
}

// TeamPermission returns the permission team slug holds on owner/name.
func (fake *Fake) TeamPermission(owner, name, slug string) string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if entry, ok := fake.repositories[repoKey(owner, name)]; ok {
		return entry.teamAccess[slug]
	}
	return ""
}

// HasEnvironment reports whether owner/name has the environment.
func (fake *Fake) HasEnvironment(owner, name, environment string) bool {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	entry, ok := fake.repositories[repoKey(owner, name)]
	return ok && entry.environments[environment]
}

// RepositoryNames returns the sorted names of every repository.
func (fake *Fake) RepositoryNames() []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	var names []string
	for _, entry := range fake.repositories {
		names = append(names, entry.repository.Name)
	}
	sort.Strings(names)
	return names
}

// AddTeam seeds a team with members mapped to roles.
func (fake *Fake) AddTeam(name string, members map[string]string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.nextID++
	team := &fakeTeam{
		team:    github.Team{ID: fake.nextID, Name: name, Slug: name},
		members: make(map[string]string),
	}
	for login, role := range members {
		team.members[login] = role
		if fake.memberships[login] == "" {
			fake.memberships[login] = "active"
		}
	}
	fake.teams[name] = team
}

// HasTeam reports whether the team exists.
func (fake *Fake) HasTeam(slug string) bool {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	_, ok := fake.teams[slug]
	return ok
}

// TeamMembers returns login -> role for the team, or nil when absent.
func (fake *Fake) TeamMembers(slug string) map[string]string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	team, ok := fake.teams[slug]
	if !ok {
		return nil
	}
	members := make(map[string]string, len(team.members))
	for login, role := range team.members {
		members[login] = role
	}
	return members
}

// SetMembership sets a login's organization state: "active",
// "pending" (an invitation is created), or "" to remove.
func (fake *Fake) SetMembership(login, state string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.setMembershipLocked(login, state)
}

func (fake *Fake) setMembershipLocked(login, state string) {
	switch state {
	case "":
		delete(fake.memberships, login)
	case "pending":
		fake.memberships[login] = "pending"
		for _, invitation := range fake.invitations {
			if invitation.Login == login {
				return
			}
		}
		fake.nextID++
		fake.invitations = append(fake.invitations, github.Invitation{ID: fake.nextID, Login: login, Role: "direct_member"})
	default:
		fake.memberships[login] = state
	}
}

// Membership returns a login's organization state, "" when absent.
func (fake *Fake) Membership(login string) string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.memberships[login]
}

// SetIdentity sets what GetUserIdentity returns for a login.
func (fake *Fake) SetIdentity(identity github.UserIdentity) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.identities[identity.Login] = identity
}

// AddIssue seeds an issue in owner/repo and returns its number.
func (fake *Fake) AddIssue(owner, repo string, issue github.Issue) int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if issue.Number == 0 {
		issue.Number = fake.nextIssue
	}
	if issue.Number >= fake.nextIssue {
		fake.nextIssue = issue.Number + 1
	}
	if issue.State == "" {
		issue.State = "open"
	}
	fake.issues[issueKey(owner, repo, issue.Number)] = &fakeIssue{issue: issue}
	return issue.Number
}

// Issue returns a copy of an issue and whether it exists.
func (fake *Fake) Issue(owner, repo string, number int) (github.Issue, bool) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	entry, ok := fake.issues[issueKey(owner, repo, number)]
	if !ok {
		return github.Issue{}, false
	}
	return entry.issue, true
}

// Comments returns the comment bodies posted on an issue.
func (fake *Fake) Comments(owner, repo string, number int) []string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if entry, ok := fake.issues[issueKey(owner, repo, number)]; ok {
		return append([]string(nil), entry.comments...)
	}
	return nil
}

// PullRequests returns the pull requests opened in owner/repo.
func (fake *Fake) PullRequests(owner, repo string) []github.PullRequest {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return append([]github.PullRequest(nil), fake.pulls[repoKey(owner, repo)]...)
}

func issueKey(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}
