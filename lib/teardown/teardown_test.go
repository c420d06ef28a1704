// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package teardown

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/github/githubtest"
	"github.com/bureau-foundation/classroom/lib/ledger"
	"github.com/bureau-foundation/classroom/lib/membership"
	"github.com/bureau-foundation/classroom/lib/provision"
	"github.com/bureau-foundation/classroom/lib/team"
)

func newOrchestrator(t *testing.T, fake *githubtest.Fake) *Orchestrator {
	t.Helper()
	provisioner, err := provision.New(provision.Config{
		Client:             fake,
		Ledgers:            ledger.NewBook("", nil),
		TemplateOwner:      "ghi-org",
		TemplateRepository: "gh-intermediate-template",
		Token:              "ghs_secret",
		Workspace:          t.TempDir(),
	})
	if err != nil {
		t.Fatalf("provision.New: %v", err)
	}
	return New(Config{
		Client:       fake,
		Repositories: provisioner,
		Team:         team.NewManager(team.Config{Client: fake}),
		Resolver: membership.NewResolver(membership.Config{
			Client:         fake,
			PartnerDomains: []string{"microsoft.com"},
			Instructors:    membership.NewInstructors("inst"),
		}),
	})
}

// seedClass builds an organization with one member of each kind:
// instructor, ordinary active attendee, pending invitee, employee,
// partner-domain holder, and a team member missing from the record.
func seedClass(fake *githubtest.Fake) classroom.Class {
	fake.AddTeam("gh-int-na1", map[string]string{
		"inst":  "maintainer",
		"alice": "member",
		"carol": "member",
		"dana":  "member",
		"eve":   "member",
	})
	fake.SetMembership("bob", "pending")
	fake.SetIdentity(github.UserIdentity{Login: "carol", IsEmployee: true})
	for _, handle := range []string{"alice", "bob", "carol", "eve"} {
		fake.AddRepository("ghi-org", "gh-int-na1-"+handle)
	}
	fake.AddRepository("ghi-org", "gh-int-na2-alice")

	return classroom.Class{
		Organization:   "ghi-org",
		CustomerName:   "Northwind",
		CustomerAbbr:   "NA1",
		Administrators: []classroom.User{classroom.NewUser("inst", "inst@example.com")},
		Attendees: []classroom.User{
			classroom.NewUser("alice", "alice@example.com"),
			classroom.NewUser("bob", "bob@example.com"),
			classroom.NewUser("carol", "carol@example.com"),
			classroom.NewUser("dana", "dana@microsoft.com"),
		},
	}
}

func TestTeardown(t *testing.T) {
	fake := githubtest.New("ghi-org")
	class := seedClass(fake)
	orchestrator := newOrchestrator(t, fake)

	if err := orchestrator.Teardown(context.Background(), class); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	if names := fake.RepositoryNames(); len(names) != 1 || names[0] != "gh-int-na2-alice" {
		t.Errorf("remaining repositories = %v, want only the other class's", names)
	}
	if fake.HasTeam("gh-int-na1") {
		t.Error("team still exists")
	}
	for handle, want := range map[string]string{
		"inst":  "active",
		"carol": "active",
		"dana":  "active",
		"alice": "",
		"bob":   "",
		"eve":   "",
	} {
		if got := fake.Membership(handle); got != want {
			t.Errorf("membership of %s = %q, want %q", handle, got, want)
		}
	}
	if calls := fake.CallsTo("CancelInvitation"); len(calls) != 1 {
		t.Errorf("CancelInvitation calls = %v, want one for bob", calls)
	}
}

func TestTeardownOrder(t *testing.T) {
	fake := githubtest.New("ghi-org")
	class := seedClass(fake)
	orchestrator := newOrchestrator(t, fake)

	if err := orchestrator.Teardown(context.Background(), class); err != nil {
		t.Fatalf("Teardown: %v", err)
	}

	lastRepository, firstRevoke, lastRevoke, teamDelete := -1, -1, -1, -1
	for index, call := range fake.Calls() {
		method, _, _ := strings.Cut(call, " ")
		switch method {
		case "DeleteRepository":
			lastRepository = index
		case "RemoveOrgMember", "CancelInvitation":
			if firstRevoke < 0 {
				firstRevoke = index
			}
			lastRevoke = index
		case "DeleteTeam":
			teamDelete = index
		}
	}
	if lastRepository < 0 || firstRevoke < 0 || teamDelete < 0 {
		t.Fatalf("missing steps: repository=%d revoke=%d team=%d", lastRepository, firstRevoke, teamDelete)
	}
	if !(lastRepository < firstRevoke && lastRevoke < teamDelete) {
		t.Errorf("steps out of order: last repository delete %d, revokes %d..%d, team delete %d",
			lastRepository, firstRevoke, lastRevoke, teamDelete)
	}
}

func TestTeardownTwice(t *testing.T) {
	fake := githubtest.New("ghi-org")
	class := seedClass(fake)
	orchestrator := newOrchestrator(t, fake)

	if err := orchestrator.Teardown(context.Background(), class); err != nil {
		t.Fatalf("first Teardown: %v", err)
	}
	fake.ResetCalls()
	if err := orchestrator.Teardown(context.Background(), class); err != nil {
		t.Fatalf("second Teardown: %v", err)
	}
	for _, method := range []string{"RemoveOrgMember", "CancelInvitation"} {
		if calls := fake.CallsTo(method); len(calls) != 0 {
			t.Errorf("second teardown called %s: %v", method, calls)
		}
	}
	if fake.Membership("carol") != "active" {
		t.Error("exempt member lost membership on the second run")
	}
}

func TestTeardownStopsWhenRepositoriesFail(t *testing.T) {
	fake := githubtest.New("ghi-org")
	class := seedClass(fake)
	fake.Failures = map[string]error{"DeleteRepository:gh-int-na1-alice": errors.New("boom")}
	orchestrator := newOrchestrator(t, fake)

	err := orchestrator.Teardown(context.Background(), class)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Teardown error = %v", err)
	}
	if calls := fake.CallsTo("RemoveOrgMember"); len(calls) != 0 {
		t.Errorf("memberships revoked before repositories were gone: %v", calls)
	}
	if !fake.HasTeam("gh-int-na1") {
		t.Error("team deleted despite failed repository step")
	}
}

func TestRemoveMemberExempt(t *testing.T) {
	fake := githubtest.New("ghi-org")
	class := seedClass(fake)
	orchestrator := newOrchestrator(t, fake)

	user, _ := class.Attendee("carol")
	if err := orchestrator.RemoveMember(context.Background(), class, user); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if fake.Membership("carol") != "active" {
		t.Error("employee removed from the organization")
	}
	if fake.HasRepository("ghi-org", "gh-int-na1-carol") {
		t.Error("exempt member's repository was kept")
	}
	if _, ok := fake.TeamMembers("gh-int-na1")["carol"]; ok {
		t.Error("exempt member's team membership was kept")
	}
}

func TestRemoveMemberActive(t *testing.T) {
	fake := githubtest.New("ghi-org")
	class := seedClass(fake)
	orchestrator := newOrchestrator(t, fake)

	user, _ := class.Attendee("alice")
	if err := orchestrator.RemoveMember(context.Background(), class, user); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if fake.Membership("alice") != "" {
		t.Error("alice is still an organization member")
	}
	if fake.HasRepository("ghi-org", "gh-int-na1-alice") {
		t.Error("alice's repository was kept")
	}
}
