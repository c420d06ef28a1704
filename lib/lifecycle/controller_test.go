// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/clock"
	"github.com/bureau-foundation/classroom/lib/git/gittest"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/github/githubtest"
	"github.com/bureau-foundation/classroom/lib/ledger"
	"github.com/bureau-foundation/classroom/lib/membership"
	"github.com/bureau-foundation/classroom/lib/provision"
	"github.com/bureau-foundation/classroom/lib/team"
	"github.com/bureau-foundation/classroom/lib/teardown"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (notifier *recordingNotifier) add(event string) {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	notifier.events = append(notifier.events, event)
}

func (notifier *recordingNotifier) Created(ctx context.Context, class classroom.Class, repositories []github.Repository) error {
	names := make([]string, 0, len(repositories))
	for _, repository := range repositories {
		names = append(names, repository.Name)
	}
	notifier.add("created " + class.Team + " " + strings.Join(names, ","))
	return nil
}

func (notifier *recordingNotifier) Closed(ctx context.Context, class classroom.Class) error {
	notifier.add("closed " + class.CustomerAbbr)
	return nil
}

func (notifier *recordingNotifier) MemberChanged(ctx context.Context, class classroom.Class, action classroom.Action, user classroom.User) error {
	notifier.add(string(action) + " " + user.Handle)
	return nil
}

func (notifier *recordingNotifier) Events() []string {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return append([]string(nil), notifier.events...)
}

type harness struct {
	fake       *githubtest.Fake
	clock      *clock.FakeClock
	notifier   *recordingNotifier
	controller *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := githubtest.New("ghi-org")
	fakeClock := clock.Fake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	cloner := gittest.NewCloner()

	provisioner, err := provision.New(provision.Config{
		Client:             fake,
		Ledgers:            ledger.NewBook("", nil),
		TemplateOwner:      "ghi-org",
		TemplateRepository: "gh-intermediate-template",
		Token:              "ghs_secret",
		Workspace:          t.TempDir(),
		Clock:              fakeClock,
		Clone: func(ctx context.Context, url, dir string, timeout time.Duration) (provision.Worktree, error) {
			return cloner.Clone(ctx, url, dir, timeout)
		},
	})
	if err != nil {
		t.Fatalf("provision.New: %v", err)
	}
	teams := team.NewManager(team.Config{Client: fake})
	orchestrator := teardown.New(teardown.Config{
		Client:       fake,
		Repositories: provisioner,
		Team:         teams,
		Resolver:     membership.NewResolver(membership.Config{Client: fake, Instructors: membership.NewInstructors("inst")}),
	})
	notifier := &recordingNotifier{}
	controller := New(Config{
		Teams:        teams,
		Repositories: provisioner,
		Teardown:     orchestrator,
		Identity:     fake,
		Clock:        fakeClock,
	}).WithTrigger(Trigger{Notifier: notifier})

	return &harness{fake: fake, clock: fakeClock, notifier: notifier, controller: controller}
}

func sampleClass() classroom.Class {
	return classroom.Class{
		Organization:   "ghi-org",
		CustomerName:   "Northwind",
		CustomerAbbr:   "na1",
		StartDate:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		Administrators: []classroom.User{{Handle: "Inst", Email: "inst@example.com"}},
		Attendees: []classroom.User{
			{Handle: "alice", Email: "alice@example.com"},
			{Handle: "bob", Email: "bob@example.com"},
		},
	}
}

func mutatingCalls(fake *githubtest.Fake) []string {
	var mutations []string
	for _, call := range fake.Calls() {
		method, _, _ := strings.Cut(call, " ")
		switch method {
		case "CreateTeam", "DeleteTeam", "AddOrUpdateTeamMembership", "RemoveTeamMembership",
			"CreateRepositoryFromTemplate", "DeleteRepository", "RemoveOrgMember", "CancelInvitation":
			mutations = append(mutations, call)
		}
	}
	return mutations
}

func TestCreate(t *testing.T) {
	h := newHarness(t)

	class, err := h.controller.Create(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if class.Team != "gh-int-na1" {
		t.Errorf("Team = %q, want gh-int-na1", class.Team)
	}
	if class.CustomerAbbr != "NA1" || class.Administrators[0].Handle != "inst" {
		t.Errorf("snapshot not normalized: %+v", class)
	}

	members := h.fake.TeamMembers("gh-int-na1")
	if members["inst"] != "maintainer" || members["alice"] != "member" || members["bob"] != "member" {
		t.Errorf("team members = %v", members)
	}
	for _, name := range []string{"gh-int-na1-alice", "gh-int-na1-bob"} {
		if !h.fake.HasRepository("ghi-org", name) {
			t.Errorf("repository %s missing", name)
		}
	}
	if events := h.notifier.Events(); len(events) != 1 || events[0] != "created gh-int-na1 gh-int-na1-alice,gh-int-na1-bob" {
		t.Errorf("notifications = %v", events)
	}
}

func TestCreateTeamExists(t *testing.T) {
	h := newHarness(t)
	h.fake.AddTeam("gh-int-na1", nil)
	h.fake.ResetCalls()

	_, err := h.controller.Create(context.Background(), sampleClass())
	if !errors.Is(err, classroom.ErrTeamAlreadyExists) {
		t.Fatalf("Create error = %v, want ErrTeamAlreadyExists", err)
	}
	if !strings.Contains(err.Error(), "gh-int-na1") {
		t.Errorf("error %q does not name the team", err)
	}
	if mutations := mutatingCalls(h.fake); len(mutations) != 0 {
		t.Errorf("mutations despite precondition failure: %v", mutations)
	}
}

func TestCreateRepositoryExists(t *testing.T) {
	h := newHarness(t)
	h.fake.AddRepository("ghi-org", "gh-int-na1-bob")
	h.fake.ResetCalls()

	_, err := h.controller.Create(context.Background(), sampleClass())
	if !errors.Is(err, classroom.ErrRepositoryAlreadyExists) {
		t.Fatalf("Create error = %v, want ErrRepositoryAlreadyExists", err)
	}
	if !strings.Contains(err.Error(), "gh-int-na1-bob") {
		t.Errorf("error %q does not name the repository", err)
	}
	if h.fake.HasTeam("gh-int-na1") {
		t.Error("team created despite precondition failure")
	}
	if mutations := mutatingCalls(h.fake); len(mutations) != 0 {
		t.Errorf("mutations despite precondition failure: %v", mutations)
	}
}

func TestCreateRejectsInvalidClass(t *testing.T) {
	h := newHarness(t)
	class := sampleClass()
	class.Administrators = nil

	if _, err := h.controller.Create(context.Background(), class); err == nil || !strings.Contains(err.Error(), "administrator") {
		t.Fatalf("Create error = %v", err)
	}
	if calls := h.fake.Calls(); len(calls) != 0 {
		t.Errorf("calls made for an invalid class: %v", calls)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	class, err := h.controller.Create(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.fake.SetMembership("alice", "active")

	for round := 1; round <= 2; round++ {
		if err := h.controller.Close(context.Background(), class); err != nil {
			t.Fatalf("Close round %d: %v", round, err)
		}
		if h.fake.HasTeam("gh-int-na1") {
			t.Errorf("round %d: team still exists", round)
		}
		if names := h.fake.RepositoryNames(); len(names) != 0 {
			t.Errorf("round %d: repositories remain: %v", round, names)
		}
		if state := h.fake.Membership("alice"); state != "" {
			t.Errorf("round %d: alice membership = %q", round, state)
		}
		if state := h.fake.Membership("bob"); state != "" {
			t.Errorf("round %d: bob invitation still pending", round)
		}
	}
}

type staticSource []OpenClass

func (source staticSource) OpenClasses(ctx context.Context) ([]OpenClass, error) {
	return source, nil
}

func TestExpireClosesOnlyEndedClassesAndIsolatesFailures(t *testing.T) {
	h := newHarness(t)
	// Now is 2026-03-10 12:00 UTC.
	ended := sampleClass()
	ended.CustomerAbbr = "OLD"
	ended.EndDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	lastDay := sampleClass()
	lastDay.CustomerAbbr = "TODAY"
	lastDay.EndDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	broken := sampleClass()
	broken.CustomerAbbr = "BROKEN"
	broken.EndDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, class := range []classroom.Class{ended, lastDay, broken} {
		h.fake.AddTeam("gh-int-"+strings.ToLower(class.CustomerAbbr), nil)
	}
	h.fake.Failures = map[string]error{"DeleteTeam:gh-int-broken": errors.New("boom")}

	oldNotifier, todayNotifier, brokenNotifier := &recordingNotifier{}, &recordingNotifier{}, &recordingNotifier{}
	source := staticSource{
		{Class: broken, Notifier: brokenNotifier, Source: "issue #1"},
		{Class: ended, Notifier: oldNotifier, Source: "issue #2"},
		{Class: lastDay, Notifier: todayNotifier, Source: "issue #3"},
	}

	err := h.controller.Expire(context.Background(), source)
	if err == nil || !strings.Contains(err.Error(), "BROKEN") {
		t.Fatalf("Expire error = %v, want the BROKEN failure", err)
	}
	if h.fake.HasTeam("gh-int-old") {
		t.Error("ended class was not closed")
	}
	if !h.fake.HasTeam("gh-int-today") {
		t.Error("class on its last day was closed")
	}
	if events := oldNotifier.Events(); len(events) != 1 || events[0] != "closed OLD" {
		t.Errorf("ended class notifications = %v", events)
	}
	if events := todayNotifier.Events(); len(events) != 0 {
		t.Errorf("running class notifications = %v", events)
	}
	if events := brokenNotifier.Events(); len(events) != 0 {
		t.Errorf("failed class notified as closed: %v", events)
	}
}

func TestAddUser(t *testing.T) {
	h := newHarness(t)
	class, err := h.controller.Create(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	class, err = h.controller.AddUser(context.Background(), class, classroom.User{Handle: "Carol", Email: "carol@example.com"})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if !class.IsAttendee("carol") {
		t.Error("snapshot does not list carol")
	}
	if h.fake.TeamMembers("gh-int-na1")["carol"] != "member" {
		t.Error("carol is not a team member")
	}
	if !h.fake.HasRepository("ghi-org", "gh-int-na1-carol") {
		t.Error("carol's repository was not created")
	}

	// Adding again is a no-op.
	h.fake.ResetCalls()
	again, err := h.controller.AddUser(context.Background(), class, classroom.User{Handle: "carol", Email: "carol@example.com"})
	if err != nil {
		t.Fatalf("repeated AddUser: %v", err)
	}
	if mutations := mutatingCalls(h.fake); len(mutations) != 0 {
		t.Errorf("repeated AddUser mutated: %v", mutations)
	}
	if len(again.Attendees) != len(class.Attendees) {
		t.Errorf("repeated AddUser changed attendees: %v", again.Attendees)
	}
}

func TestAddUserResumesUnlistedRepository(t *testing.T) {
	h := newHarness(t)
	class, err := h.controller.Create(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.fake.AddRepository("ghi-org", "gh-int-na1-dave")
	h.fake.ResetCalls()

	class, err = h.controller.AddUser(context.Background(), class, classroom.User{Handle: "dave"})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if !class.IsAttendee("dave") {
		t.Error("dave not listed")
	}
	if calls := h.fake.CallsTo("CreateRepositoryFromTemplate"); len(calls) != 0 {
		t.Errorf("existing repository recreated: %v", calls)
	}
}

func TestAddAdmin(t *testing.T) {
	h := newHarness(t)
	class, err := h.controller.Create(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	class, err = h.controller.AddAdmin(context.Background(), class, classroom.User{Handle: "erin", Email: "erin@example.com"})
	if err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if !class.IsAdministrator("erin") {
		t.Error("erin not listed as administrator")
	}
	if h.fake.TeamMembers("gh-int-na1")["erin"] != "maintainer" {
		t.Error("erin is not a maintainer")
	}
	if events := h.notifier.Events(); events[len(events)-1] != "add-admin erin" {
		t.Errorf("notifications = %v", events)
	}
}

func TestAddUserRejectsMalformedHandle(t *testing.T) {
	h := newHarness(t)
	_, err := h.controller.AddUser(context.Background(), sampleClass(), classroom.User{Handle: "not a handle"})
	if !errors.Is(err, classroom.ErrInvalidCommandFormat) {
		t.Fatalf("AddUser error = %v, want ErrInvalidCommandFormat", err)
	}
}

func TestRemoveUser(t *testing.T) {
	h := newHarness(t)
	class, err := h.controller.Create(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.fake.SetMembership("alice", "active")

	class, err = h.controller.RemoveUser(context.Background(), class, "Alice")
	if err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if class.IsAttendee("alice") {
		t.Error("alice still listed")
	}
	if h.fake.HasRepository("ghi-org", "gh-int-na1-alice") {
		t.Error("alice's repository kept")
	}
	if h.fake.Membership("alice") != "" {
		t.Error("alice still an organization member")
	}
}

func TestRemoveUserPreconditions(t *testing.T) {
	h := newHarness(t)
	class := sampleClass()
	// An administrator wrongly listed as an attendee too.
	class.Attendees = append(class.Attendees, classroom.User{Handle: "inst"})

	tests := []struct {
		handle string
		want   error
	}{
		{"inst", classroom.ErrAdministratorHandle},
		{"zed", classroom.ErrAttendeeNotFound},
	}
	for _, test := range tests {
		h.fake.ResetCalls()
		_, err := h.controller.RemoveUser(context.Background(), class, test.handle)
		if !errors.Is(err, test.want) {
			t.Errorf("RemoveUser(%s) error = %v, want %v", test.handle, err, test.want)
		}
		if calls := h.fake.Calls(); len(calls) != 0 {
			t.Errorf("RemoveUser(%s) made calls: %v", test.handle, calls)
		}
	}
}

func TestRemoveAdminSelf(t *testing.T) {
	h := newHarness(t)
	h.fake.Actor = "inst"
	class := sampleClass()
	class.Administrators = append(class.Administrators, classroom.User{Handle: "other"})

	_, err := h.controller.RemoveAdmin(context.Background(), class, "inst")
	if !errors.Is(err, classroom.ErrSelfRemovalForbidden) {
		t.Fatalf("RemoveAdmin error = %v, want ErrSelfRemovalForbidden", err)
	}
	if mutations := mutatingCalls(h.fake); len(mutations) != 0 {
		t.Errorf("self removal mutated: %v", mutations)
	}

	_, err = h.controller.WithTrigger(Trigger{Actor: "OTHER"}).RemoveAdmin(context.Background(), class, "other")
	if !errors.Is(err, classroom.ErrSelfRemovalForbidden) {
		t.Errorf("RemoveAdmin with trigger actor error = %v, want ErrSelfRemovalForbidden", err)
	}
}

func TestRemoveAdmin(t *testing.T) {
	h := newHarness(t)
	class := sampleClass()
	class.Administrators = append(class.Administrators, classroom.User{Handle: "other"})
	class, err := h.controller.Create(context.Background(), class)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := h.controller.RemoveAdmin(context.Background(), class, "missing"); !errors.Is(err, classroom.ErrAdministratorNotFound) {
		t.Errorf("RemoveAdmin(missing) error = %v", err)
	}

	class, err = h.controller.WithTrigger(Trigger{Actor: "inst", Notifier: h.notifier}).RemoveAdmin(context.Background(), class, "other")
	if err != nil {
		t.Fatalf("RemoveAdmin: %v", err)
	}
	if class.IsAdministrator("other") {
		t.Error("other still an administrator")
	}
	if _, ok := h.fake.TeamMembers("gh-int-na1")["other"]; ok {
		t.Error("other still on the team")
	}
}
