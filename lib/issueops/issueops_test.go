// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issueops

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/clock"
	"github.com/bureau-foundation/classroom/lib/git/gittest"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/github/githubtest"
	"github.com/bureau-foundation/classroom/lib/issueform"
	"github.com/bureau-foundation/classroom/lib/ledger"
	"github.com/bureau-foundation/classroom/lib/lifecycle"
	"github.com/bureau-foundation/classroom/lib/membership"
	"github.com/bureau-foundation/classroom/lib/provision"
	"github.com/bureau-foundation/classroom/lib/team"
	"github.com/bureau-foundation/classroom/lib/teardown"
)

const (
	testOrg   = "ghi-org"
	testRepo  = "class-requests"
	testLabel = DefaultClassLabel
)

func requestBody(endDate string, attendees ...string) string {
	answer := noResponseOr(strings.Join(attendees, "\n"))
	return "### Customer Name\n\nNorthwind\n\n" +
		"### Customer Abbreviation\n\nna1\n\n" +
		"### Start Date\n\n2026-03-09\n\n" +
		"### End Date\n\n" + endDate + "\n\n" +
		"### Administrators\n\ninst,inst@example.com\n\n" +
		"### Attendees\n\n" + answer + "\n"
}

func noResponseOr(value string) string {
	if value == "" {
		return "_No response_"
	}
	return value
}

type harness struct {
	fake       *githubtest.Fake
	clock      *clock.FakeClock
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	fake := githubtest.New(testOrg)
	fakeClock := clock.Fake(now)
	cloner := gittest.NewCloner()
	provisioner, err := provision.New(provision.Config{
		Client:             fake,
		Ledgers:            ledger.NewBook("", nil),
		TemplateOwner:      testOrg,
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
	instructors := membership.NewInstructors("inst")
	teams := team.NewManager(team.Config{Client: fake})
	controller := lifecycle.New(lifecycle.Config{
		Teams:        teams,
		Repositories: provisioner,
		Teardown: teardown.New(teardown.Config{
			Client:       fake,
			Repositories: provisioner,
			Team:         teams,
			Resolver:     membership.NewResolver(membership.Config{Client: fake, Instructors: instructors}),
		}),
		Identity: fake,
		Clock:    fakeClock,
	})
	dispatcher, err := New(Config{
		Client:       fake,
		Controller:   controller,
		Instructors:  instructors,
		Owner:        testOrg,
		Repository:   testRepo,
		Organization: testOrg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{fake: fake, clock: fakeClock, dispatcher: dispatcher}
}

func (h *harness) addRequest(body string) github.Issue {
	number := h.fake.AddIssue(testOrg, testRepo, github.Issue{
		Title:  "Class request",
		Body:   body,
		Labels: []github.Label{{Name: testLabel}},
	})
	issue, _ := h.fake.Issue(testOrg, testRepo, number)
	return issue
}

func issuesEvent(action string, issue github.Issue, sender string) Event {
	return Event{
		Name:       EventIssues,
		Action:     action,
		Issue:      issue,
		Repository: github.Repository{FullName: testOrg + "/" + testRepo},
		Sender:     github.User{Login: sender},
	}
}

func commentEvent(issue github.Issue, body, sender string) Event {
	event := issuesEvent("created", issue, sender)
	event.Name = EventIssueComment
	event.Comment = &github.Comment{Body: body}
	return event
}

var march10 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestRoute(t *testing.T) {
	pullRequest := github.Issue{PullRequest: &struct {
		URL string `json:"url"`
	}{URL: "https://api.github.com/pulls/1"}}

	tests := []struct {
		name  string
		event Event
		want  classroom.Action
	}{
		{"opened", Event{Name: EventIssues, Action: "opened"}, classroom.ActionCreate},
		{"edited", Event{Name: EventIssues, Action: "edited"}, classroom.ActionCreate},
		{"closed", Event{Name: EventIssues, Action: "closed"}, classroom.ActionClose},
		{"labeled", Event{Name: EventIssues, Action: "labeled"}, classroom.ActionNone},
		{"add user", Event{Name: EventIssueComment, Action: "created", Comment: &github.Comment{Body: ".add-user a,b"}}, classroom.ActionAddUser},
		{"add admin", Event{Name: EventIssueComment, Action: "created", Comment: &github.Comment{Body: ".add-admin a,b"}}, classroom.ActionAddAdmin},
		{"remove user", Event{Name: EventIssueComment, Action: "created", Comment: &github.Comment{Body: ".remove-user a"}}, classroom.ActionRemoveUser},
		{"remove admin", Event{Name: EventIssueComment, Action: "created", Comment: &github.Comment{Body: ".remove-admin a"}}, classroom.ActionRemoveAdmin},
		{"edited comment", Event{Name: EventIssueComment, Action: "edited", Comment: &github.Comment{Body: ".add-user a,b"}}, classroom.ActionNone},
		{"chatter", Event{Name: EventIssueComment, Action: "created", Comment: &github.Comment{Body: "thanks!"}}, classroom.ActionNone},
		{"pull request comment", Event{Name: EventIssueComment, Action: "created", Issue: pullRequest, Comment: &github.Comment{Body: ".add-user a,b"}}, classroom.ActionNone},
		{"ping", Event{Name: EventPing}, classroom.ActionNone},
	}
	for _, test := range tests {
		if got := Route(test.event); got != test.want {
			t.Errorf("%s: Route = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		body    string
		want    Command
		message string
	}{
		{body: ".add-user Carol,Carol@Example.com", want: Command{Action: classroom.ActionAddUser, User: classroom.User{Handle: "carol", Email: "carol@example.com"}}},
		{body: ".add-admin erin,erin@example.com\nthanks", want: Command{Action: classroom.ActionAddAdmin, User: classroom.User{Handle: "erin", Email: "erin@example.com"}}},
		{body: ".remove-user carol", want: Command{Action: classroom.ActionRemoveUser, User: classroom.User{Handle: "carol"}}},
		{body: ".remove-admin erin,erin@example.com", want: Command{Action: classroom.ActionRemoveAdmin, User: classroom.User{Handle: "erin", Email: "erin@example.com"}}},
		{body: ".add-user carol", message: "Invalid Format! Try `.add-user handle,email`"},
		{body: ".add-user", message: "Invalid Format! Try `.add-user handle,email`"},
		{body: ".add-user carol,a,b", message: "Invalid Format! Try `.add-user handle,email`"},
		{body: ".add-user carol, carol@example.com", message: "Invalid Format! Try `.add-user handle,email`"},
		{body: ".add-username carol,c@example.com", message: "Invalid Format! Try `.add-user handle,email`"},
		{body: ".remove-user not_a_handle!", message: "Invalid Format! Try `.remove-user handle`"},
	}
	for _, test := range tests {
		got, err := ParseCommand(test.body)
		if test.message != "" {
			if !errors.Is(err, classroom.ErrInvalidCommandFormat) {
				t.Errorf("ParseCommand(%q) error = %v, want ErrInvalidCommandFormat", test.body, err)
				continue
			}
			if err.Error() != test.message {
				t.Errorf("ParseCommand(%q) message = %q, want %q", test.body, err.Error(), test.message)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCommand(%q): %v", test.body, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", test.body, got, test.want)
		}
	}
}

func TestDecodeEvent(t *testing.T) {
	payload := `{
		"action": "created",
		"issue": {"number": 7, "state": "open", "body": "### Customer Name"},
		"comment": {"id": 99, "body": ".add-user carol,carol@example.com"},
		"repository": {"name": "class-requests", "full_name": "ghi-org/class-requests"},
		"sender": {"login": "inst"}
	}`
	event, err := DecodeEvent(EventIssueComment, []byte(payload))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if event.Issue.Number != 7 || event.Sender.Login != "inst" || event.Repository.FullName != "ghi-org/class-requests" {
		t.Errorf("decoded %+v", event)
	}
	if Route(event) != classroom.ActionAddUser {
		t.Errorf("Route = %q, want add-user", Route(event))
	}
	if _, err := DecodeEvent(EventIssues, []byte("{")); err == nil {
		t.Error("DecodeEvent accepted truncated JSON")
	}
}

func TestHandleCreate(t *testing.T) {
	h := newHarness(t, march10)
	issue := h.addRequest(requestBody("2026-03-11", "alice,alice@example.com", "bob,bob@example.com"))

	if err := h.dispatcher.Handle(context.Background(), issuesEvent("opened", issue, "inst")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !h.fake.HasTeam("gh-int-na1") {
		t.Error("team not created")
	}
	for _, name := range []string{"gh-int-na1-alice", "gh-int-na1-bob"} {
		if !h.fake.HasRepository(testOrg, name) {
			t.Errorf("repository %s missing", name)
		}
	}
	updated, _ := h.fake.Issue(testOrg, testRepo, issue.Number)
	if !updated.HasLabel(DefaultProvisionedLabel) {
		t.Error("provisioned label missing")
	}
	comments := h.fake.Comments(testOrg, testRepo, issue.Number)
	if len(comments) != 1 {
		t.Fatalf("comments = %v, want one summary", comments)
	}
	for _, want := range []string{
		"**Class Request Complete**",
		"| alice | [`ghi-org/gh-int-na1-alice`](https://github.com/ghi-org/gh-int-na1-alice) |",
		"The `ghi-org/gh-int-na1` team has been granted access",
		"**2026-03-11**",
	} {
		if !strings.Contains(comments[0], want) {
			t.Errorf("summary missing %q:\n%s", want, comments[0])
		}
	}
}

func TestHandleUnauthorized(t *testing.T) {
	h := newHarness(t, march10)
	issue := h.addRequest(requestBody("2026-03-11", "alice,alice@example.com"))

	err := h.dispatcher.Handle(context.Background(), issuesEvent("opened", issue, "mallory"))
	if !errors.Is(err, classroom.ErrUnauthorized) {
		t.Fatalf("Handle error = %v, want ErrUnauthorized", err)
	}
	if h.fake.HasTeam("gh-int-na1") {
		t.Error("unauthorized request created a team")
	}
	comments := h.fake.Comments(testOrg, testRepo, issue.Number)
	want := "There was an error processing your request: `Unauthorized: mallory is not an instructor`"
	if len(comments) != 1 || comments[0] != want {
		t.Errorf("comments = %q, want %q", comments, want)
	}
}

func TestHandleIgnores(t *testing.T) {
	h := newHarness(t, march10)
	issue := h.addRequest(requestBody("2026-03-11"))

	events := []Event{
		issuesEvent("labeled", issue, "inst"),
		commentEvent(issue, "looks good", "inst"),
		issuesEvent("closed", issue, "gh-intermediate-issueops[bot]"),
	}
	other := issuesEvent("opened", issue, "inst")
	other.Repository.FullName = "ghi-org/elsewhere"
	events = append(events, other)

	for _, event := range events {
		if err := h.dispatcher.Handle(context.Background(), event); err != nil {
			t.Errorf("Handle(%s/%s): %v", event.Name, event.Action, err)
		}
	}
	if calls := h.fake.Calls(); len(calls) != 0 {
		t.Errorf("ignored events made calls: %v", calls)
	}
}

func TestHandleReportsParseFailure(t *testing.T) {
	h := newHarness(t, march10)
	issue := h.addRequest(strings.Replace(requestBody("2026-03-11"), "Northwind", "_No response_", 1))

	err := h.dispatcher.Handle(context.Background(), issuesEvent("opened", issue, "inst"))
	if err == nil {
		t.Fatal("Handle accepted a request without a customer name")
	}
	comments := h.fake.Comments(testOrg, testRepo, issue.Number)
	want := "There was an error processing your request: `Customer Name Not Found`"
	if len(comments) != 1 || comments[0] != want {
		t.Errorf("comments = %q, want %q", comments, want)
	}
}

func TestHandleCommands(t *testing.T) {
	h := newHarness(t, march10)
	issue := h.addRequest(requestBody("2026-03-11", "alice,alice@example.com"))
	ctx := context.Background()
	if err := h.dispatcher.Handle(ctx, issuesEvent("opened", issue, "inst")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := h.dispatcher.Handle(ctx, commentEvent(issue, ".add-user carol,carol@example.com", "inst")); err != nil {
		t.Fatalf("add-user: %v", err)
	}
	if !h.fake.HasRepository(testOrg, "gh-int-na1-carol") {
		t.Error("carol's repository missing")
	}

	err := h.dispatcher.Handle(ctx, commentEvent(issue, ".add-user dave", "inst"))
	if !errors.Is(err, classroom.ErrInvalidCommandFormat) {
		t.Errorf("malformed add-user error = %v", err)
	}

	err = h.dispatcher.Handle(ctx, commentEvent(issue, ".remove-admin inst", "inst"))
	if !errors.Is(err, classroom.ErrSelfRemovalForbidden) {
		t.Errorf("self removal error = %v", err)
	}

	if err := h.dispatcher.Handle(ctx, commentEvent(issue, ".remove-user alice", "inst")); err != nil {
		t.Fatalf("remove-user: %v", err)
	}
	if h.fake.HasRepository(testOrg, "gh-int-na1-alice") {
		t.Error("alice's repository kept")
	}

	comments := h.fake.Comments(testOrg, testRepo, issue.Number)
	wantPrefixes := []string{
		":ballot_box_with_check:",
		":white_check_mark: Added @carol as an attendee.",
		"There was an error processing your request: `Invalid Format! Try `.add-user handle,email``",
		"There was an error processing your request: `cannot remove yourself: inst`",
		":wastebasket: Removed attendee @alice",
	}
	if len(comments) != len(wantPrefixes) {
		t.Fatalf("comments = %q", comments)
	}
	for index, prefix := range wantPrefixes {
		if !strings.HasPrefix(comments[index], prefix) {
			t.Errorf("comment %d = %q, want prefix %q", index, comments[index], prefix)
		}
	}
}

func TestHandleCommandsKeepRoster(t *testing.T) {
	h := newHarness(t, march10)
	issue := h.addRequest(requestBody("2026-03-11", "alice,alice@example.com"))
	ctx := context.Background()
	if err := h.dispatcher.Handle(ctx, issuesEvent("opened", issue, "inst")); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Every event carries the body as it was when the issue was opened.
	steps := []string{
		".add-user carol,carol@example.com",
		".add-admin dave,dave@example.com",
		".remove-user carol",
		".remove-admin dave",
	}
	for _, body := range steps {
		if err := h.dispatcher.Handle(ctx, commentEvent(issue, body, "inst")); err != nil {
			t.Fatalf("%s: %v", body, err)
		}
	}
	for _, name := range []string{"gh-int-na1-carol", "gh-int-na1-dave"} {
		if h.fake.HasRepository(testOrg, name) {
			t.Errorf("%s kept after removal", name)
		}
	}

	stored, _ := h.fake.Issue(testOrg, testRepo, issue.Number)
	class, err := issueform.Parse(stored.Body)
	if err != nil {
		t.Fatalf("stored request no longer parses: %v\n%s", err, stored.Body)
	}
	if len(class.Attendees) != 1 || class.Attendees[0].Handle != "alice" {
		t.Errorf("attendees = %+v, want alice", class.Attendees)
	}
	if len(class.Administrators) != 1 || class.Administrators[0].Handle != "inst" {
		t.Errorf("administrators = %+v, want inst", class.Administrators)
	}
	if class.CustomerName != "Northwind" {
		t.Errorf("customer name = %q", class.CustomerName)
	}
}

func TestHandleAddSavesRoster(t *testing.T) {
	h := newHarness(t, march10)
	issue := h.addRequest(requestBody("2026-03-11"))
	ctx := context.Background()
	if err := h.dispatcher.Handle(ctx, issuesEvent("opened", issue, "inst")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.dispatcher.Handle(ctx, commentEvent(issue, ".add-user Carol,Carol@Example.com", "inst")); err != nil {
		t.Fatalf("add-user: %v", err)
	}

	stored, _ := h.fake.Issue(testOrg, testRepo, issue.Number)
	if !strings.Contains(stored.Body, "### Attendees\n\ncarol,carol@example.com\n") {
		t.Errorf("body does not list carol:\n%s", stored.Body)
	}
	if strings.Contains(stored.Body, "_No response_") {
		t.Errorf("placeholder kept:\n%s", stored.Body)
	}
}

func TestHandleCloseOfClosedIssue(t *testing.T) {
	h := newHarness(t, march10)
	issue := h.addRequest(requestBody("2026-03-11", "alice,alice@example.com"))
	ctx := context.Background()
	if err := h.dispatcher.Handle(ctx, issuesEvent("opened", issue, "inst")); err != nil {
		t.Fatalf("create: %v", err)
	}

	state := "closed"
	if _, err := h.fake.UpdateIssue(ctx, testOrg, testRepo, issue.Number, github.UpdateIssueRequest{State: &state}); err != nil {
		t.Fatal(err)
	}
	closed, _ := h.fake.Issue(testOrg, testRepo, issue.Number)
	if err := h.dispatcher.Handle(ctx, issuesEvent("closed", closed, "inst")); err != nil {
		t.Fatalf("close: %v", err)
	}
	if h.fake.HasTeam("gh-int-na1") || h.fake.HasRepository(testOrg, "gh-int-na1-alice") {
		t.Error("class not torn down")
	}
	if comments := h.fake.Comments(testOrg, testRepo, issue.Number); len(comments) != 1 {
		t.Errorf("closing a closed issue commented: %q", comments)
	}
}

func TestExpire(t *testing.T) {
	h := newHarness(t, time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC))
	expired := h.addRequest(requestBody("2026-03-11"))
	running := h.addRequest(strings.Replace(requestBody("2026-12-31"), "na1", "na2", 1))
	broken := h.addRequest("### Customer Name\n\n_No response_\n")
	h.fake.AddIssue(testOrg, testRepo, github.Issue{
		Body:   requestBody("2026-03-01"),
		Labels: []github.Label{{Name: testLabel}},
		PullRequest: &struct {
			URL string `json:"url"`
		}{URL: "https://api.github.com/pulls/9"},
	})
	h.fake.AddTeam("gh-int-na1", nil)
	h.fake.AddTeam("gh-int-na2", nil)

	if err := h.dispatcher.Expire(context.Background()); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if h.fake.HasTeam("gh-int-na1") {
		t.Error("expired class still has a team")
	}
	if !h.fake.HasTeam("gh-int-na2") {
		t.Error("running class was torn down")
	}

	closed, _ := h.fake.Issue(testOrg, testRepo, expired.Number)
	if closed.State != "closed" || closed.StateReason != "completed" {
		t.Errorf("expired issue state = %s/%s, want closed/completed", closed.State, closed.StateReason)
	}
	if comments := h.fake.Comments(testOrg, testRepo, expired.Number); len(comments) != 1 || comments[0] != ClosedMessage {
		t.Errorf("expired issue comments = %q", comments)
	}
	for _, number := range []int{running.Number, broken.Number} {
		if issue, _ := h.fake.Issue(testOrg, testRepo, number); issue.State != "open" {
			t.Errorf("issue #%d state = %s, want open", number, issue.State)
		}
	}

	// A second run finds nothing to do.
	h.fake.ResetCalls()
	if err := h.dispatcher.Expire(context.Background()); err != nil {
		t.Fatalf("second Expire: %v", err)
	}
	if calls := h.fake.CallsTo("DeleteTeam"); len(calls) != 0 {
		t.Errorf("second run deleted teams: %v", calls)
	}
}
