// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package team

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/github/githubtest"
)

func testClass() classroom.Class {
	return classroom.Class{
		Organization:   "githubschool",
		CustomerName:   "Northwind",
		CustomerAbbr:   "NA1",
		Administrators: []classroom.User{{Handle: "bob"}},
		Attendees:      []classroom.User{{Handle: "alice"}, {Handle: "carol"}},
	}
}

func TestCreate(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.SetMembership("bob", "active")
	manager := NewManager(Config{Client: fake})
	ctx := context.Background()

	exists, err := manager.Exists(ctx, testClass())
	if err != nil || exists {
		t.Fatalf("Exists before create = %v, %v", exists, err)
	}

	created, err := manager.Create(ctx, testClass())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Slug != "gh-int-na1" {
		t.Errorf("Slug = %q, want gh-int-na1", created.Slug)
	}

	members := fake.TeamMembers("gh-int-na1")
	want := map[string]string{"bob": "maintainer", "alice": "member", "carol": "member"}
	for handle, role := range want {
		if members[handle] != role {
			t.Errorf("role of %s = %q, want %q", handle, members[handle], role)
		}
	}

	exists, err = manager.Exists(ctx, testClass())
	if err != nil || !exists {
		t.Fatalf("Exists after create = %v, %v", exists, err)
	}
}

func TestCreateTwiceFails(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.AddTeam("gh-int-na1", nil)
	manager := NewManager(Config{Client: fake})

	_, err := manager.Create(context.Background(), testClass())
	if !errors.Is(err, classroom.ErrTeamAlreadyExists) {
		t.Fatalf("error = %v, want ErrTeamAlreadyExists", err)
	}
}

func TestCreateOtherValidationFailure(t *testing.T) {
	fake := githubtest.New("githubschool")
	invalid := &github.APIError{StatusCode: 422, Message: "Validation Failed", Errors: []github.ValidationError{
		{Resource: "Team", Field: "maintainers", Code: "invalid"},
	}}
	fake.Failures = map[string]error{"CreateTeam": invalid}
	manager := NewManager(Config{Client: fake})

	_, err := manager.Create(context.Background(), testClass())
	if errors.Is(err, classroom.ErrTeamAlreadyExists) {
		t.Fatalf("error = %v, reported as an existing team", err)
	}
	if !github.IsValidationFailed(err) {
		t.Errorf("error = %v, want the validation failure", err)
	}
}

func TestRemoveUser(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.AddTeam("gh-int-na1", map[string]string{"alice": "member", "carol": "member"})
	fake.SetMembership("carol", "pending")
	manager := NewManager(Config{Client: fake})
	ctx := context.Background()

	if err := manager.RemoveUser(ctx, testClass(), "alice"); err != nil {
		t.Fatalf("RemoveUser(alice): %v", err)
	}
	if err := manager.RemoveUser(ctx, testClass(), "carol"); err != nil {
		t.Fatalf("RemoveUser(carol): %v", err)
	}
	if err := manager.RemoveUser(ctx, testClass(), "ghost"); err != nil {
		t.Fatalf("RemoveUser(ghost): %v", err)
	}

	members := fake.TeamMembers("gh-int-na1")
	if _, ok := members["alice"]; ok {
		t.Error("active member alice was not removed")
	}
	if _, ok := members["carol"]; !ok {
		t.Error("pending member carol was removed")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.AddTeam("gh-int-na1", nil)
	manager := NewManager(Config{Client: fake})
	ctx := context.Background()

	for attempt := 0; attempt < 2; attempt++ {
		if err := manager.Delete(ctx, testClass()); err != nil {
			t.Fatalf("Delete attempt %d: %v", attempt, err)
		}
	}
	if fake.HasTeam("gh-int-na1") {
		t.Error("team still exists")
	}
}

func TestMembers(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.AddTeam("gh-int-na1", map[string]string{"alice": "member", "bob": "maintainer"})
	manager := NewManager(Config{Client: fake})

	members, err := manager.Members(context.Background(), testClass())
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 || members[0].Handle != "alice" || members[1].Handle != "bob" {
		t.Errorf("Members = %+v", members)
	}

	fake.ResetCalls()
	missing := testClass()
	missing.CustomerAbbr = "ZZ9"
	members, err = manager.Members(context.Background(), missing)
	if err != nil || len(members) != 0 {
		t.Errorf("Members of a missing team = %+v, %v", members, err)
	}
}

func TestExistsPropagatesErrors(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.Failures["GetTeam"] = &github.APIError{StatusCode: 403, Message: "Resource not accessible by integration"}

	if _, err := NewManager(Config{Client: fake}).Exists(context.Background(), testClass()); err == nil {
		t.Fatal("expected a 403 to propagate")
	}
}
