// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package membership

import (
	"context"
	"errors"
	"testing"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/github/githubtest"
)

func newResolver(fake *githubtest.Fake) *Resolver {
	return NewResolver(Config{
		Client:         fake,
		PartnerDomains: []string{"@microsoft.com"},
		Instructors:    NewInstructors("Octocat"),
	})
}

func TestMembershipState(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.SetMembership("alice", "active")
	fake.SetMembership("carol", "pending")
	resolver := newResolver(fake)
	ctx := context.Background()

	tests := []struct {
		handle string
		want   State
	}{
		{handle: "alice", want: StateActive},
		{handle: "carol", want: StatePending},
		{handle: "ghost", want: StateAbsent},
	}
	for _, test := range tests {
		got, err := resolver.MembershipState(ctx, "githubschool", test.handle)
		if err != nil {
			t.Fatalf("MembershipState(%s): %v", test.handle, err)
		}
		if got != test.want {
			t.Errorf("MembershipState(%s) = %s, want %s", test.handle, got, test.want)
		}
	}
}

func TestMembershipStatePropagatesOtherErrors(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.Failures["GetOrgMembership"] = &github.APIError{StatusCode: 500, Message: "boom"}

	_, err := newResolver(fake).MembershipState(context.Background(), "githubschool", "alice")
	var apiError *github.APIError
	if !errors.As(err, &apiError) || apiError.StatusCode != 500 {
		t.Fatalf("error = %v, want the 500 passed through", err)
	}
}

func TestExemption(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.SetIdentity(github.UserIdentity{Login: "mona", IsEmployee: true})
	fake.SetIdentity(github.UserIdentity{Login: "satya", Email: "satya@microsoft.com"})
	fake.SetIdentity(github.UserIdentity{Login: "eve", Email: "eve@notmicrosoft.com"})
	resolver := newResolver(fake)
	ctx := context.Background()

	tests := []struct {
		name string
		user classroom.User
		want Exemption
	}{
		{name: "instructor, case folded", user: classroom.User{Handle: "octocat"}, want: ExemptInstructor},
		{name: "employee", user: classroom.User{Handle: "mona"}, want: ExemptEmployee},
		{name: "partner public email", user: classroom.User{Handle: "satya"}, want: ExemptPartner},
		{name: "partner class email", user: classroom.User{Handle: "kevin", Email: "kevin@microsoft.com"}, want: ExemptPartner},
		{name: "partner subdomain", user: classroom.User{Handle: "kim", Email: "kim@eu.microsoft.com"}, want: ExemptPartner},
		{name: "lookalike domain", user: classroom.User{Handle: "eve"}, want: NotExempt},
		{name: "unknown", user: classroom.User{Handle: "alice", Email: "alice@example.com"}, want: NotExempt},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := resolver.Exemption(ctx, test.user)
			if err != nil {
				t.Fatalf("Exemption: %v", err)
			}
			if got != test.want {
				t.Errorf("Exemption = %q, want %q", got, test.want)
			}
		})
	}
}

func TestInstructorSkipsIdentityLookup(t *testing.T) {
	fake := githubtest.New("githubschool")
	exempt, err := newResolver(fake).IsExempt(context.Background(), classroom.User{Handle: "octocat"})
	if err != nil || !exempt {
		t.Fatalf("IsExempt = %v, %v; want true", exempt, err)
	}
	if calls := fake.CallsTo("GetUserIdentity"); len(calls) != 0 {
		t.Errorf("GetUserIdentity called for an instructor: %v", calls)
	}
}

func TestExemptionLookupFailure(t *testing.T) {
	fake := githubtest.New("githubschool")
	fake.Failures["GetUserIdentity"] = &github.APIError{StatusCode: 502}

	if _, err := newResolver(fake).Exemption(context.Background(), classroom.User{Handle: "alice"}); err == nil {
		t.Fatal("expected the lookup failure to propagate")
	}
}
