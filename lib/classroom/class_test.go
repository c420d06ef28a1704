// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classroom

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleClass() Class {
	return Class{
		Server:         "github.com",
		Organization:   "githubschool",
		CustomerName:   "Northwind Traders",
		CustomerAbbr:   "NA1",
		StartDate:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Administrators: []User{{Handle: "bob", Email: "bob@example.com"}},
		Attendees:      []User{{Handle: "alice"}},
	}
}

func TestNormalize(t *testing.T) {
	class := Class{
		Organization:   " githubschool ",
		CustomerName:   "  Northwind ",
		CustomerAbbr:   " na1 ",
		Administrators: []User{{Handle: " Bob ", Email: "Bob@Example.com "}},
		Attendees:      []User{{Handle: "ALICE"}},
	}
	normalized := class.Normalize()

	if normalized.CustomerAbbr != "NA1" {
		t.Errorf("CustomerAbbr = %q, want NA1", normalized.CustomerAbbr)
	}
	if normalized.CustomerName != "Northwind" || normalized.Organization != "githubschool" {
		t.Errorf("strings not trimmed: %+v", normalized)
	}
	if normalized.Administrators[0] != (User{Handle: "bob", Email: "bob@example.com"}) {
		t.Errorf("administrator = %+v", normalized.Administrators[0])
	}
	if class.Attendees[0].Handle != "ALICE" {
		t.Error("Normalize modified the receiver's attendees")
	}
}

func TestValidate(t *testing.T) {
	if err := sampleClass().Validate(); err != nil {
		t.Fatalf("Validate(sample) = %v", err)
	}

	class := sampleClass()
	class.CustomerName = ""
	class.CustomerAbbr = "N A"
	class.Administrators = nil
	class.Attendees = []User{{Handle: "-bad"}}
	err := class.Validate()
	if err == nil {
		t.Fatal("Validate accepted an invalid class")
	}
	for _, want := range []string{"customer name", "abbreviation", "at least one administrator", `invalid attendee handle "-bad"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error %q does not mention %q", err, want)
		}
	}
}

func TestValidateRejectsHyphenatedAbbreviation(t *testing.T) {
	for abbr, valid := range map[string]bool{"NA1": true, "NA_1": true, "NA1-B": false, "-NA": false} {
		class := sampleClass()
		class.CustomerAbbr = abbr
		err := class.Validate()
		if valid && err != nil {
			t.Errorf("Validate(%q) = %v", abbr, err)
		}
		if !valid && (err == nil || !strings.Contains(err.Error(), "abbreviation")) {
			t.Errorf("Validate(%q) = %v, want an abbreviation error", abbr, err)
		}
	}
}

func TestExpired(t *testing.T) {
	class := sampleClass()
	tests := []struct {
		now  time.Time
		want bool
	}{
		{now: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), want: false},
		{now: time.Date(2026, 3, 4, 23, 59, 0, 0, time.UTC), want: false},
		{now: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), want: true},
		{now: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), want: true},
	}
	for _, test := range tests {
		if got := class.Expired(test.now); got != test.want {
			t.Errorf("Expired(%v) = %v, want %v", test.now, got, test.want)
		}
	}

	class.EndDate = time.Time{}
	if class.Expired(time.Now()) {
		t.Error("a class without an end date must never expire")
	}
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	original := sampleClass()
	withCarol := original.WithAttendee(NewUser("Carol", "carol@example.com"))

	if len(original.Attendees) != 1 {
		t.Fatalf("original attendees changed: %+v", original.Attendees)
	}
	if !withCarol.IsAttendee("carol") || !withCarol.IsAttendee("alice") {
		t.Errorf("attendees = %+v, want alice and carol", withCarol.Attendees)
	}

	withoutAlice := withCarol.WithoutAttendee("ALICE")
	if withoutAlice.IsAttendee("alice") {
		t.Error("alice still listed after WithoutAttendee")
	}
	if !withCarol.IsAttendee("alice") {
		t.Error("WithoutAttendee modified its receiver")
	}

	promoted := original.WithAdministrator(NewUser("alice", "")).WithoutAdministrator("bob")
	if !promoted.IsAdministrator("alice") || promoted.IsAdministrator("bob") {
		t.Errorf("administrators = %+v", promoted.Administrators)
	}
	if !original.IsAdministrator("bob") {
		t.Error("administrator change leaked into the original")
	}
}

func TestWithAttendeeFillsEmail(t *testing.T) {
	class := sampleClass().WithAttendee(NewUser("alice", "alice@example.com"))
	if len(class.Attendees) != 1 {
		t.Fatalf("duplicate attendee added: %+v", class.Attendees)
	}
	if class.Attendees[0].Email != "alice@example.com" {
		t.Errorf("email = %q, want it filled in", class.Attendees[0].Email)
	}
}

func TestMembersDeduplicates(t *testing.T) {
	class := sampleClass().WithAttendee(NewUser("bob", ""))
	members := class.Members()
	if len(members) != 2 || members[0].Handle != "bob" || members[1].Handle != "alice" {
		t.Errorf("Members = %+v, want bob then alice", members)
	}
}

func TestPreconditionError(t *testing.T) {
	err := Precondition(ErrTeamAlreadyExists, "gh-int-na1")
	if !errors.Is(err, ErrTeamAlreadyExists) {
		t.Error("errors.Is did not match the kind")
	}
	if !IsPrecondition(err) {
		t.Error("IsPrecondition = false")
	}
	if err.Error() != "team already exists: gh-int-na1" {
		t.Errorf("Error() = %q", err.Error())
	}
	if IsPrecondition(errors.New("boom")) {
		t.Error("IsPrecondition matched a plain error")
	}
}
