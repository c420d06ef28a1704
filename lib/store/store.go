// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package store reads and writes the local class record,
// classroom.json, used by the command-line surface.
//
// The record is JSON extended with comments and trailing commas:
//
//	{
//	  // Defaults to github.com.
//	  "githubServer": "github.com",
//	  "organization": "ghi-org",
//	  "customerName": "Northwind",
//	  "customerAbbr": "NA1",
//	  "administrators": ["octocat"],
//	  "attendees": ["alice", "bob,bob@example.com"],
//	}
//
// Members are handles, optionally followed by ",email". Writes replace
// the file atomically; comments are not preserved.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/classroom/lib/atomicfile"
	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/issueform"
)

// DefaultServer is used when githubServer is absent or blank.
const DefaultServer = "github.com"

// The messages are printed to the operator verbatim.
var (
	ErrNotFound                  = errors.New("Classroom File Not Found")
	ErrInvalidJSON               = errors.New("Classroom File Not Valid JSON")
	ErrMissingOrganization       = errors.New("Classroom File Missing Organization Field")
	ErrMissingCustomerName       = errors.New("Classroom File Missing Customer Name Field")
	ErrMissingCustomerAbbr       = errors.New("Classroom File Missing Customer Abbreviation Field")
	ErrMissingAdministratorField = errors.New("Classroom File Missing Administrators Field")
	ErrMissingAdministrators     = errors.New("Classroom File Missing Administrators")
	ErrMissingAttendees          = errors.New("Classroom File Missing Attendees Field")
	ErrInvalidOrganization       = errors.New("Organization Field Invalid (Only Alphanumeric, Hyphen, Underscore)")
	ErrInvalidMember             = errors.New("Classroom File Member Invalid")
)

// record is the on-disk layout. Pointers distinguish absent fields
// from empty ones.
type record struct {
	GithubServer   string    `json:"githubServer,omitempty"`
	Organization   *string   `json:"organization"`
	CustomerName   *string   `json:"customerName"`
	CustomerAbbr   *string   `json:"customerAbbr"`
	StartDate      string    `json:"startDate,omitempty"`
	EndDate        string    `json:"endDate,omitempty"`
	Team           string    `json:"team,omitempty"`
	Administrators *[]string `json:"administrators"`
	Attendees      *[]string `json:"attendees"`
}

// Load reads the record at path.
func Load(path string) (classroom.Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return classroom.Class{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return classroom.Class{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a record, checking fields in the order an operator
// would fix them.
func Parse(data []byte) (classroom.Class, error) {
	var file record
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return classroom.Class{}, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	switch {
	case file.Organization == nil:
		return classroom.Class{}, ErrMissingOrganization
	case file.CustomerName == nil:
		return classroom.Class{}, ErrMissingCustomerName
	case file.CustomerAbbr == nil:
		return classroom.Class{}, ErrMissingCustomerAbbr
	case file.Administrators == nil:
		return classroom.Class{}, ErrMissingAdministratorField
	case len(*file.Administrators) == 0:
		return classroom.Class{}, ErrMissingAdministrators
	case file.Attendees == nil:
		return classroom.Class{}, ErrMissingAttendees
	}
	organization := strings.TrimSpace(*file.Organization)
	if !classroom.ValidOrganization(organization) {
		return classroom.Class{}, ErrInvalidOrganization
	}

	class := classroom.Class{
		Server:       strings.TrimSpace(file.GithubServer),
		Organization: organization,
		CustomerName: strings.TrimSpace(*file.CustomerName),
		CustomerAbbr: strings.ToUpper(strings.TrimSpace(*file.CustomerAbbr)),
		Team:         strings.TrimSpace(file.Team),
	}
	if class.Server == "" {
		class.Server = DefaultServer
	}

	var err error
	if class.StartDate, err = parseDate("startDate", file.StartDate); err != nil {
		return classroom.Class{}, err
	}
	if class.EndDate, err = parseDate("endDate", file.EndDate); err != nil {
		return classroom.Class{}, err
	}
	if class.Administrators, err = parseMembers(*file.Administrators); err != nil {
		return classroom.Class{}, err
	}
	if class.Attendees, err = parseMembers(*file.Attendees); err != nil {
		return classroom.Class{}, err
	}
	return class, nil
}

func parseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	date, ok := issueform.ParseDate(value)
	if !ok {
		return time.Time{}, fmt.Errorf("Classroom File %s Invalid: %q", field, value)
	}
	return date, nil
}

func parseMembers(entries []string) ([]classroom.User, error) {
	users := make([]classroom.User, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, ",") {
			users = append(users, classroom.NewUser(entry, ""))
			continue
		}
		user, err := issueform.ParseUser(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMember, entry)
		}
		users = append(users, user)
	}
	return users, nil
}

// Encode renders class as an indented record.
func Encode(class classroom.Class) ([]byte, error) {
	file := record{
		GithubServer:   class.Server,
		Organization:   &class.Organization,
		CustomerName:   &class.CustomerName,
		CustomerAbbr:   &class.CustomerAbbr,
		Team:           class.Team,
		Administrators: encodeMembers(class.Administrators),
		Attendees:      encodeMembers(class.Attendees),
	}
	if !class.StartDate.IsZero() {
		file.StartDate = class.StartDate.Format(time.DateOnly)
	}
	if !class.EndDate.IsZero() {
		file.EndDate = class.EndDate.Format(time.DateOnly)
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding class record: %w", err)
	}
	return append(data, '\n'), nil
}

func encodeMembers(users []classroom.User) *[]string {
	entries := make([]string, 0, len(users))
	for _, user := range users {
		if user.Email != "" {
			entries = append(entries, user.Handle+","+user.Email)
		} else {
			entries = append(entries, user.Handle)
		}
	}
	return &entries
}

// Save writes class to path atomically.
func Save(path string, class classroom.Class) error {
	data, err := Encode(class)
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving class record: %w", err)
	}
	return nil
}
