// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classroom

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Action names a lifecycle operation.
type Action string

const (
	ActionNone        Action = ""
	ActionCreate      Action = "create"
	ActionClose       Action = "close"
	ActionExpire      Action = "expire"
	ActionAddAdmin    Action = "add-admin"
	ActionAddUser     Action = "add-user"
	ActionRemoveAdmin Action = "remove-admin"
	ActionRemoveUser  Action = "remove-user"
)

// HandleScoped reports whether the action operates on one member.
func (action Action) HandleScoped() bool {
	switch action {
	case ActionAddAdmin, ActionAddUser, ActionRemoveAdmin, ActionRemoveUser:
		return true
	}
	return false
}

// User is a class member. Handle is the identity; Email is optional
// and only feeds exemption checks.
type User struct {
	Handle string `json:"handle"`
	Email  string `json:"email,omitempty"`
}

// NewUser returns a User with the handle normalized to lowercase and
// both fields trimmed.
func NewUser(handle, email string) User {
	return User{
		Handle: strings.ToLower(strings.TrimSpace(handle)),
		Email:  strings.ToLower(strings.TrimSpace(email)),
	}
}

// Class is one training engagement.
type Class struct {
	// Server is the GitHub host, "github.com" unless Enterprise Server.
	Server string

	// Organization hosts the class team and repositories.
	Organization string

	CustomerName string

	// CustomerAbbr is stored uppercase and prefixes every derived
	// resource name in lowercase.
	CustomerAbbr string

	// StartDate and EndDate are calendar days in UTC. Classes loaded
	// from a local record may leave them zero; a zero EndDate never
	// expires.
	StartDate time.Time
	EndDate   time.Time

	Administrators []User
	Attendees      []User

	// Team is the slug of the class team once it has been created.
	Team string
}

var (
	handlePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9]|-[a-z0-9]){0,38}$`)
	abbrPattern   = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_]*$`)
	orgPattern    = regexp.MustCompile(`^[a-zA-Z0-9-_]+$`)
)

// ValidOrganization reports whether name uses only alphanumerics,
// hyphens, and underscores.
func ValidOrganization(name string) bool {
	return orgPattern.MatchString(name)
}

// ValidAbbreviation reports whether abbr may name a class: letters,
// digits and '_', case-insensitive.
func ValidAbbreviation(abbr string) bool {
	return abbrPattern.MatchString(strings.ToUpper(abbr))
}

// ValidHandle reports whether handle is a well-formed GitHub login.
func ValidHandle(handle string) bool {
	return handlePattern.MatchString(strings.ToLower(handle))
}

// Normalize returns a copy with strings trimmed, the abbreviation
// uppercased, and member handles lowercased.
func (class Class) Normalize() Class {
	normalized := class.clone()
	normalized.Server = strings.TrimSpace(normalized.Server)
	normalized.Organization = strings.TrimSpace(normalized.Organization)
	normalized.CustomerName = strings.TrimSpace(normalized.CustomerName)
	normalized.CustomerAbbr = strings.ToUpper(strings.TrimSpace(normalized.CustomerAbbr))
	for index, user := range normalized.Administrators {
		normalized.Administrators[index] = NewUser(user.Handle, user.Email)
	}
	for index, user := range normalized.Attendees {
		normalized.Attendees[index] = NewUser(user.Handle, user.Email)
	}
	return normalized
}

// Validate reports every problem that prevents the class from being
// provisioned.
func (class Class) Validate() error {
	var problems []error
	if class.Organization == "" {
		problems = append(problems, errors.New("organization is required"))
	}
	if class.CustomerName == "" {
		problems = append(problems, errors.New("customer name is required"))
	}
	if class.CustomerAbbr == "" {
		problems = append(problems, errors.New("customer abbreviation is required"))
	} else if !ValidAbbreviation(class.CustomerAbbr) {
		// Repository names join the abbreviation and handle with '-'.
		problems = append(problems, fmt.Errorf("customer abbreviation %q may only contain letters, digits and '_'", class.CustomerAbbr))
	}
	if len(class.Administrators) == 0 {
		problems = append(problems, errors.New("at least one administrator is required"))
	}
	if !class.StartDate.IsZero() && !class.EndDate.IsZero() && class.EndDate.Before(class.StartDate) {
		problems = append(problems, fmt.Errorf("end date %s is before start date %s",
			class.EndDate.Format(time.DateOnly), class.StartDate.Format(time.DateOnly)))
	}
	for _, user := range class.Administrators {
		if !ValidHandle(user.Handle) {
			problems = append(problems, fmt.Errorf("invalid administrator handle %q", user.Handle))
		}
	}
	for _, user := range class.Attendees {
		if !ValidHandle(user.Handle) {
			problems = append(problems, fmt.Errorf("invalid attendee handle %q", user.Handle))
		}
	}
	return errors.Join(problems...)
}

// Expired reports whether the class's last day ended before now. The
// end date is a full day of class: expiry comes at midnight UTC after
// it, one day later than treating the end date itself as the cutoff.
func (class Class) Expired(now time.Time) bool {
	if class.EndDate.IsZero() {
		return false
	}
	return !now.Before(class.EndDate.AddDate(0, 0, 1))
}

// IsAdministrator reports whether handle is listed as an administrator.
func (class Class) IsAdministrator(handle string) bool {
	return indexOf(class.Administrators, handle) >= 0
}

// IsAttendee reports whether handle is listed as an attendee.
func (class Class) IsAttendee(handle string) bool {
	return indexOf(class.Attendees, handle) >= 0
}

// Administrator returns the administrator entry for handle.
func (class Class) Administrator(handle string) (User, bool) {
	if index := indexOf(class.Administrators, handle); index >= 0 {
		return class.Administrators[index], true
	}
	return User{}, false
}

// Attendee returns the attendee entry for handle.
func (class Class) Attendee(handle string) (User, bool) {
	if index := indexOf(class.Attendees, handle); index >= 0 {
		return class.Attendees[index], true
	}
	return User{}, false
}

// Members returns administrators followed by attendees, each handle
// once.
func (class Class) Members() []User {
	var members []User
	seen := make(map[string]bool)
	for _, user := range slices.Concat(class.Administrators, class.Attendees) {
		if !seen[user.Handle] {
			seen[user.Handle] = true
			members = append(members, user)
		}
	}
	return members
}

// WithAttendee returns a copy with user appended to the attendees, or
// with the existing entry's email filled in when already listed.
func (class Class) WithAttendee(user User) Class {
	next := class.clone()
	next.Attendees = upsert(next.Attendees, user)
	return next
}

// WithoutAttendee returns a copy with handle dropped from attendees.
func (class Class) WithoutAttendee(handle string) Class {
	next := class.clone()
	next.Attendees = remove(next.Attendees, handle)
	return next
}

// WithAdministrator returns a copy with user added to administrators.
func (class Class) WithAdministrator(user User) Class {
	next := class.clone()
	next.Administrators = upsert(next.Administrators, user)
	return next
}

// WithoutAdministrator returns a copy with handle dropped from
// administrators.
func (class Class) WithoutAdministrator(handle string) Class {
	next := class.clone()
	next.Administrators = remove(next.Administrators, handle)
	return next
}

// WithTeam returns a copy recording the created team's slug.
func (class Class) WithTeam(slug string) Class {
	next := class.clone()
	next.Team = slug
	return next
}

func (class Class) clone() Class {
	class.Administrators = slices.Clone(class.Administrators)
	class.Attendees = slices.Clone(class.Attendees)
	return class
}

func indexOf(users []User, handle string) int {
	handle = strings.ToLower(strings.TrimSpace(handle))
	return slices.IndexFunc(users, func(user User) bool { return user.Handle == handle })
}

func upsert(users []User, user User) []User {
	if index := indexOf(users, user.Handle); index >= 0 {
		if users[index].Email == "" {
			users[index].Email = user.Email
		}
		return users
	}
	return append(users, user)
}

func remove(users []User, handle string) []User {
	handle = strings.ToLower(strings.TrimSpace(handle))
	return slices.DeleteFunc(users, func(user User) bool { return user.Handle == handle })
}
