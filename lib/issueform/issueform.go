// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package issueform reads a class request from the body of an issue
// created with the class request form.
//
// The form renders each field as a level-three heading followed by the
// answer. Unanswered fields carry the placeholder "_No response_".
// Administrators and attendees are one "handle,email" pair per line.
package issueform

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/bureau-foundation/classroom/lib/classroom"
)

// Field headings.
const (
	FieldCustomerName   = "Customer Name"
	FieldCustomerAbbr   = "Customer Abbreviation"
	FieldStartDate      = "Start Date"
	FieldEndDate        = "End Date"
	FieldAdministrators = "Administrators"
	FieldAttendees      = "Attendees"
)

// NoResponse is the placeholder for an unanswered field.
const NoResponse = "_No response_"

// The messages are posted back to the issue verbatim.
var (
	ErrEmptyBody             = errors.New("Issue Body is Empty")
	ErrCustomerNameNotFound  = errors.New("Customer Name Not Found")
	ErrCustomerAbbrNotFound  = errors.New("Customer Abbreviation Not Found")
	ErrStartDateNotFound     = errors.New("Start Date Not Found")
	ErrEndDateNotFound       = errors.New("End Date Not Found")
	ErrInvalidStartDate      = errors.New("Invalid Start Date")
	ErrInvalidEndDate        = errors.New("Invalid End Date")
	ErrAdministratorRequired = errors.New("At Least One Administrator Required")
	ErrInvalidUser           = errors.New("invalid user line")

	errNoAnswer = errors.New("no answer")
)

// UserError reports a malformed administrator or attendee line.
type UserError struct {
	// Role is "Administrator" or "Attendee".
	Role string
	Line string
}

func (err *UserError) Error() string {
	return fmt.Sprintf("Invalid %s: %s (must be 'handle,email' format)", err.Role, err.Line)
}

func (err *UserError) Unwrap() error { return ErrInvalidUser }

// dateLayouts are tried in order.
var dateLayouts = []string{
	time.DateOnly,
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParserInstance
}

// section is one level-three heading. The answer beneath it spans
// source[bodyStart:end].
type section struct {
	name      string
	lineStart int
	bodyStart int
	end       int
}

func parseSections(source []byte) []section {
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	var sections []section
	for node := document.FirstChild(); node != nil; node = node.NextSibling() {
		current, ok := node.(*ast.Heading)
		if !ok || current.Level != 3 || current.Lines().Len() == 0 {
			continue
		}
		var name strings.Builder
		lines := current.Lines()
		for index := range lines.Len() {
			segment := lines.At(index)
			name.Write(segment.Value(source))
		}
		first := lines.At(0)
		last := lines.At(lines.Len() - 1)
		lineStart := bytes.LastIndexByte(source[:first.Start], '\n') + 1
		bodyStart := len(source)
		if newline := bytes.IndexByte(source[last.Stop:], '\n'); newline >= 0 {
			bodyStart = last.Stop + newline + 1
		}
		sections = append(sections, section{
			name:      strings.TrimSpace(strings.TrimRight(name.String(), "# ")),
			lineStart: lineStart,
			bodyStart: bodyStart,
			end:       len(source),
		})
	}
	for index := range sections {
		if index+1 < len(sections) {
			sections[index].end = sections[index+1].lineStart
		}
	}
	return sections
}

// Sections splits body into level-three heading sections, mapping the
// heading text to the trimmed markdown beneath it. When a heading
// repeats, the first occurrence wins.
func Sections(body string) map[string]string {
	source := []byte(strings.ReplaceAll(body, "\r\n", "\n"))
	parsed := parseSections(source)
	sections := make(map[string]string, len(parsed))
	for _, current := range parsed {
		if _, seen := sections[current.name]; seen {
			continue
		}
		value := ""
		if current.bodyStart < current.end {
			value = strings.TrimSpace(string(source[current.bodyStart:current.end]))
		}
		sections[current.name] = value
	}
	return sections
}

// SetUsers returns body with the answer to field replaced by users, one
// "handle,email" line each, or NoResponse when users is empty. The
// field's section is appended when body has none. Line endings are
// normalized to "\n".
func SetUsers(body, field string, users []classroom.User) string {
	lines := make([]string, 0, len(users))
	for _, user := range users {
		lines = append(lines, user.Handle+","+user.Email)
	}
	value := NoResponse
	if len(lines) > 0 {
		value = strings.Join(lines, "\n")
	}

	source := strings.ReplaceAll(body, "\r\n", "\n")
	for _, current := range parseSections([]byte(source)) {
		if current.name != field {
			continue
		}
		var replaced strings.Builder
		replaced.WriteString(source[:current.bodyStart])
		if current.bodyStart == len(source) && !strings.HasSuffix(source, "\n") {
			replaced.WriteString("\n")
		}
		replaced.WriteString("\n" + value + "\n")
		if current.end < len(source) {
			replaced.WriteString("\n")
		}
		replaced.WriteString(source[current.end:])
		return replaced.String()
	}
	return strings.TrimRight(source, "\n") + "\n\n### " + field + "\n\n" + value + "\n"
}

// answer returns the trimmed answer to field, or
// errNoAnswer when the field is absent or unanswered.
func answer(sections map[string]string, field string) (string, error) {
	value, ok := sections[field]
	if !ok || value == "" || strings.Contains(strings.ToLower(value), strings.ToLower(NoResponse)) {
		return "", errNoAnswer
	}
	return value, nil
}

// Parse reads a class request. The returned class carries no
// organization; the caller supplies it.
func Parse(body string) (classroom.Class, error) {
	if strings.TrimSpace(body) == "" {
		return classroom.Class{}, ErrEmptyBody
	}
	sections := Sections(body)

	administrators, err := parseUsers(sections, FieldAdministrators, "Administrator")
	if err != nil {
		return classroom.Class{}, err
	}
	attendees, err := parseUsers(sections, FieldAttendees, "Attendee")
	if err != nil {
		return classroom.Class{}, err
	}

	customerName, err := answer(sections, FieldCustomerName)
	if err != nil {
		return classroom.Class{}, ErrCustomerNameNotFound
	}
	customerAbbr, err := answer(sections, FieldCustomerAbbr)
	if err != nil {
		return classroom.Class{}, ErrCustomerAbbrNotFound
	}
	startDate, err := parseDate(sections, FieldStartDate, ErrStartDateNotFound, ErrInvalidStartDate)
	if err != nil {
		return classroom.Class{}, err
	}
	endDate, err := parseDate(sections, FieldEndDate, ErrEndDateNotFound, ErrInvalidEndDate)
	if err != nil {
		return classroom.Class{}, err
	}
	if len(administrators) == 0 {
		return classroom.Class{}, ErrAdministratorRequired
	}

	return classroom.Class{
		CustomerName:   customerName,
		CustomerAbbr:   strings.ToUpper(customerAbbr),
		StartDate:      startDate,
		EndDate:        endDate,
		Administrators: administrators,
		Attendees:      attendees,
	}, nil
}

func parseDate(sections map[string]string, field string, missing, invalid error) (time.Time, error) {
	value, err := answer(sections, field)
	if err != nil {
		return time.Time{}, missing
	}
	if date, ok := ParseDate(value); ok {
		return date, nil
	}
	return time.Time{}, invalid
}

// ParseDate parses a calendar day in any accepted layout, at midnight
// UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if date, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

func parseUsers(sections map[string]string, field, role string) ([]classroom.User, error) {
	value, err := answer(sections, field)
	if err != nil {
		return nil, nil
	}
	var users []classroom.User
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		user, err := ParseUser(line)
		if err != nil {
			return nil, &UserError{Role: role, Line: strings.ToLower(line)}
		}
		users = append(users, user)
	}
	return users, nil
}

// ParseUser parses one "handle,email" pair. A single space may follow
// the comma. Both parts are lowercased.
func ParseUser(line string) (classroom.User, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return classroom.User{}, ErrInvalidUser
	}
	handle := strings.TrimSpace(parts[0])
	if handle == "" {
		return classroom.User{}, ErrInvalidUser
	}
	return classroom.NewUser(handle, parts[1]), nil
}
