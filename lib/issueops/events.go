// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issueops

import (
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
)

// Event names delivered by GitHub.
const (
	EventIssues       = "issues"
	EventIssueComment = "issue_comment"
	EventPing         = "ping"
)

// Event is the subset of an issues or issue_comment payload the
// dispatcher reads.
type Event struct {
	// Name is the event type, from the X-GitHub-Event header or
	// GITHUB_EVENT_NAME.
	Name string `json:"-"`

	Action     string            `json:"action"`
	Issue      github.Issue      `json:"issue"`
	Comment    *github.Comment   `json:"comment,omitempty"`
	Repository github.Repository `json:"repository"`
	Sender     github.User       `json:"sender"`
}

// DecodeEvent parses a webhook payload.
func DecodeEvent(name string, payload []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, fmt.Errorf("decoding %s payload: %w", name, err)
	}
	event.Name = name
	return event, nil
}

// Route returns the lifecycle action an event requests, or
// classroom.ActionNone when the event is not for this system.
func Route(event Event) classroom.Action {
	switch event.Name {
	case EventIssues:
		switch event.Action {
		case "opened", "edited":
			return classroom.ActionCreate
		case "closed":
			return classroom.ActionClose
		}
	case EventIssueComment:
		if event.Action != "created" || event.Comment == nil {
			return classroom.ActionNone
		}
		if event.Issue.PullRequest != nil {
			return classroom.ActionNone
		}
		return commandAction(event.Comment.Body)
	}
	return classroom.ActionNone
}
