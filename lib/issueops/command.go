// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issueops

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/classroom/lib/classroom"
)

// commands maps comment prefixes to actions.
var commands = []struct {
	prefix string
	action classroom.Action
}{
	{".add-admin", classroom.ActionAddAdmin},
	{".add-user", classroom.ActionAddUser},
	{".remove-admin", classroom.ActionRemoveAdmin},
	{".remove-user", classroom.ActionRemoveUser},
}

// Command is a parsed membership command.
type Command struct {
	Action classroom.Action
	User   classroom.User
}

// CommandError reports a malformed command. It wraps
// classroom.ErrInvalidCommandFormat.
type CommandError struct {
	Action classroom.Action
}

func (err *CommandError) Error() string {
	return fmt.Sprintf("Invalid Format! Try `%s`", usage(err.Action))
}

func (err *CommandError) Unwrap() error { return classroom.ErrInvalidCommandFormat }

func usage(action classroom.Action) string {
	switch action {
	case classroom.ActionRemoveUser, classroom.ActionRemoveAdmin:
		return "." + string(action) + " handle"
	}
	return "." + string(action) + " handle,email"
}

func commandAction(body string) classroom.Action {
	body = strings.TrimSpace(body)
	for _, command := range commands {
		if strings.HasPrefix(body, command.prefix) {
			return command.action
		}
	}
	return classroom.ActionNone
}

// ParseCommand parses the first line of a comment. Add commands need
// exactly "handle,email"; remove commands take a handle with an
// optional ",email".
func ParseCommand(body string) (Command, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	action := commandAction(line)
	if action == classroom.ActionNone {
		return Command{}, fmt.Errorf("not a class command: %q", line)
	}

	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != "."+string(action) {
		return Command{}, &CommandError{Action: action}
	}
	handle, email, hasEmail := strings.Cut(fields[1], ",")
	if strings.Contains(email, ",") || !classroom.ValidHandle(handle) {
		return Command{}, &CommandError{Action: action}
	}
	switch action {
	case classroom.ActionAddUser, classroom.ActionAddAdmin:
		if !hasEmail {
			return Command{}, &CommandError{Action: action}
		}
	}
	return Command{Action: action, User: classroom.NewUser(handle, email)}, nil
}
