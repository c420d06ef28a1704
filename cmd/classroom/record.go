// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/issueops"
	"github.com/bureau-foundation/classroom/lib/store"
)

type recordParams struct {
	configParams
	Record string `flag:"record,r" desc:"class record file (default: paths.record)"`
}

// openRecord loads the configuration and the class record, then
// connects.
func openRecord(params *recordParams, logger *slog.Logger) (*connection, classroom.Class, string, error) {
	cfg, err := loadConfig(params.Config)
	if err != nil {
		return nil, classroom.Class{}, "", err
	}
	path := params.Record
	if path == "" {
		path = cfg.Paths.Record
	}
	class, err := store.Load(path)
	if err != nil {
		return nil, classroom.Class{}, "", err
	}
	adoptClass(cfg, class)
	conn, err := connect(cfg, logger)
	if err != nil {
		return nil, classroom.Class{}, "", err
	}
	return conn, class, path, nil
}

// recordCommand builds a record-mode command around operation.
func recordCommand(name, summary, description string, operation func(ctx context.Context, s *stack, path string, class classroom.Class, args []string) error) *cli.Command {
	var params recordParams
	return &cli.Command{
		Name:        name,
		Summary:     summary,
		Description: description,
		Params:      func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			conn, class, path, err := openRecord(&params, logger)
			if err != nil {
				return err
			}
			defer conn.close()
			return operation(ctx, conn.stack, path, class, args)
		},
	}
}

func createCommand() *cli.Command {
	command := recordCommand("create", "Provision the team and attendee repositories",
		`Create the class team, add every administrator and attendee, and
provision one repository per attendee from the template. Fails without
changing anything when the team or any repository already exists. The
team slug is written back to the record.`,
		func(ctx context.Context, s *stack, path string, class classroom.Class, args []string) error {
			if len(args) != 0 {
				return errors.New("create takes no arguments")
			}
			return createRecord(ctx, s, path, class)
		})
	command.Usage = "classroom create [--record classroom.json]"
	return command
}

func createRecord(ctx context.Context, s *stack, path string, class classroom.Class) error {
	result, err := s.controller.Create(ctx, class)
	if result.Team != "" && result.Team != class.Team {
		if saveErr := store.Save(path, result); saveErr != nil {
			s.logger.Error("recording team slug", "path", path, "error", saveErr)
		}
	}
	return err
}

func closeCommand() *cli.Command {
	command := recordCommand("close", "Delete repositories, revoke access, and delete the team",
		`Delete every class repository, remove non-exempt members from the
organization (cancelling pending invitations), and delete the team.
Safe to repeat.`,
		func(ctx context.Context, s *stack, path string, class classroom.Class, args []string) error {
			if len(args) != 0 {
				return errors.New("close takes no arguments")
			}
			return s.controller.Close(ctx, class)
		})
	command.Usage = "classroom close [--record classroom.json]"
	return command
}

func addUserCommand() *cli.Command {
	return memberCommand(classroom.ActionAddUser, "Add an attendee and provision their repository",
		`Add handle to the class team as a member and provision the attendee
repository. A repository left half-configured by an earlier run is
finished instead.`)
}

func removeUserCommand() *cli.Command {
	return memberCommand(classroom.ActionRemoveUser, "Remove an attendee",
		`Delete the attendee repository, remove handle from the team, and
revoke organization access unless handle is exempt.`)
}

func addAdminCommand() *cli.Command {
	return memberCommand(classroom.ActionAddAdmin, "Add a class administrator",
		`Add handle to the class team as a maintainer.`)
}

func removeAdminCommand() *cli.Command {
	return memberCommand(classroom.ActionRemoveAdmin, "Remove a class administrator",
		`Remove handle from the team and revoke organization access unless
handle is exempt. The authenticated account cannot remove itself.`)
}

func memberCommand(action classroom.Action, summary, description string) *cli.Command {
	argument := "handle,email"
	if action == classroom.ActionRemoveUser || action == classroom.ActionRemoveAdmin {
		argument = "handle"
	}
	command := recordCommand(string(action), summary, description,
		func(ctx context.Context, s *stack, path string, class classroom.Class, args []string) error {
			user, err := parseMember(action, args)
			if err != nil {
				return err
			}
			return changeMember(ctx, s, path, class, action, user)
		})
	command.Usage = fmt.Sprintf("classroom %s %s [--record classroom.json]", action, argument)
	return command
}

// parseMember accepts "handle,email" or "handle email", with the same
// rules as the issue comment commands.
func parseMember(action classroom.Action, args []string) (classroom.User, error) {
	argument := strings.Join(args, ",")
	parsed, err := issueops.ParseCommand("." + string(action) + " " + argument)
	if err != nil || len(args) == 0 || len(args) > 2 {
		want := "handle,email"
		if action == classroom.ActionRemoveUser || action == classroom.ActionRemoveAdmin {
			want = "handle"
		}
		return classroom.User{}, fmt.Errorf("%s: invalid argument %q (want %s)", action, argument, want)
	}
	return parsed.User, nil
}

func changeMember(ctx context.Context, s *stack, path string, class classroom.Class, action classroom.Action, user classroom.User) error {
	var (
		updated classroom.Class
		err     error
	)
	switch action {
	case classroom.ActionAddUser:
		updated, err = s.controller.AddUser(ctx, class, user)
	case classroom.ActionAddAdmin:
		updated, err = s.controller.AddAdmin(ctx, class, user)
	case classroom.ActionRemoveUser:
		updated, err = s.controller.RemoveUser(ctx, class, user.Handle)
	case classroom.ActionRemoveAdmin:
		updated, err = s.controller.RemoveAdmin(ctx, class, user.Handle)
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
	if err != nil {
		return err
	}
	if err := store.Save(path, updated); err != nil {
		return err
	}
	s.logger.Info("class record updated", "path", path, "action", string(action), "handle", user.Handle)
	return nil
}
