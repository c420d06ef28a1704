// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/issueops"
)

type eventParams struct {
	configParams
	Name       string `flag:"name" env:"GITHUB_EVENT_NAME" desc:"event type (issues, issue_comment)"`
	Payload    string `flag:"payload" env:"GITHUB_EVENT_PATH" desc:"path of the event payload JSON"`
	Actor      string `flag:"actor" env:"GITHUB_ACTOR" desc:"account that triggered the event (default: the payload sender)"`
	Repository string `flag:"repository" env:"GITHUB_REPOSITORY" desc:"issueops repository when the configuration names none"`
}

func eventCommand() *cli.Command {
	var params eventParams
	return &cli.Command{
		Name:    "event",
		Summary: "Handle one issue event from a workflow run",
		Description: `Read an issues or issue_comment event and run the operation it asks
for: opening or editing a class request creates the class, closing it
tears the class down, and a .add-user, .remove-user, .add-admin or
.remove-admin comment changes membership. Outcomes are reported on the
issue. Inside GitHub Actions every flag defaults from the workflow
environment.`,
		Usage:  "classroom event [--name issues --payload event.json]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("event takes no arguments")
			}
			event, err := readEvent(params.Name, params.Payload, params.Actor)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(params.Config)
			if err != nil {
				return err
			}
			conn, err := connect(cfg, logger)
			if err != nil {
				return err
			}
			defer conn.close()

			dispatcher, err := conn.dispatcher(params.Repository, "")
			if err != nil {
				return err
			}
			return dispatcher.Handle(ctx, event)
		},
	}
}

// readEvent loads the payload at path. A non-empty actor replaces the
// payload sender.
func readEvent(name, path, actor string) (issueops.Event, error) {
	if name == "" || path == "" {
		return issueops.Event{}, errors.New("event name and payload are required (--name, --payload, or the GITHUB_EVENT_* variables)")
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return issueops.Event{}, fmt.Errorf("reading event payload: %w", err)
	}
	event, err := issueops.DecodeEvent(name, payload)
	if err != nil {
		return issueops.Event{}, err
	}
	if actor != "" {
		event.Sender.Login = actor
	}
	return event, nil
}

func expireCommand() *cli.Command {
	var params struct {
		configParams
		Repository string `flag:"repository" env:"GITHUB_REPOSITORY" desc:"issueops repository when the configuration names none"`
	}
	return &cli.Command{
		Name:    "expire",
		Summary: "Close every class whose end date has passed",
		Description: `List the open class requests in the issueops repository and tear down
each class whose end date is over. A class ends at the close of its end
date in UTC. One failing class does not stop the others.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("expire takes no arguments")
			}
			cfg, err := loadConfig(params.Config)
			if err != nil {
				return err
			}
			conn, err := connect(cfg, logger)
			if err != nil {
				return err
			}
			defer conn.close()

			dispatcher, err := conn.dispatcher(params.Repository, "")
			if err != nil {
				return err
			}
			return dispatcher.Expire(ctx)
		},
	}
}
