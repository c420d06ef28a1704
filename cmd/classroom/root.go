// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
)

func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "classroom",
		Description: `classroom: GitHub training class automation.

Creates a team and one repository per attendee for a class, keeps
membership in sync while it runs, and removes everything when it ends.
Configuration is read from --config or $CLASSROOM_CONFIG; the access
token from $CLASSROOM_TOKEN, $GITHUB_TOKEN, or github.token_file.`,
		Subcommands: []*cli.Command{
			createCommand(),
			closeCommand(),
			addUserCommand(),
			removeUserCommand(),
			addAdminCommand(),
			removeAdminCommand(),
			statusCommand(),
			eventCommand(),
			expireCommand(),
			serveCommand(),
			tokenCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Provision the class described by ./classroom.json",
				Command:     "classroom create",
			},
			{
				Description: "Add a late attendee",
				Command:     "classroom add-user octocat,octocat@example.com",
			},
			{
				Description: "Handle the current workflow event",
				Command:     "classroom event",
			},
			{
				Description: "Receive webhooks and expire classes daily",
				Command:     "classroom serve --config /etc/classroom/classroom.yaml",
			},
		},
	}
}
