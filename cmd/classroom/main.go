// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command classroom automates the lifecycle of GitHub training classes:
// it provisions a team and one repository per attendee, manages
// membership while the class runs, and revokes access when it ends.
//
// It runs in three modes. Record mode drives one class from a local
// classroom.json. Actions mode ("classroom event") handles a single
// issue event from a workflow run. Service mode ("classroom serve")
// receives webhook deliveries and closes expired classes on a
// schedule.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCommand().Execute(ctx, os.Args[1:])
	stop()

	// Commands that printed their own outcome return an ExitError.
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}
	if err != nil {
		process.Fatal(err)
	}
}
