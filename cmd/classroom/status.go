// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/classroom"
)

type statusParams struct {
	cli.JSONOutput
	recordParams
	Check bool `flag:"check" desc:"exit 1 when the team or any attendee repository is missing"`
}

// classStatus is the status report; it is also the --json schema.
type classStatus struct {
	Organization   string             `json:"organization"`
	CustomerName   string             `json:"customer_name"`
	CustomerAbbr   string             `json:"customer_abbr"`
	StartDate      string             `json:"start_date,omitempty"`
	EndDate        string             `json:"end_date,omitempty"`
	Expired        bool               `json:"expired"`
	Team           string             `json:"team"`
	TeamExists     bool               `json:"team_exists"`
	Administrators []string           `json:"administrators"`
	Repositories   []repositoryStatus `json:"repositories"`
}

type repositoryStatus struct {
	Handle string `json:"handle"`
	Name   string `json:"name"`
	Exists bool   `json:"exists"`
}

// complete reports whether the team and every repository exist.
func (status classStatus) complete() bool {
	if !status.TeamExists {
		return false
	}
	for _, repository := range status.Repositories {
		if !repository.Exists {
			return false
		}
	}
	return true
}

func statusCommand() *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show the class record and which resources exist",
		Description: `Print the class record with the existence of the team and of each
attendee repository. Nothing is changed.`,
		Usage:  "classroom status [--record classroom.json] [--json] [--check]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("status takes no arguments")
			}
			conn, class, _, err := openRecord(&params.recordParams, logger)
			if err != nil {
				return err
			}
			defer conn.close()

			status, err := inspect(ctx, conn.stack, class)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(status); !done {
				printStatus(os.Stdout, status)
			} else if err != nil {
				return err
			}
			if params.Check && !status.complete() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func inspect(ctx context.Context, s *stack, class classroom.Class) (classStatus, error) {
	class = class.Normalize()
	status := classStatus{
		Organization: class.Organization,
		CustomerName: class.CustomerName,
		CustomerAbbr: class.CustomerAbbr,
		Expired:      class.Expired(time.Now()),
		Team:         s.teams.Name(class),
	}
	if !class.StartDate.IsZero() {
		status.StartDate = class.StartDate.Format(time.DateOnly)
	}
	if !class.EndDate.IsZero() {
		status.EndDate = class.EndDate.Format(time.DateOnly)
	}
	for _, user := range class.Administrators {
		status.Administrators = append(status.Administrators, user.Handle)
	}

	exists, err := s.teams.Exists(ctx, class)
	if err != nil {
		return status, err
	}
	status.TeamExists = exists
	for _, user := range class.Attendees {
		exists, err := s.provisioner.Exists(ctx, class, user.Handle)
		if err != nil {
			return status, err
		}
		status.Repositories = append(status.Repositories, repositoryStatus{
			Handle: user.Handle,
			Name:   s.provisioner.RepositoryName(class, user.Handle),
			Exists: exists,
		})
	}
	return status, nil
}

func printStatus(w io.Writer, status classStatus) {
	fmt.Fprintf(w, "%s (%s) in %s\n", status.CustomerName, status.CustomerAbbr, status.Organization)
	if status.StartDate != "" || status.EndDate != "" {
		fmt.Fprintf(w, "Dates: %s to %s", status.StartDate, status.EndDate)
		if status.Expired {
			fmt.Fprint(w, " (ended)")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Team: %s (%s)\n", status.Team, existence(status.TeamExists))
	fmt.Fprintf(w, "Administrators: %d\n", len(status.Administrators))
	if len(status.Repositories) == 0 {
		fmt.Fprintln(w, "No attendees.")
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tREPOSITORY\tSTATE")
	for _, repository := range status.Repositories {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", repository.Handle, repository.Name, existence(repository.Exists))
	}
	tw.Flush()
}

func existence(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}
