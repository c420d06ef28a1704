// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issueops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
)

// ClosedMessage is posted when a class is torn down.
const ClosedMessage = "It looks like this request was closed. Access has been revoked!"

// IssuesAPI is the issue tracker surface the notifier and source use.
type IssuesAPI interface {
	GetIssue(ctx context.Context, owner, repo string, number int) (*github.Issue, error)
	ListIssues(ctx context.Context, owner, repo string, options github.ListIssuesOptions) ([]github.Issue, error)
	UpdateIssue(ctx context.Context, owner, repo string, number int, request github.UpdateIssueRequest) (*github.Issue, error)
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*github.Comment, error)
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error
}

// IssueNotifier reports lifecycle outcomes on one class request issue.
// It implements lifecycle.Notifier.
type IssueNotifier struct {
	Client IssuesAPI

	// Owner and Repository locate the issueops repository.
	Owner      string
	Repository string
	Number     int

	// Server is the web host used in repository links.
	Server string

	// ProvisionedLabel is added once the class is created.
	ProvisionedLabel string

	Naming classroom.Naming
	Logger *slog.Logger
}

func (notifier *IssueNotifier) logger() *slog.Logger {
	if notifier.Logger == nil {
		return slog.Default()
	}
	return notifier.Logger
}

func (notifier *IssueNotifier) comment(ctx context.Context, body string) error {
	if _, err := notifier.Client.CreateIssueComment(ctx, notifier.Owner, notifier.Repository, notifier.Number, body); err != nil {
		return fmt.Errorf("commenting on issue #%d: %w", notifier.Number, err)
	}
	return nil
}

// Created labels the issue as provisioned and posts the repository
// table.
func (notifier *IssueNotifier) Created(ctx context.Context, class classroom.Class, repositories []github.Repository) error {
	if notifier.ProvisionedLabel != "" {
		if err := notifier.Client.AddLabels(ctx, notifier.Owner, notifier.Repository, notifier.Number, []string{notifier.ProvisionedLabel}); err != nil {
			return fmt.Errorf("labelling issue #%d: %w", notifier.Number, err)
		}
	}
	return notifier.comment(ctx, CreatedMessage(class, repositories, notifier.Naming, notifier.Server))
}

// Closed comments and closes the issue as completed. An issue that is
// already closed is left alone, so repeated teardown posts nothing.
func (notifier *IssueNotifier) Closed(ctx context.Context, class classroom.Class) error {
	issue, err := notifier.Client.GetIssue(ctx, notifier.Owner, notifier.Repository, notifier.Number)
	if err != nil {
		return fmt.Errorf("reading issue #%d: %w", notifier.Number, err)
	}
	if issue.State != "open" {
		notifier.logger().Info("issue already closed", "issue", notifier.Number)
		return nil
	}
	if err := notifier.comment(ctx, ClosedMessage); err != nil {
		return err
	}
	state, reason := "closed", "completed"
	if _, err := notifier.Client.UpdateIssue(ctx, notifier.Owner, notifier.Repository, notifier.Number, github.UpdateIssueRequest{
		State:       &state,
		StateReason: &reason,
	}); err != nil {
		return fmt.Errorf("closing issue #%d: %w", notifier.Number, err)
	}
	return nil
}

// MemberChanged posts a one-line confirmation.
func (notifier *IssueNotifier) MemberChanged(ctx context.Context, class classroom.Class, action classroom.Action, user classroom.User) error {
	return notifier.comment(ctx, MemberMessage(class, action, user, notifier.Naming, notifier.Server))
}

// Failed posts the error on the issue.
func (notifier *IssueNotifier) Failed(ctx context.Context, failure error) error {
	return notifier.comment(ctx, FailureMessage(failure))
}

// FailureMessage is the comment body for a failed request.
func FailureMessage(failure error) string {
	return fmt.Sprintf("There was an error processing your request: `%s`", failure.Error())
}

func repositoryURL(server, owner, name string) string {
	if server == "" {
		server = "github.com"
	}
	return fmt.Sprintf("https://%s/%s/%s", server, owner, name)
}

// CreatedMessage renders the summary posted when a class is
// provisioned.
func CreatedMessage(class classroom.Class, repositories []github.Repository, naming classroom.Naming, server string) string {
	var body strings.Builder
	body.WriteString(":ballot_box_with_check: **Class Request Complete**\n\n")
	body.WriteString("Your request has been provisioned! The following repositories have been created for each attendee:\n\n")
	body.WriteString("| Attendee | Repository |\n")
	body.WriteString("|----------|------------|\n")
	for _, repository := range repositories {
		handle, ok := naming.HandleFromRepository(class, repository.Name)
		if !ok {
			handle = repository.Name
		}
		link := repository.HTMLURL
		if link == "" {
			link = repositoryURL(server, class.Organization, repository.Name)
		}
		fmt.Fprintf(&body, "| %s | [`%s/%s`](%s) |\n", handle, class.Organization, repository.Name, link)
	}
	team := class.Team
	if team == "" {
		team = naming.Team(class)
	}
	fmt.Fprintf(&body, "\nThe `%s/%s` team has been granted access to each repository.\n\n", class.Organization, team)
	body.WriteString("### :warning: **IMPORTANT** :warning:\n\n")
	if !class.EndDate.IsZero() {
		fmt.Fprintf(&body, "- The listed repositories will be automatically **deleted** after **%s**.\n",
			class.EndDate.Format(time.DateOnly))
	}
	body.WriteString("- Do not close this issue! Doing so will immediately revoke access and delete the attendee repositories.\n")
	return body.String()
}

// MemberMessage renders the confirmation for a membership change.
func MemberMessage(class classroom.Class, action classroom.Action, user classroom.User, naming classroom.Naming, server string) string {
	repository := naming.Repository(class, user.Handle)
	switch action {
	case classroom.ActionAddUser:
		return fmt.Sprintf(":white_check_mark: Added @%s as an attendee. Repository: [`%s/%s`](%s)",
			user.Handle, class.Organization, repository, repositoryURL(server, class.Organization, repository))
	case classroom.ActionAddAdmin:
		return fmt.Sprintf(":white_check_mark: Added @%s as an administrator. Repository: [`%s/%s`](%s)",
			user.Handle, class.Organization, repository, repositoryURL(server, class.Organization, repository))
	case classroom.ActionRemoveUser:
		return fmt.Sprintf(":wastebasket: Removed attendee @%s and deleted `%s/%s`.", user.Handle, class.Organization, repository)
	case classroom.ActionRemoveAdmin:
		return fmt.Sprintf(":wastebasket: Removed administrator @%s and deleted `%s/%s`.", user.Handle, class.Organization, repository)
	}
	return fmt.Sprintf("Processed `%s` for @%s.", action, user.Handle)
}
