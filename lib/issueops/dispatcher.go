// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package issueops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/issueform"
	"github.com/bureau-foundation/classroom/lib/lifecycle"
	"github.com/bureau-foundation/classroom/lib/membership"
)

// Defaults for Config labels.
const (
	DefaultClassLabel       = "gh-intermediate-class"
	DefaultProvisionedLabel = "provisioned"
)

// UnauthorizedError rejects an event from an account outside the
// instructor list. It wraps classroom.ErrUnauthorized.
type UnauthorizedError struct {
	Actor string
}

func (err *UnauthorizedError) Error() string {
	return fmt.Sprintf("Unauthorized: %s is not an instructor", err.Actor)
}

func (err *UnauthorizedError) Unwrap() error { return classroom.ErrUnauthorized }

// Config configures a Dispatcher.
type Config struct {
	Client     IssuesAPI
	Controller *lifecycle.Controller

	// Instructors may trigger operations.
	Instructors *membership.Instructors

	// Owner and Repository locate the issueops repository holding
	// class requests.
	Owner      string
	Repository string

	// Organization hosts the classes.
	Organization string
	Server       string
	Naming       classroom.Naming

	ClassLabel       string
	ProvisionedLabel string

	// Self is the login the service acts as. Events it sent, and
	// events from any "[bot]" account, are ignored.
	Self string

	Logger *slog.Logger
}

// Dispatcher turns issue events into lifecycle operations.
type Dispatcher struct {
	client           IssuesAPI
	controller       *lifecycle.Controller
	instructors      *membership.Instructors
	owner            string
	repository       string
	organization     string
	server           string
	naming           classroom.Naming
	classLabel       string
	provisionedLabel string
	self             string
	logger           *slog.Logger
}

// New creates a Dispatcher.
func New(config Config) (*Dispatcher, error) {
	if config.Client == nil || config.Controller == nil {
		return nil, errors.New("issueops: Client and Controller are required")
	}
	if config.Owner == "" || config.Repository == "" {
		return nil, errors.New("issueops: Owner and Repository are required")
	}
	if config.Organization == "" {
		return nil, errors.New("issueops: Organization is required")
	}
	if config.Instructors == nil {
		return nil, errors.New("issueops: Instructors is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := &Dispatcher{
		client:           config.Client,
		controller:       config.Controller,
		instructors:      config.Instructors,
		owner:            config.Owner,
		repository:       config.Repository,
		organization:     config.Organization,
		server:           config.Server,
		naming:           config.Naming,
		classLabel:       config.ClassLabel,
		provisionedLabel: config.ProvisionedLabel,
		self:             config.Self,
		logger:           logger,
	}
	if dispatcher.server == "" {
		dispatcher.server = "github.com"
	}
	if dispatcher.classLabel == "" {
		dispatcher.classLabel = DefaultClassLabel
	}
	if dispatcher.provisionedLabel == "" {
		dispatcher.provisionedLabel = DefaultProvisionedLabel
	}
	return dispatcher, nil
}

// Source returns the open class requests for expiry.
func (dispatcher *Dispatcher) Source() IssueSource {
	return IssueSource{dispatcher: dispatcher}
}

func (dispatcher *Dispatcher) notifier(number int) *IssueNotifier {
	return &IssueNotifier{
		Client:           dispatcher.client,
		Owner:            dispatcher.owner,
		Repository:       dispatcher.repository,
		Number:           number,
		Server:           dispatcher.server,
		ProvisionedLabel: dispatcher.provisionedLabel,
		Naming:           dispatcher.naming,
		Logger:           dispatcher.logger,
	}
}

func (dispatcher *Dispatcher) ignoredSender(login string) bool {
	if strings.HasSuffix(login, "[bot]") {
		return true
	}
	return dispatcher.self != "" && strings.EqualFold(login, dispatcher.self)
}

// Handle runs the operation an event requests. Events that request
// nothing are logged and ignored. A failed operation is reported on
// the issue and returned.
func (dispatcher *Dispatcher) Handle(ctx context.Context, event Event) error {
	action := Route(event)
	logger := dispatcher.logger.With("event", event.Name, "event_action", event.Action, "issue", event.Issue.Number)
	if action == classroom.ActionNone {
		logger.Info("ignoring event")
		return nil
	}
	if event.Repository.FullName != "" && !strings.EqualFold(event.Repository.FullName, dispatcher.owner+"/"+dispatcher.repository) {
		logger.Info("ignoring event from another repository", "repository", event.Repository.FullName)
		return nil
	}
	if dispatcher.ignoredSender(event.Sender.Login) {
		logger.Info("ignoring event sent by automation", "sender", event.Sender.Login)
		return nil
	}

	notifier := dispatcher.notifier(event.Issue.Number)
	err := dispatcher.dispatch(ctx, action, event, notifier)
	if err != nil {
		if commentErr := notifier.Failed(ctx, err); commentErr != nil {
			logger.Error("reporting failure on issue", "error", commentErr)
		}
		return fmt.Errorf("issue #%d %s: %w", event.Issue.Number, action, err)
	}
	return nil
}

func (dispatcher *Dispatcher) dispatch(ctx context.Context, action classroom.Action, event Event, notifier *IssueNotifier) error {
	actor := event.Sender.Login
	if !dispatcher.instructors.Contains(actor) {
		return &UnauthorizedError{Actor: actor}
	}

	issue := event.Issue
	var command Command
	if action.HandleScoped() {
		var err error
		command, err = ParseCommand(event.Comment.Body)
		if err != nil {
			return err
		}
		// The roster lives in the issue body, which an earlier command
		// may have rewritten after this event was sent.
		current, err := dispatcher.client.GetIssue(ctx, dispatcher.owner, dispatcher.repository, issue.Number)
		if err != nil {
			return fmt.Errorf("reading class request #%d: %w", issue.Number, err)
		}
		issue = *current
	}

	class, err := dispatcher.classFromIssue(issue)
	if err != nil {
		return err
	}

	controller := dispatcher.controller.WithTrigger(lifecycle.Trigger{Actor: actor, Notifier: notifier})
	switch action {
	case classroom.ActionCreate:
		_, err = controller.Create(ctx, class)
	case classroom.ActionClose:
		err = controller.Close(ctx, class)
	case classroom.ActionAddUser, classroom.ActionAddAdmin, classroom.ActionRemoveUser, classroom.ActionRemoveAdmin:
		var updated classroom.Class
		updated, err = dispatcher.changeMember(ctx, controller, action, class, command.User)
		if err == nil {
			err = dispatcher.saveRoster(ctx, issue, updated)
		}
	default:
		err = fmt.Errorf("unsupported action %q", action)
	}
	return err
}

func (dispatcher *Dispatcher) changeMember(ctx context.Context, controller *lifecycle.Controller, action classroom.Action, class classroom.Class, user classroom.User) (classroom.Class, error) {
	switch action {
	case classroom.ActionAddUser:
		return controller.AddUser(ctx, class, user)
	case classroom.ActionAddAdmin:
		return controller.AddAdmin(ctx, class, user)
	case classroom.ActionRemoveUser:
		return controller.RemoveUser(ctx, class, user.Handle)
	default:
		return controller.RemoveAdmin(ctx, class, user.Handle)
	}
}

// saveRoster writes the class's administrators and attendees back into
// the request issue so later commands and expiry see the change.
func (dispatcher *Dispatcher) saveRoster(ctx context.Context, issue github.Issue, class classroom.Class) error {
	body := issueform.SetUsers(issue.Body, issueform.FieldAdministrators, class.Administrators)
	body = issueform.SetUsers(body, issueform.FieldAttendees, class.Attendees)
	if body == issue.Body {
		return nil
	}
	if _, err := dispatcher.client.UpdateIssue(ctx, dispatcher.owner, dispatcher.repository, issue.Number, github.UpdateIssueRequest{Body: &body}); err != nil {
		return fmt.Errorf("saving roster on class request #%d: %w", issue.Number, err)
	}
	return nil
}

// Expire closes every open class request whose end date has passed.
func (dispatcher *Dispatcher) Expire(ctx context.Context) error {
	return dispatcher.controller.Expire(ctx, dispatcher.Source())
}
