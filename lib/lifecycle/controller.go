// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/clock"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/team"
)

// Teams manages the class team. *team.Manager satisfies it.
type Teams interface {
	Name(class classroom.Class) string
	Exists(ctx context.Context, class classroom.Class) (bool, error)
	Create(ctx context.Context, class classroom.Class) (*github.Team, error)
	AddUser(ctx context.Context, class classroom.Class, handle string, role team.Role) error
}

// Repositories provisions attendee repositories.
// *provision.Provisioner satisfies it.
type Repositories interface {
	RepositoryName(class classroom.Class, handle string) string
	Exists(ctx context.Context, class classroom.Class, handle string) (bool, error)
	Provision(ctx context.Context, class classroom.Class, teamSlug, handle, runID string) (*github.Repository, error)
	ProvisionAll(ctx context.Context, class classroom.Class, teamSlug string, handles []string, runID string) ([]github.Repository, error)
	Resume(ctx context.Context, class classroom.Class, handle, runID string) (*github.Repository, error)
}

// Teardown revokes class access. *teardown.Orchestrator satisfies it.
type Teardown interface {
	Teardown(ctx context.Context, class classroom.Class) error
	RemoveMember(ctx context.Context, class classroom.Class, user classroom.User) error
}

// Identity names the authenticated account.
type Identity interface {
	GetAuthenticatedUser(ctx context.Context) (*github.User, error)
}

// Trigger describes who started an operation and where its outcome is
// reported.
type Trigger struct {
	// Actor is the handle that requested the operation. When empty,
	// the authenticated account is used.
	Actor string

	// Notifier receives outcomes. Defaults to a LogNotifier.
	Notifier Notifier
}

// Config configures a Controller.
type Config struct {
	Teams        Teams
	Repositories Repositories
	Teardown     Teardown
	Identity     Identity
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Controller runs lifecycle operations.
type Controller struct {
	teams        Teams
	repositories Repositories
	teardown     Teardown
	identity     Identity
	clock        clock.Clock
	logger       *slog.Logger
	trigger      Trigger
}

// New creates a Controller.
func New(config Config) *Controller {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Controller{
		teams:        config.Teams,
		repositories: config.Repositories,
		teardown:     config.Teardown,
		identity:     config.Identity,
		clock:        clk,
		logger:       logger,
		trigger:      Trigger{Notifier: LogNotifier{Logger: logger}},
	}
}

// WithTrigger returns a Controller reporting to trigger.
func (controller *Controller) WithTrigger(trigger Trigger) *Controller {
	copied := *controller
	if trigger.Notifier == nil {
		trigger.Notifier = LogNotifier{Logger: controller.logger}
	}
	copied.trigger = trigger
	return &copied
}

// run wraps an operation in start and finish log lines sharing a run
// ID.
func (controller *Controller) run(ctx context.Context, action classroom.Action, class classroom.Class, handle string, operation func(runID string, logger *slog.Logger) error) error {
	runID := uuid.NewString()
	logger := controller.logger.With("operation", string(action), "class", class.CustomerAbbr, "run_id", runID)
	if handle != "" {
		logger = logger.With("handle", handle)
	}
	started := controller.clock.Now()
	logger.Info("operation starting")
	err := operation(runID, logger)
	elapsed := controller.clock.Now().Sub(started)
	if err != nil {
		logger.Error("operation failed", "error", err, "elapsed", elapsed)
		return err
	}
	logger.Info("operation finished", "elapsed", elapsed)
	return nil
}

// Create provisions a class: the team, then one repository per
// attendee. It refuses to start when the team or any attendee
// repository already exists. The returned snapshot records the team
// slug even when provisioning fails part way.
func (controller *Controller) Create(ctx context.Context, class classroom.Class) (classroom.Class, error) {
	class = class.Normalize()
	if err := class.Validate(); err != nil {
		return class, fmt.Errorf("invalid class: %w", err)
	}
	result := class
	err := controller.run(ctx, classroom.ActionCreate, class, "", func(runID string, logger *slog.Logger) error {
		exists, err := controller.teams.Exists(ctx, class)
		if err != nil {
			return err
		}
		if exists {
			return classroom.Precondition(classroom.ErrTeamAlreadyExists, controller.teams.Name(class))
		}
		handles := make([]string, 0, len(class.Attendees))
		for _, user := range class.Attendees {
			exists, err := controller.repositories.Exists(ctx, class, user.Handle)
			if err != nil {
				return err
			}
			if exists {
				return classroom.Precondition(classroom.ErrRepositoryAlreadyExists, controller.repositories.RepositoryName(class, user.Handle))
			}
			handles = append(handles, user.Handle)
		}

		created, err := controller.teams.Create(ctx, class)
		if created != nil {
			result = class.WithTeam(created.Slug)
		}
		if err != nil {
			return err
		}

		repositories, err := controller.repositories.ProvisionAll(ctx, result, created.Slug, handles, runID)
		if err != nil {
			return err
		}
		return controller.trigger.Notifier.Created(ctx, result, repositories)
	})
	return result, err
}

// Close tears the class down. Safe to repeat.
func (controller *Controller) Close(ctx context.Context, class classroom.Class) error {
	class = class.Normalize()
	return controller.run(ctx, classroom.ActionClose, class, "", func(runID string, logger *slog.Logger) error {
		if err := controller.teardown.Teardown(ctx, class); err != nil {
			return err
		}
		return controller.trigger.Notifier.Closed(ctx, class)
	})
}

// OpenClass is a class that has not been closed, with the notifier for
// its outcome.
type OpenClass struct {
	Class    classroom.Class
	Notifier Notifier

	// Source names where the class came from, for logs.
	Source string
}

// Source enumerates open classes.
type Source interface {
	OpenClasses(ctx context.Context) ([]OpenClass, error)
}

// Expire closes every open class whose end date has passed. Each class
// is closed independently; the returned error joins every failure.
func (controller *Controller) Expire(ctx context.Context, source Source) error {
	now := controller.clock.Now()
	var failures []error
	err := controller.run(ctx, classroom.ActionExpire, classroom.Class{}, "", func(runID string, logger *slog.Logger) error {
		open, err := source.OpenClasses(ctx)
		if err != nil {
			return fmt.Errorf("listing open classes: %w", err)
		}
		expired := 0
		for _, candidate := range open {
			if !candidate.Class.Expired(now) {
				logger.Debug("class still running", "source", candidate.Source, "class", candidate.Class.CustomerAbbr,
					"end_date", candidate.Class.EndDate.Format(time.DateOnly))
				continue
			}
			expired++
			logger.Info("class expired", "source", candidate.Source, "class", candidate.Class.CustomerAbbr)
			closer := controller.WithTrigger(Trigger{Actor: controller.trigger.Actor, Notifier: candidate.Notifier})
			if err := closer.Close(ctx, candidate.Class); err != nil {
				failures = append(failures, fmt.Errorf("closing %s (%s): %w", candidate.Class.CustomerAbbr, candidate.Source, err))
			}
		}
		logger.Info("expire summary", "open", len(open), "expired", expired, "failed", len(failures))
		return errors.Join(failures...)
	})
	return err
}

// AddUser adds an attendee: team membership, then a provisioned
// repository. Adding a listed attendee whose repository exists does
// nothing. A repository that exists for an unlisted handle is resumed
// rather than recreated.
func (controller *Controller) AddUser(ctx context.Context, class classroom.Class, user classroom.User) (classroom.Class, error) {
	return controller.addMember(ctx, classroom.ActionAddUser, class.Normalize(), user)
}

// AddAdmin adds an administrator as a team maintainer with a
// repository of their own.
func (controller *Controller) AddAdmin(ctx context.Context, class classroom.Class, user classroom.User) (classroom.Class, error) {
	return controller.addMember(ctx, classroom.ActionAddAdmin, class.Normalize(), user)
}

func (controller *Controller) addMember(ctx context.Context, action classroom.Action, class classroom.Class, user classroom.User) (classroom.Class, error) {
	user = classroom.NewUser(user.Handle, user.Email)
	if !classroom.ValidHandle(user.Handle) {
		return class, classroom.Precondition(classroom.ErrInvalidCommandFormat, fmt.Sprintf("%q is not a valid handle", user.Handle))
	}

	result := class
	err := controller.run(ctx, action, class, user.Handle, func(runID string, logger *slog.Logger) error {
		listed := class.IsAttendee(user.Handle)
		role := team.RoleMember
		if action == classroom.ActionAddAdmin {
			listed = class.IsAdministrator(user.Handle)
			role = team.RoleMaintainer
		} else if class.IsAdministrator(user.Handle) {
			// Keep an administrator's maintainer role.
			role = team.RoleMaintainer
		}

		exists, err := controller.repositories.Exists(ctx, class, user.Handle)
		if err != nil {
			return err
		}
		if listed && exists {
			logger.Info("already a class member, nothing to do")
			return nil
		}

		teamExists, err := controller.teams.Exists(ctx, class)
		if err != nil {
			return err
		}
		if !teamExists {
			return fmt.Errorf("class team %s does not exist", controller.teams.Name(class))
		}
		if err := controller.teams.AddUser(ctx, class, user.Handle, role); err != nil {
			return err
		}

		if exists {
			logger.Info("repository exists, resuming configuration")
			_, err = controller.repositories.Resume(ctx, class, user.Handle, runID)
		} else {
			_, err = controller.repositories.Provision(ctx, class, controller.teams.Name(class), user.Handle, runID)
		}
		if err != nil {
			return err
		}

		if action == classroom.ActionAddAdmin {
			result = class.WithAdministrator(user)
		} else {
			result = class.WithAttendee(user)
		}
		return controller.trigger.Notifier.MemberChanged(ctx, result, action, user)
	})
	return result, err
}

// RemoveUser removes an attendee. Administrators must be removed with
// RemoveAdmin.
func (controller *Controller) RemoveUser(ctx context.Context, class classroom.Class, handle string) (classroom.Class, error) {
	class = class.Normalize()
	handle = strings.ToLower(strings.TrimSpace(handle))
	if class.IsAdministrator(handle) {
		return class, classroom.Precondition(classroom.ErrAdministratorHandle, handle)
	}
	user, ok := class.Attendee(handle)
	if !ok {
		return class, classroom.Precondition(classroom.ErrAttendeeNotFound, handle)
	}

	result := class
	err := controller.run(ctx, classroom.ActionRemoveUser, class, handle, func(runID string, logger *slog.Logger) error {
		if err := controller.teardown.RemoveMember(ctx, class, user); err != nil {
			return err
		}
		result = class.WithoutAttendee(handle)
		return controller.trigger.Notifier.MemberChanged(ctx, result, classroom.ActionRemoveUser, user)
	})
	return result, err
}

// RemoveAdmin removes an administrator. The acting account cannot
// remove itself.
func (controller *Controller) RemoveAdmin(ctx context.Context, class classroom.Class, handle string) (classroom.Class, error) {
	class = class.Normalize()
	handle = strings.ToLower(strings.TrimSpace(handle))
	user, ok := class.Administrator(handle)
	if !ok {
		return class, classroom.Precondition(classroom.ErrAdministratorNotFound, handle)
	}
	actor, err := controller.actor(ctx)
	if err != nil {
		return class, err
	}
	if strings.EqualFold(actor, handle) {
		return class, classroom.Precondition(classroom.ErrSelfRemovalForbidden, handle)
	}

	result := class
	err = controller.run(ctx, classroom.ActionRemoveAdmin, class, handle, func(runID string, logger *slog.Logger) error {
		if err := controller.teardown.RemoveMember(ctx, class, user); err != nil {
			return err
		}
		result = class.WithoutAdministrator(handle).WithoutAttendee(handle)
		return controller.trigger.Notifier.MemberChanged(ctx, result, classroom.ActionRemoveAdmin, user)
	})
	return result, err
}

func (controller *Controller) actor(ctx context.Context) (string, error) {
	if controller.trigger.Actor != "" {
		return controller.trigger.Actor, nil
	}
	if controller.identity == nil {
		return "", errors.New("no actor for the self-removal check")
	}
	user, err := controller.identity.GetAuthenticatedUser(ctx)
	if err != nil {
		return "", fmt.Errorf("identifying the acting account: %w", err)
	}
	return user.Login, nil
}
