// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package team manages the one team each class owns. A class team moves
// from absent to created to deleted and is never recreated within a
// class lifecycle.
package team

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
)

// Role is a team membership role.
type Role string

const (
	RoleMember     Role = "member"
	RoleMaintainer Role = "maintainer"
)

// API is the platform surface the manager uses.
type API interface {
	GetTeam(ctx context.Context, org, slug string) (*github.Team, error)
	CreateTeam(ctx context.Context, org string, request github.CreateTeamRequest) (*github.Team, error)
	DeleteTeam(ctx context.Context, org, slug string) error
	AddOrUpdateTeamMembership(ctx context.Context, org, slug, username, role string) (*github.TeamMembership, error)
	GetTeamMembership(ctx context.Context, org, slug, username string) (*github.TeamMembership, error)
	RemoveTeamMembership(ctx context.Context, org, slug, username string) error
	ListTeamMembers(ctx context.Context, org, slug string) ([]github.User, error)
}

// Config configures a Manager.
type Config struct {
	Client API
	Naming classroom.Naming

	// DescriptionPrefix precedes the customer name in the team
	// description. Defaults to "GitHub Intermediate".
	DescriptionPrefix string

	Logger *slog.Logger
}

// Manager owns the team-per-class abstraction.
type Manager struct {
	client            API
	naming            classroom.Naming
	descriptionPrefix string
	logger            *slog.Logger
}

// NewManager creates a Manager.
func NewManager(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	descriptionPrefix := config.DescriptionPrefix
	if descriptionPrefix == "" {
		descriptionPrefix = "GitHub Intermediate"
	}
	return &Manager{
		client:            config.Client,
		naming:            config.Naming,
		descriptionPrefix: descriptionPrefix,
		logger:            logger,
	}
}

// Name returns the class team's name, which is also its slug.
func (manager *Manager) Name(class classroom.Class) string {
	if class.Team != "" {
		return class.Team
	}
	return manager.naming.Team(class)
}

// Exists reports whether the class team exists.
func (manager *Manager) Exists(ctx context.Context, class classroom.Class) (bool, error) {
	_, err := manager.client.GetTeam(ctx, class.Organization, manager.Name(class))
	if err != nil {
		if github.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create creates the class team with the administrators as
// maintainers, then adds each attendee as a member. Creating a team
// that already exists fails with classroom.ErrTeamAlreadyExists; Create
// is not idempotent.
func (manager *Manager) Create(ctx context.Context, class classroom.Class) (*github.Team, error) {
	name := manager.naming.Team(class)
	maintainers := make([]string, 0, len(class.Administrators))
	for _, user := range class.Administrators {
		maintainers = append(maintainers, user.Handle)
	}

	created, err := manager.client.CreateTeam(ctx, class.Organization, github.CreateTeamRequest{
		Name:        name,
		Description: manager.descriptionPrefix + " - " + class.CustomerName,
		Maintainers: maintainers,
		Privacy:     "closed",
	})
	if err != nil {
		if github.IsAlreadyExists(err) {
			return nil, classroom.Precondition(classroom.ErrTeamAlreadyExists, name)
		}
		return nil, err
	}
	manager.logger.Info("team created", "team", created.Slug, "maintainers", len(maintainers))

	for _, user := range class.Attendees {
		if class.IsAdministrator(user.Handle) {
			continue
		}
		if err := manager.AddUser(ctx, class.WithTeam(created.Slug), user.Handle, RoleMember); err != nil {
			return created, err
		}
	}
	return created, nil
}

// AddUser adds handle to the team with role, or updates the role of an
// existing member. Safe to repeat.
func (manager *Manager) AddUser(ctx context.Context, class classroom.Class, handle string, role Role) error {
	slug := manager.Name(class)
	membership, err := manager.client.AddOrUpdateTeamMembership(ctx, class.Organization, slug, handle, string(role))
	if err != nil {
		return err
	}
	manager.logger.Info("team member added", "team", slug, "handle", handle, "role", role, "state", membership.State)
	return nil
}

// RemoveUser removes an active member from the team. Absent members
// and pending invitations are left alone; teardown cancels invitations
// at the organization level.
func (manager *Manager) RemoveUser(ctx context.Context, class classroom.Class, handle string) error {
	slug := manager.Name(class)
	membership, err := manager.client.GetTeamMembership(ctx, class.Organization, slug, handle)
	if err != nil {
		if github.IsNotFound(err) {
			manager.logger.Debug("not a team member", "team", slug, "handle", handle)
			return nil
		}
		return err
	}
	if membership.State != "active" {
		manager.logger.Debug("team membership not active, skipping", "team", slug, "handle", handle, "state", membership.State)
		return nil
	}
	if err := manager.client.RemoveTeamMembership(ctx, class.Organization, slug, handle); err != nil {
		if github.IsNotFound(err) {
			return nil
		}
		return err
	}
	manager.logger.Info("team member removed", "team", slug, "handle", handle)
	return nil
}

// Delete deletes the team. A missing team is not an error.
func (manager *Manager) Delete(ctx context.Context, class classroom.Class) error {
	slug := manager.Name(class)
	if err := manager.client.DeleteTeam(ctx, class.Organization, slug); err != nil {
		if github.IsNotFound(err) {
			manager.logger.Debug("team already deleted", "team", slug)
			return nil
		}
		return err
	}
	manager.logger.Info("team deleted", "team", slug)
	return nil
}

// Members lists the team's active members. A missing team has none.
func (manager *Manager) Members(ctx context.Context, class classroom.Class) ([]classroom.User, error) {
	slug := manager.Name(class)
	users, err := manager.client.ListTeamMembers(ctx, class.Organization, slug)
	if err != nil {
		if github.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing team %s: %w", slug, err)
	}
	members := make([]classroom.User, 0, len(users))
	for _, user := range users {
		members = append(members, classroom.NewUser(user.Login, ""))
	}
	return members, nil
}
