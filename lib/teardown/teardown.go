// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package teardown revokes everything a class granted. The order is
// fixed: repositories first, then organization access for every
// non-exempt member, then the team. Each step treats "already gone" as
// success, so a teardown can be repeated until it completes.
package teardown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/membership"
)

// API is the organization surface teardown mutates directly.
type API interface {
	RemoveOrgMember(ctx context.Context, org, username string) error
	ListPendingInvitations(ctx context.Context, org string) ([]github.Invitation, error)
	CancelInvitation(ctx context.Context, org string, invitationID int64) error
}

// Repositories deletes class repositories. *provision.Provisioner
// satisfies it.
type Repositories interface {
	Delete(ctx context.Context, class classroom.Class, handle string) error
	DeleteRepositories(ctx context.Context, class classroom.Class, handles []string) error
}

// Team manages the class team. *team.Manager satisfies it.
type Team interface {
	Members(ctx context.Context, class classroom.Class) ([]classroom.User, error)
	RemoveUser(ctx context.Context, class classroom.Class, handle string) error
	Delete(ctx context.Context, class classroom.Class) error
}

// Resolver answers membership and exemption questions.
// *membership.Resolver satisfies it.
type Resolver interface {
	MembershipState(ctx context.Context, org, handle string) (membership.State, error)
	Exemption(ctx context.Context, user classroom.User) (membership.Exemption, error)
}

// Config configures an Orchestrator.
type Config struct {
	Client       API
	Repositories Repositories
	Team         Team
	Resolver     Resolver
	Logger       *slog.Logger
}

// Orchestrator sequences class teardown.
type Orchestrator struct {
	client       API
	repositories Repositories
	team         Team
	resolver     Resolver
	logger       *slog.Logger
}

// New creates an Orchestrator.
func New(config Config) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:       config.Client,
		repositories: config.Repositories,
		team:         config.Team,
		resolver:     config.Resolver,
		logger:       logger,
	}
}

// Teardown deletes every class repository, revokes organization access
// for each non-exempt member, and deletes the team. The member set is
// the current team membership plus everyone the class record lists, so
// members added outside the record and invitees who never joined are
// both covered. A failing step stops teardown before the next step.
func (orchestrator *Orchestrator) Teardown(ctx context.Context, class classroom.Class) error {
	members, err := orchestrator.members(ctx, class)
	if err != nil {
		return err
	}
	handles := make([]string, 0, len(members))
	for _, user := range members {
		handles = append(handles, user.Handle)
	}

	orchestrator.logger.Info("deleting class repositories", "members", len(handles))
	if err := orchestrator.repositories.DeleteRepositories(ctx, class, handles); err != nil {
		return fmt.Errorf("deleting repositories: %w", err)
	}

	var failures []error
	for _, user := range members {
		if err := orchestrator.Revoke(ctx, class, user); err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("revoking organization access: %w", errors.Join(failures...))
	}

	if err := orchestrator.team.Delete(ctx, class); err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}
	return nil
}

// RemoveMember removes one member from a running class: organization
// access (unless exempt), then the member's repository, then the team
// membership.
func (orchestrator *Orchestrator) RemoveMember(ctx context.Context, class classroom.Class, user classroom.User) error {
	if err := orchestrator.Revoke(ctx, class, user); err != nil {
		return err
	}
	if err := orchestrator.repositories.Delete(ctx, class, user.Handle); err != nil {
		return fmt.Errorf("deleting repository of %s: %w", user.Handle, err)
	}
	if err := orchestrator.team.RemoveUser(ctx, class, user.Handle); err != nil {
		return fmt.Errorf("removing %s from team: %w", user.Handle, err)
	}
	return nil
}

// Revoke removes user's organization membership, or cancels the
// pending invitation. Exempt and absent users are left alone.
func (orchestrator *Orchestrator) Revoke(ctx context.Context, class classroom.Class, user classroom.User) error {
	logger := orchestrator.logger.With("handle", user.Handle)
	exemption, err := orchestrator.resolver.Exemption(ctx, user)
	if err != nil {
		return err
	}
	if exemption != membership.NotExempt {
		logger.Info("exempt from organization removal", "exemption", exemption)
		return nil
	}

	state, err := orchestrator.resolver.MembershipState(ctx, class.Organization, user.Handle)
	if err != nil {
		return fmt.Errorf("membership of %s: %w", user.Handle, err)
	}
	switch state {
	case membership.StateActive:
		if err := orchestrator.client.RemoveOrgMember(ctx, class.Organization, user.Handle); err != nil && !github.IsNotFound(err) {
			return fmt.Errorf("removing %s from %s: %w", user.Handle, class.Organization, err)
		}
		logger.Info("removed from organization")
	case membership.StatePending:
		if err := orchestrator.cancelInvitation(ctx, class.Organization, user.Handle); err != nil {
			return err
		}
	default:
		logger.Debug("not an organization member")
	}
	return nil
}

func (orchestrator *Orchestrator) cancelInvitation(ctx context.Context, org, handle string) error {
	invitations, err := orchestrator.client.ListPendingInvitations(ctx, org)
	if err != nil {
		return fmt.Errorf("listing invitations of %s: %w", org, err)
	}
	for _, invitation := range invitations {
		if !strings.EqualFold(invitation.Login, handle) {
			continue
		}
		if err := orchestrator.client.CancelInvitation(ctx, org, invitation.ID); err != nil && !github.IsNotFound(err) {
			return fmt.Errorf("cancelling invitation of %s: %w", handle, err)
		}
		orchestrator.logger.Info("invitation cancelled", "handle", handle)
		return nil
	}
	orchestrator.logger.Debug("no pending invitation found", "handle", handle)
	return nil
}

// members unions the team's members with the class record, team
// entries first.
func (orchestrator *Orchestrator) members(ctx context.Context, class classroom.Class) ([]classroom.User, error) {
	fromTeam, err := orchestrator.team.Members(ctx, class)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]int)
	var members []classroom.User
	for _, user := range append(fromTeam, class.Members()...) {
		if index, ok := seen[user.Handle]; ok {
			// The record's email helps the partner-domain check.
			if members[index].Email == "" {
				members[index].Email = user.Email
			}
			continue
		}
		seen[user.Handle] = len(members)
		members = append(members, user)
	}
	return members, nil
}
