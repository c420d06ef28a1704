// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/github"
)

// Notifier reports lifecycle outcomes to whoever asked for them.
type Notifier interface {
	// Created reports a provisioned class and its repositories.
	Created(ctx context.Context, class classroom.Class, repositories []github.Repository) error

	// Closed reports a torn-down class. It must be safe to call for a
	// class that was already reported closed.
	Closed(ctx context.Context, class classroom.Class) error

	// MemberChanged reports a completed add or remove.
	MemberChanged(ctx context.Context, class classroom.Class, action classroom.Action, user classroom.User) error
}

// LogNotifier reports outcomes as log lines.
type LogNotifier struct {
	Logger *slog.Logger
}

func (notifier LogNotifier) logger() *slog.Logger {
	if notifier.Logger == nil {
		return slog.Default()
	}
	return notifier.Logger
}

func (notifier LogNotifier) Created(ctx context.Context, class classroom.Class, repositories []github.Repository) error {
	for _, repository := range repositories {
		notifier.logger().Info("attendee repository", "class", class.CustomerAbbr, "repository", repository.FullName, "url", repository.HTMLURL)
	}
	notifier.logger().Info("class provisioned", "class", class.CustomerAbbr, "team", class.Team, "repositories", len(repositories))
	return nil
}

func (notifier LogNotifier) Closed(ctx context.Context, class classroom.Class) error {
	notifier.logger().Info("class closed, access revoked", "class", class.CustomerAbbr)
	return nil
}

func (notifier LogNotifier) MemberChanged(ctx context.Context, class classroom.Class, action classroom.Action, user classroom.User) error {
	notifier.logger().Info("class membership updated", "class", class.CustomerAbbr, "action", action, "handle", user.Handle)
	return nil
}
