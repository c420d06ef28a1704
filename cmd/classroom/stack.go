// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/clock"
	"github.com/bureau-foundation/classroom/lib/config"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/issueops"
	"github.com/bureau-foundation/classroom/lib/ledger"
	"github.com/bureau-foundation/classroom/lib/lifecycle"
	"github.com/bureau-foundation/classroom/lib/membership"
	"github.com/bureau-foundation/classroom/lib/provision"
	"github.com/bureau-foundation/classroom/lib/team"
	"github.com/bureau-foundation/classroom/lib/teardown"
	"github.com/bureau-foundation/classroom/lib/version"
)

// configParams is embedded by every command that talks to GitHub.
type configParams struct {
	Config string `flag:"config,c" env:"CLASSROOM_CONFIG" desc:"configuration file (built-in defaults when unset)"`
}

// platform is everything the stack calls on GitHub. *github.Client and
// *githubtest.Fake satisfy it.
type platform interface {
	provision.API
	team.API
	teardown.API
	membership.API
	lifecycle.Identity
	issueops.IssuesAPI
}

// loadConfig reads path, or starts from the defaults when path is
// empty. The result is not yet validated.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		cfg.Finish()
		return cfg, nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// adoptClass fills organization and server from a class record when
// the configuration leaves them unset.
func adoptClass(cfg *config.Config, class classroom.Class) {
	if cfg.GitHub.Organization == "" {
		cfg.GitHub.Organization = class.Organization
	}
	if class.Server != "" && cfg.GitHub.APIURL == "" {
		cfg.GitHub.Server = class.Server
	}
}

// stack is the wired set of components one command runs with.
type stack struct {
	config      *config.Config
	client      platform
	naming      classroom.Naming
	teams       *team.Manager
	provisioner *provision.Provisioner
	resolver    *membership.Resolver
	instructors *membership.Instructors
	controller  *lifecycle.Controller
	logger      *slog.Logger
}

type stackOptions struct {
	Client platform

	// Token authenticates git clones.
	Token string

	// Clone replaces git.Clone in tests.
	Clone provision.CloneFunc

	Clock  clock.Clock
	Logger *slog.Logger
}

func newStack(cfg *config.Config, options stackOptions) (*stack, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	readinessBackoff, readinessMaxBackoff, gitTimeout, err := cfg.Durations()
	if err != nil {
		return nil, err
	}

	instructors := membership.NewInstructors()
	if cfg.Classroom.InstructorsFile != "" {
		instructors, err = membership.LoadInstructors(cfg.Classroom.InstructorsFile)
		if err != nil {
			return nil, err
		}
	}

	naming := classroom.Naming{Prefix: cfg.Classroom.Prefix}
	provisioner, err := provision.New(provision.Config{
		Client:              options.Client,
		Naming:              naming,
		Ledgers:             ledger.NewBook(cfg.Paths.State, options.Clock),
		Server:              cfg.GitHub.Server,
		TemplateOwner:       cfg.Classroom.TemplateOwner,
		TemplateRepository:  cfg.Classroom.TemplateRepository,
		DescriptionPrefix:   cfg.Classroom.DescriptionPrefix,
		Token:               options.Token,
		Workspace:           cfg.Paths.Workspace,
		BotName:             cfg.Bot.Name,
		BotEmail:            cfg.Bot.Email,
		Environment:         cfg.Classroom.Environment,
		ReadinessAttempts:   cfg.Provisioning.ReadinessAttempts,
		ReadinessBackoff:    readinessBackoff,
		ReadinessMaxBackoff: readinessMaxBackoff,
		GitTimeout:          gitTimeout,
		Concurrency:         cfg.Provisioning.Concurrency,
		Clone:               options.Clone,
		Clock:               options.Clock,
		Logger:              logger.With("component", "provision"),
	})
	if err != nil {
		return nil, err
	}
	teams := team.NewManager(team.Config{
		Client:            options.Client,
		Naming:            naming,
		DescriptionPrefix: cfg.Classroom.DescriptionPrefix,
		Logger:            logger.With("component", "team"),
	})
	resolver := membership.NewResolver(membership.Config{
		Client:         options.Client,
		PartnerDomains: cfg.Classroom.PartnerDomains,
		Instructors:    instructors,
		Logger:         logger.With("component", "membership"),
	})
	orchestrator := teardown.New(teardown.Config{
		Client:       options.Client,
		Repositories: provisioner,
		Team:         teams,
		Resolver:     resolver,
		Logger:       logger.With("component", "teardown"),
	})
	controller := lifecycle.New(lifecycle.Config{
		Teams:        teams,
		Repositories: provisioner,
		Teardown:     orchestrator,
		Identity:     options.Client,
		Clock:        options.Clock,
		Logger:       logger,
	})

	return &stack{
		config:      cfg,
		client:      options.Client,
		naming:      naming,
		teams:       teams,
		provisioner: provisioner,
		resolver:    resolver,
		instructors: instructors,
		controller:  controller,
		logger:      logger,
	}, nil
}

// dispatcher wires issue events to the controller. repository
// ("owner/name") is used when the configuration names no issueops
// repository.
func (s *stack) dispatcher(repository, self string) (*issueops.Dispatcher, error) {
	owner, name, err := s.issueOpsRepository(repository)
	if err != nil {
		return nil, err
	}
	return issueops.New(issueops.Config{
		Client:           s.client,
		Controller:       s.controller,
		Instructors:      s.instructors,
		Owner:            owner,
		Repository:       name,
		Organization:     s.config.GitHub.Organization,
		Server:           s.config.GitHub.Server,
		Naming:           s.naming,
		ClassLabel:       s.config.Classroom.ClassLabel,
		ProvisionedLabel: s.config.Classroom.ProvisionedLabel,
		Self:             self,
		Logger:           s.logger.With("component", "issueops"),
	})
}

func (s *stack) issueOpsRepository(fallback string) (string, string, error) {
	if s.config.Classroom.IssueOpsRepository != "" {
		return s.config.IssueOpsRepository()
	}
	owner, name, found := strings.Cut(fallback, "/")
	if !found || owner == "" || name == "" {
		return "", "", errors.New("no issueops repository: set classroom.issueops_repository or $GITHUB_REPOSITORY")
	}
	return owner, name, nil
}

// connection is a live stack and the token backing it.
type connection struct {
	*stack

	// source describes where the token came from.
	source string
	close  func()
}

// connect validates cfg, reads the token, and builds a stack on the
// real GitHub client.
func connect(cfg *config.Config, logger *slog.Logger) (*connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	token, source, err := cfg.LoadToken()
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded access token", "source", source)

	client, err := github.NewClient(github.Config{
		BaseURL:    cfg.APIURL(),
		Token:      token.String(),
		MaxRetries: cfg.GitHub.MaxRetries,
		UserAgent:  version.UserAgent(),
		Logger:     logger.With("component", "github"),
	})
	if err != nil {
		token.Close()
		return nil, err
	}
	built, err := newStack(cfg, stackOptions{
		Client: client,
		Token:  token.String(),
		Logger: logger,
	})
	if err != nil {
		token.Close()
		return nil, err
	}
	return &connection{stack: built, source: source, close: func() { token.Close() }}, nil
}

// authenticatedLogin returns the login the token acts as, or "" when
// the token cannot name its user (installation tokens).
func authenticatedLogin(ctx context.Context, client lifecycle.Identity, logger *slog.Logger) string {
	user, err := client.GetAuthenticatedUser(ctx)
	if err != nil {
		logger.Warn("cannot identify the authenticated account; only [bot] senders will be ignored", "error", err)
		return ""
	}
	return user.Login
}
