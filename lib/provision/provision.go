// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bureau-foundation/classroom/lib/classroom"
	"github.com/bureau-foundation/classroom/lib/clock"
	"github.com/bureau-foundation/classroom/lib/git"
	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/labs"
	"github.com/bureau-foundation/classroom/lib/ledger"
)

// API is the platform surface the provisioner uses.
type API interface {
	labs.API
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error)
	CreateRepositoryFromTemplate(ctx context.Context, templateOwner, templateRepo string, request github.CreateFromTemplateRequest) (*github.Repository, error)
	DeleteRepository(ctx context.Context, owner, repo string) error
	UpdateRepository(ctx context.Context, owner, repo string, request github.UpdateRepositoryRequest) (*github.Repository, error)
	GetBranch(ctx context.Context, owner, repo, branch string) (*github.RepositoryBranch, error)
	CreateOrUpdateEnvironment(ctx context.Context, owner, repo, name string) (*github.Environment, error)
	CreatePagesSite(ctx context.Context, owner, repo string, request github.CreatePagesRequest) (*github.PagesSite, error)
	GetPagesSite(ctx context.Context, owner, repo string) (*github.PagesSite, error)
	SearchRepositories(ctx context.Context, query string) ([]github.Repository, error)
	AddOrUpdateTeamRepoPermission(ctx context.Context, org, slug, owner, repo, permission string) error
}

// Worktree is a cloned repository. *git.Repository satisfies it.
type Worktree interface {
	labs.Worktree
	SetRemoteURL(ctx context.Context, remote, url string) error
	ConfigureIdentity(ctx context.Context, name, email string) error
}

// CloneFunc clones url into dir.
type CloneFunc func(ctx context.Context, url, dir string, timeout time.Duration) (Worktree, error)

func cloneWithGit(ctx context.Context, url, dir string, timeout time.Duration) (Worktree, error) {
	return git.Clone(ctx, url, dir, timeout)
}

// Config configures a Provisioner.
type Config struct {
	Client API
	Naming classroom.Naming

	// Ledgers holds each class's step ledger.
	Ledgers *ledger.Book

	// Server is the git host, "github.com" unless the organization
	// lives on GitHub Enterprise.
	Server string

	TemplateOwner      string
	TemplateRepository string

	// DescriptionPrefix precedes the customer name in repository
	// descriptions. Defaults to "GitHub Intermediate".
	DescriptionPrefix string

	// Token authenticates git over HTTPS. It is embedded in the remote
	// URL of each clone and redacted from git errors.
	Token string

	// Workspace is the directory repositories are cloned into.
	Workspace string

	BotName  string
	BotEmail string

	// Environment is the deployment environment created in every
	// repository. Defaults to "deployments".
	Environment string

	// ReadinessAttempts bounds the readiness poll (default 8).
	// ReadinessBackoff is the first delay (default 1s), doubling up to
	// ReadinessMaxBackoff (default 30s).
	ReadinessAttempts   int
	ReadinessBackoff    time.Duration
	ReadinessMaxBackoff time.Duration

	// GitTimeout bounds each git process. Zero uses git.DefaultTimeout.
	GitTimeout time.Duration

	// Concurrency is the number of repositories provisioned at once.
	// Defaults to 1.
	Concurrency int

	// Clone replaces git.Clone in tests.
	Clone CloneFunc

	Clock  clock.Clock
	Logger *slog.Logger
}

// Provisioner manages attendee repositories.
type Provisioner struct {
	client  API
	naming  classroom.Naming
	ledgers *ledger.Book

	server              string
	templateOwner       string
	templateRepository  string
	descriptionPrefix   string
	token               string
	workspace           string
	botName             string
	botEmail            string
	environment         string
	readinessAttempts   int
	readinessBackoff    time.Duration
	readinessMaxBackoff time.Duration
	gitTimeout          time.Duration
	concurrency         int
	clone               CloneFunc
	clock               clock.Clock
	logger              *slog.Logger
}

// New creates a Provisioner.
func New(config Config) (*Provisioner, error) {
	if config.Client == nil {
		return nil, errors.New("provision: Client is required")
	}
	if config.Ledgers == nil {
		return nil, errors.New("provision: Ledgers is required")
	}
	if config.TemplateOwner == "" || config.TemplateRepository == "" {
		return nil, errors.New("provision: TemplateOwner and TemplateRepository are required")
	}
	if config.Workspace == "" {
		return nil, errors.New("provision: Workspace is required")
	}
	if config.Token == "" {
		return nil, errors.New("provision: Token is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	provisioner := &Provisioner{
		client:              config.Client,
		naming:              config.Naming,
		ledgers:             config.Ledgers,
		server:              config.Server,
		templateOwner:       config.TemplateOwner,
		templateRepository:  config.TemplateRepository,
		descriptionPrefix:   config.DescriptionPrefix,
		token:               config.Token,
		workspace:           config.Workspace,
		botName:             config.BotName,
		botEmail:            config.BotEmail,
		environment:         config.Environment,
		readinessAttempts:   config.ReadinessAttempts,
		readinessBackoff:    config.ReadinessBackoff,
		readinessMaxBackoff: config.ReadinessMaxBackoff,
		gitTimeout:          config.GitTimeout,
		concurrency:         config.Concurrency,
		clone:               config.Clone,
		clock:               config.Clock,
		logger:              logger,
	}
	if provisioner.server == "" {
		provisioner.server = "github.com"
	}
	if provisioner.descriptionPrefix == "" {
		provisioner.descriptionPrefix = "GitHub Intermediate"
	}
	if provisioner.environment == "" {
		provisioner.environment = "deployments"
	}
	if provisioner.readinessAttempts <= 0 {
		provisioner.readinessAttempts = 8
	}
	if provisioner.readinessBackoff <= 0 {
		provisioner.readinessBackoff = time.Second
	}
	if provisioner.readinessMaxBackoff <= 0 {
		provisioner.readinessMaxBackoff = 30 * time.Second
	}
	if provisioner.concurrency <= 0 {
		provisioner.concurrency = 1
	}
	if provisioner.clone == nil {
		provisioner.clone = cloneWithGit
	}
	if provisioner.clock == nil {
		provisioner.clock = clock.Real()
	}
	return provisioner, nil
}

// RepositoryName returns the repository name for handle.
func (provisioner *Provisioner) RepositoryName(class classroom.Class, handle string) string {
	return provisioner.naming.Repository(class, handle)
}

// Exists reports whether handle's class repository exists.
func (provisioner *Provisioner) Exists(ctx context.Context, class classroom.Class, handle string) (bool, error) {
	_, err := provisioner.client.GetRepository(ctx, class.Organization, provisioner.RepositoryName(class, handle))
	if err != nil {
		if github.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create generates handle's repository from the template and grants
// the class team admin access. A repository that already exists fails
// with classroom.ErrRepositoryAlreadyExists.
func (provisioner *Provisioner) Create(ctx context.Context, class classroom.Class, teamSlug, handle string) (*github.Repository, error) {
	name := provisioner.RepositoryName(class, handle)
	repository, err := provisioner.client.CreateRepositoryFromTemplate(ctx, provisioner.templateOwner, provisioner.templateRepository, github.CreateFromTemplateRequest{
		Owner:              class.Organization,
		Name:               name,
		Description:        provisioner.descriptionPrefix + " - " + class.CustomerName,
		IncludeAllBranches: true,
		Private:            true,
	})
	if err != nil {
		if github.IsAlreadyExists(err) {
			return nil, classroom.Precondition(classroom.ErrRepositoryAlreadyExists, name)
		}
		return nil, err
	}
	if err := provisioner.forget(class, name); err != nil {
		return nil, err
	}
	if err := provisioner.client.AddOrUpdateTeamRepoPermission(ctx, class.Organization, teamSlug, class.Organization, repository.Name, "admin"); err != nil {
		return repository, fmt.Errorf("granting %s admin on %s: %w", teamSlug, repository.Name, err)
	}
	provisioner.logger.Info("repository created", "repository", repository.Name, "team", teamSlug)
	return repository, nil
}

// WaitReady polls until the repository's default branch exists,
// backing off exponentially between attempts.
func (provisioner *Provisioner) WaitReady(ctx context.Context, repository *github.Repository) error {
	branch := repository.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	delay := provisioner.readinessBackoff
	for attempt := 1; ; attempt++ {
		_, err := provisioner.client.GetBranch(ctx, repository.Owner.Login, repository.Name, branch)
		if err == nil {
			provisioner.logger.Debug("repository ready", "repository", repository.Name, "attempts", attempt)
			return nil
		}
		if !github.IsNotFound(err) && !github.IsRetryable(err) {
			return err
		}
		if attempt >= provisioner.readinessAttempts {
			return fmt.Errorf("repository %s not ready after %d attempts: %w", repository.Name, attempt, err)
		}
		provisioner.logger.Debug("repository not ready", "repository", repository.Name, "attempt", attempt, "retry_in", delay)
		if err := clock.Sleep(ctx, provisioner.clock, delay); err != nil {
			return err
		}
		delay = min(delay*2, provisioner.readinessMaxBackoff)
	}
}

// ledger returns the class's step ledger.
func (provisioner *Provisioner) ledger(class classroom.Class) (*ledger.Ledger, error) {
	return provisioner.ledgers.For(provisioner.naming.Team(class))
}

// forget drops the ledger entries of repository name.
func (provisioner *Provisioner) forget(class classroom.Class, name string) error {
	record, err := provisioner.ledger(class)
	if err != nil {
		return err
	}
	return record.Forget(name + "/")
}

// remoteURL is the authenticated HTTPS remote for repository.
func (provisioner *Provisioner) remoteURL(owner, repository string) string {
	return fmt.Sprintf("https://x-access-token:%s@%s/%s/%s.git", provisioner.token, provisioner.server, owner, repository)
}

// Configure creates the deployment environment and Pages site, sets
// the homepage, seeds the labs, and pushes the default branch.
func (provisioner *Provisioner) Configure(ctx context.Context, class classroom.Class, repository *github.Repository, runID string) error {
	owner, name := repository.Owner.Login, repository.Name
	logger := provisioner.logger.With("repository", name)
	logger.Info("configuring repository")

	record, err := provisioner.ledger(class)
	if err != nil {
		return err
	}
	pipeline, err := labs.NewPipeline(labs.Config{Client: provisioner.client, Ledger: record, Logger: provisioner.logger})
	if err != nil {
		return err
	}

	environmentKey := ledger.Key(name, "environment")
	environmentPrint := ledger.Fingerprint([]byte("environment"), []byte(provisioner.environment))
	if !record.Done(environmentKey, environmentPrint) {
		if _, err := provisioner.client.CreateOrUpdateEnvironment(ctx, owner, name, provisioner.environment); err != nil {
			return err
		}
		if err := record.Record(environmentKey, environmentPrint, runID); err != nil {
			return err
		}
	}

	pagesKey := ledger.Key(name, "pages")
	pagesPrint := ledger.Fingerprint([]byte("pages"), []byte("workflow"))
	if !record.Done(pagesKey, pagesPrint) {
		if err := provisioner.configurePages(ctx, owner, name); err != nil {
			return err
		}
		if err := record.Record(pagesKey, pagesPrint, runID); err != nil {
			return err
		}
	}

	directory := filepath.Join(provisioner.workspace, name)
	url := provisioner.remoteURL(owner, name)
	logger.Info("cloning repository", "directory", directory)
	worktree, err := provisioner.clone(ctx, url, directory, provisioner.gitTimeout)
	if err != nil {
		return err
	}
	if err := worktree.SetRemoteURL(ctx, "origin", url); err != nil {
		return err
	}
	if err := worktree.ConfigureIdentity(ctx, provisioner.botName, provisioner.botEmail); err != nil {
		return err
	}

	branch := repository.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	target := labs.Target{Owner: owner, Repository: name, DefaultBranch: branch, Worktree: worktree}
	if err := pipeline.Run(ctx, target, runID); err != nil {
		return err
	}
	if err := worktree.Push(ctx, branch, false); err != nil {
		return err
	}
	logger.Info("repository configured")
	return nil
}

func (provisioner *Provisioner) configurePages(ctx context.Context, owner, name string) error {
	site, err := provisioner.client.CreatePagesSite(ctx, owner, name, github.CreatePagesRequest{BuildType: "workflow"})
	if github.IsConflict(err) {
		site, err = provisioner.client.GetPagesSite(ctx, owner, name)
	}
	if err != nil {
		return err
	}
	homepage := site.HTMLURL
	if _, err := provisioner.client.UpdateRepository(ctx, owner, name, github.UpdateRepositoryRequest{Homepage: &homepage}); err != nil {
		return err
	}
	return nil
}

// Provision creates, waits for, and configures one repository.
func (provisioner *Provisioner) Provision(ctx context.Context, class classroom.Class, teamSlug, handle, runID string) (*github.Repository, error) {
	repository, err := provisioner.Create(ctx, class, teamSlug, handle)
	if err != nil {
		return nil, err
	}
	if err := provisioner.WaitReady(ctx, repository); err != nil {
		return repository, err
	}
	if err := provisioner.Configure(ctx, class, repository, runID); err != nil {
		return repository, err
	}
	return repository, nil
}

// Resume finishes provisioning a repository that already exists, for
// example after a configure step failed. Steps recorded in the ledger
// are skipped.
func (provisioner *Provisioner) Resume(ctx context.Context, class classroom.Class, handle, runID string) (*github.Repository, error) {
	repository, err := provisioner.client.GetRepository(ctx, class.Organization, provisioner.RepositoryName(class, handle))
	if err != nil {
		return nil, err
	}
	if err := provisioner.WaitReady(ctx, repository); err != nil {
		return repository, err
	}
	if err := provisioner.Configure(ctx, class, repository, runID); err != nil {
		return repository, err
	}
	return repository, nil
}

// ProvisionAll provisions a repository for each handle through the
// worker pool. Every repository is attempted; the returned error joins
// all failures.
func (provisioner *Provisioner) ProvisionAll(ctx context.Context, class classroom.Class, teamSlug string, handles []string, runID string) ([]github.Repository, error) {
	var (
		mu           sync.Mutex
		repositories []github.Repository
		failures     []error
	)
	provisioner.forEach(ctx, handles, func(handle string) {
		repository, err := provisioner.Provision(ctx, class, teamSlug, handle, runID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures = append(failures, fmt.Errorf("provisioning repository for %s: %w", handle, err))
			return
		}
		repositories = append(repositories, *repository)
	})
	sortRepositories(repositories)
	return repositories, errors.Join(failures...)
}

// forEach runs work once per handle with at most concurrency calls in
// flight. Handles not yet started when ctx is cancelled are skipped.
func (provisioner *Provisioner) forEach(ctx context.Context, handles []string, work func(handle string)) {
	slots := make(chan struct{}, provisioner.concurrency)
	var group sync.WaitGroup
	for _, handle := range handles {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			group.Wait()
			return
		}
		group.Add(1)
		go func() {
			defer group.Done()
			defer func() { <-slots }()
			work(handle)
		}()
	}
	group.Wait()
}

// Delete deletes handle's repository. A missing repository is not an
// error.
func (provisioner *Provisioner) Delete(ctx context.Context, class classroom.Class, handle string) error {
	return provisioner.deleteNamed(ctx, class, provisioner.RepositoryName(class, handle))
}

func (provisioner *Provisioner) deleteNamed(ctx context.Context, class classroom.Class, name string) error {
	err := provisioner.client.DeleteRepository(ctx, class.Organization, name)
	if err != nil && !github.IsNotFound(err) {
		return err
	}
	if err == nil {
		provisioner.logger.Info("repository deleted", "repository", name)
	}
	return provisioner.forget(class, name)
}

// DeleteRepositories deletes every repository of the class. The set is
// the organization search for the class prefix united with the names
// derived from handles, since the search index can lag behind freshly
// created repositories. Every repository is attempted; the returned
// error joins all failures.
func (provisioner *Provisioner) DeleteRepositories(ctx context.Context, class classroom.Class, handles []string) error {
	if !classroom.ValidAbbreviation(strings.TrimSpace(class.CustomerAbbr)) {
		return fmt.Errorf("refusing to delete repositories by prefix for customer abbreviation %q", class.CustomerAbbr)
	}
	prefix := provisioner.naming.RepositoryPrefix(class)
	found, err := provisioner.client.SearchRepositories(ctx, fmt.Sprintf("%s in:name org:%s", prefix, class.Organization))
	if err != nil {
		return fmt.Errorf("searching repositories of %s: %w", provisioner.naming.Team(class), err)
	}

	names := make(map[string]bool)
	for _, repository := range found {
		// Search matches substrings; keep only exact class names.
		if _, ok := provisioner.naming.HandleFromRepository(class, repository.Name); ok && strings.EqualFold(repository.Owner.Login, class.Organization) {
			names[strings.ToLower(repository.Name)] = true
		}
	}
	for _, handle := range handles {
		names[provisioner.RepositoryName(class, handle)] = true
	}

	var failures []error
	for _, name := range sortedKeys(names) {
		if err := provisioner.deleteNamed(ctx, class, name); err != nil {
			failures = append(failures, fmt.Errorf("deleting repository %s: %w", name, err))
		}
	}
	return errors.Join(failures...)
}
