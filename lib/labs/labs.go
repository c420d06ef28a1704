// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package labs

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/classroom/lib/github"
	"github.com/bureau-foundation/classroom/lib/ledger"
)

//go:embed files
var content embed.FS

// Worktree is the version-control surface the labs need.
// *git.Repository satisfies it.
type Worktree interface {
	Dir() string
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	HasCommit(ctx context.Context, subject string) (bool, error)
	BranchExists(ctx context.Context, branch string) (bool, error)
	Checkout(ctx context.Context, branch string) error
	CheckoutNewBranch(ctx context.Context, branch, startPoint string) error
	Push(ctx context.Context, branch string, setUpstream bool) error
	RevParse(ctx context.Context, ref string) (string, error)
}

// API is the platform surface the labs need.
type API interface {
	CreatePullRequest(ctx context.Context, owner, repo string, request github.CreatePullRequestRequest) (*github.PullRequest, error)
	ListPullRequests(ctx context.Context, owner, repo string, options github.ListPullRequestsOptions) ([]github.PullRequest, error)
}

// Target identifies the repository being seeded.
type Target struct {
	Owner         string
	Repository    string
	DefaultBranch string
	Worktree      Worktree
}

// Lab is one course lab.
type Lab struct {
	Number int
	Title  string

	// files are the embedded paths whose bytes define the lab's effect.
	files []string
	setup func(ctx context.Context, pipeline *Pipeline, target Target) error
}

// Key returns the lab's ledger key for repository.
func (lab Lab) Key(repository string) string {
	return ledger.Key(repository, fmt.Sprintf("lab-%02d", lab.Number))
}

// StudentDriven reports whether the lab needs no seeding.
func (lab Lab) StudentDriven() bool {
	return lab.setup == nil
}

// Fingerprint hashes the lab's identity and embedded content.
func (lab Lab) Fingerprint() string {
	parts := [][]byte{[]byte(fmt.Sprintf("lab-%02d", lab.Number)), []byte(lab.Title)}
	for _, name := range lab.files {
		data, err := content.ReadFile(name)
		if err != nil {
			panic("labs: missing embedded file " + name)
		}
		parts = append(parts, []byte(name), data)
	}
	return ledger.Fingerprint(parts...)
}

// All returns the labs in execution order.
func All() []Lab {
	return []Lab{
		{Number: 1, Title: "Add a Feature"},
		{Number: 2, Title: "Add Tags"},
		{Number: 3, Title: "Git Bisect", files: bisectFiles(), setup: setupBisect},
		{Number: 4, Title: "Interactive Rebase", files: []string{rebaseNotes, rebaseSteps}, setup: setupRebase},
		{Number: 5, Title: "Cherry-Pick", files: []string{hotfixFile}, setup: setupCherryPick},
		{Number: 6, Title: "Protect Main"},
		{Number: 7, Title: "GitHub Flow"},
		{Number: 8, Title: "Merge Conflicts", files: []string{conflictBranchFile, conflictMainFile}, setup: setupMergeConflict},
		{Number: 9, Title: "Run a Workflow"},
		{Number: 10, Title: "Create a Release"},
		{Number: 11, Title: "Deploy to an Environment"},
	}
}

// Config configures a Pipeline.
type Config struct {
	Client API
	Ledger *ledger.Ledger
	Logger *slog.Logger
}

// Pipeline runs the labs against one repository at a time. A Pipeline
// may be shared between goroutines seeding different repositories.
type Pipeline struct {
	client API
	ledger *ledger.Ledger
	labs   []Lab
	logger *slog.Logger
}

// NewPipeline creates a Pipeline running All().
func NewPipeline(config Config) (*Pipeline, error) {
	if config.Client == nil {
		return nil, errors.New("labs: Client is required")
	}
	if config.Ledger == nil {
		return nil, errors.New("labs: Ledger is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		client: config.Client,
		ledger: config.Ledger,
		labs:   All(),
		logger: logger,
	}, nil
}

// Run seeds every lab in order, stopping at the first failure. Labs
// already recorded with a matching fingerprint are skipped. A seeded
// lab is recorded only after the default branch has been pushed, so a
// recorded lab's commits are on the remote and survive a fresh clone.
func (pipeline *Pipeline) Run(ctx context.Context, target Target, runID string) error {
	if target.DefaultBranch == "" {
		target.DefaultBranch = "main"
	}
	for _, lab := range pipeline.labs {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := lab.Key(target.Repository)
		fingerprint := lab.Fingerprint()
		logger := pipeline.logger.With("repository", target.Repository, "lab", lab.Number, "title", lab.Title)

		if pipeline.ledger.Done(key, fingerprint) {
			logger.Debug("lab already configured")
			continue
		}
		logger.Info("configuring lab")
		if lab.setup != nil {
			if err := lab.setup(ctx, pipeline, target); err != nil {
				return fmt.Errorf("configuring lab %d (%s) in %s: %w", lab.Number, lab.Title, target.Repository, err)
			}
			if err := target.Worktree.Push(ctx, target.DefaultBranch, false); err != nil {
				return fmt.Errorf("pushing lab %d (%s) in %s: %w", lab.Number, lab.Title, target.Repository, err)
			}
		}
		if err := pipeline.ledger.Record(key, fingerprint, runID); err != nil {
			return fmt.Errorf("recording lab %d for %s: %w", lab.Number, target.Repository, err)
		}
	}
	return nil
}

// writeFile copies an embedded file into the worktree, creating parent
// directories.
func writeFile(worktree Worktree, embedded, relative string) error {
	data, err := content.ReadFile(embedded)
	if err != nil {
		return fmt.Errorf("reading embedded %s: %w", embedded, err)
	}
	path := filepath.Join(worktree.Dir(), filepath.FromSlash(relative))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// commitFile writes an embedded file and commits it, unless a commit
// with the same subject already exists.
func commitFile(ctx context.Context, worktree Worktree, embedded, relative, subject string) error {
	done, err := worktree.HasCommit(ctx, subject)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	if err := writeFile(worktree, embedded, relative); err != nil {
		return err
	}
	if err := worktree.AddAll(ctx); err != nil {
		return err
	}
	return worktree.Commit(ctx, subject)
}

func requireDirectory(worktree Worktree, relative string) error {
	info, err := os.Stat(filepath.Join(worktree.Dir(), filepath.FromSlash(relative)))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("template is missing the %s directory", relative)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("template path %s is not a directory", relative)
	}
	return nil
}

func lines(embedded string) ([]string, error) {
	data, err := content.ReadFile(embedded)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}
	return result, nil
}
