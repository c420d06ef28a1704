// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds a single git command when none is configured.
const DefaultTimeout = 5 * time.Minute

// TimeoutError is a git command killed for exceeding its timeout.
type TimeoutError struct {
	Args    []string
	Dir     string
	Timeout time.Duration
}

func (err *TimeoutError) Error() string {
	return fmt.Sprintf("git %s in %s: timed out after %s", redact(strings.Join(err.Args, " ")), err.Dir, err.Timeout)
}

// IsTimeout reports whether err is a git command timeout.
func IsTimeout(err error) bool {
	var timeoutError *TimeoutError
	return errors.As(err, &timeoutError)
}

// credentialPattern matches the user-info part of an HTTPS URL.
var credentialPattern = regexp.MustCompile(`(https?://)[^/@\s]+@`)

// redact removes credentials from URLs in text.
func redact(text string) string {
	return credentialPattern.ReplaceAllString(text, "${1}***@")
}

// Repository is a git working copy at a fixed directory.
type Repository struct {
	dir     string
	timeout time.Duration
}

// NewRepository returns a Repository for dir. A non-positive timeout
// selects DefaultTimeout.
func NewRepository(dir string, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Repository{dir: dir, timeout: timeout}
}

// Dir returns the working copy directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes git with args in the working copy and returns stdout.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	return run(ctx, r.timeout, r.dir, append([]string{"-C", r.dir}, args...))
}

// run executes git with fullArgs. dir is used for messages only.
func run(ctx context.Context, timeout time.Duration, dir string, fullArgs []string) (string, error) {
	commandCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(commandCtx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	command.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	if err := command.Run(); err != nil {
		args := fullArgs
		if len(args) >= 2 && args[0] == "-C" {
			args = args[2:]
		}
		if ctx.Err() == nil && errors.Is(commandCtx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Args: args, Dir: dir, Timeout: timeout}
		}
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			redact(strings.Join(args, " ")), dir, err, redact(strings.TrimSpace(stderr.String())))
	}
	return stdout.String(), nil
}

// Clone clones url into dir, replacing anything already there, and
// returns the working copy.
func Clone(ctx context.Context, url, dir string, timeout time.Duration) (*Repository, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clearing %s before clone: %w", dir, err)
	}
	if _, err := run(ctx, timeout, dir, []string{"clone", "--quiet", url, dir}); err != nil {
		return nil, err
	}
	return NewRepository(dir, timeout), nil
}

// SetRemoteURL points remote at url.
func (r *Repository) SetRemoteURL(ctx context.Context, remote, url string) error {
	_, err := r.Run(ctx, "remote", "set-url", remote, url)
	return err
}

// ConfigureIdentity sets the local commit author and committer.
func (r *Repository) ConfigureIdentity(ctx context.Context, name, email string) error {
	if _, err := r.Run(ctx, "config", "user.name", name); err != nil {
		return err
	}
	_, err := r.Run(ctx, "config", "user.email", email)
	return err
}

// AddAll stages every change in the working tree, deletions included.
func (r *Repository) AddAll(ctx context.Context) error {
	_, err := r.Run(ctx, "add", "--all")
	return err
}

// Commit records the staged changes with message.
func (r *Repository) Commit(ctx context.Context, message string) error {
	_, err := r.Run(ctx, "commit", "--quiet", "-m", message)
	return err
}

// HasCommit reports whether any commit reachable from any local or
// remote-tracking ref has exactly the given subject line.
func (r *Repository) HasCommit(ctx context.Context, subject string) (bool, error) {
	output, err := r.Run(ctx, "log", "--all", "--format=%s", "--fixed-strings", "--grep", subject)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(output, "\n") {
		if line == subject {
			return true, nil
		}
	}
	return false, nil
}

// BranchExists reports whether branch exists locally or on origin.
func (r *Repository) BranchExists(ctx context.Context, branch string) (bool, error) {
	local, remote := "refs/heads/"+branch, "refs/remotes/origin/"+branch
	output, err := r.Run(ctx, "for-each-ref", "--format=%(refname)", local, remote)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(output, "\n") {
		if line == local || line == remote {
			return true, nil
		}
	}
	return false, nil
}

// Checkout switches to an existing branch.
func (r *Repository) Checkout(ctx context.Context, branch string) error {
	_, err := r.Run(ctx, "checkout", "--quiet", branch)
	return err
}

// CheckoutNewBranch creates branch at startPoint and switches to it.
// An empty startPoint branches from HEAD.
func (r *Repository) CheckoutNewBranch(ctx context.Context, branch, startPoint string) error {
	args := []string{"checkout", "--quiet", "-b", branch}
	if startPoint != "" {
		args = append(args, startPoint)
	}
	_, err := r.Run(ctx, args...)
	return err
}

// Push pushes branch to origin, setting upstream tracking when
// setUpstream is true.
func (r *Repository) Push(ctx context.Context, branch string, setUpstream bool) error {
	args := []string{"push", "--quiet"}
	if setUpstream {
		args = append(args, "--set-upstream")
	}
	_, err := r.Run(ctx, append(args, "origin", branch)...)
	return err
}

// RevParse resolves ref to a full commit hash.
func (r *Repository) RevParse(ctx context.Context, ref string) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// CurrentBranch returns the checked-out branch name.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}
