// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gittest provides an in-memory worktree with the method set of
// *git.Repository. Branch history is a list of commit subjects per
// branch; files are written to a real directory so code that edits the
// working tree can run unchanged.
package gittest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Worktree is a fake clone. Safe for concurrent use.
type Worktree struct {
	mu sync.Mutex

	dir       string
	url       string
	remoteURL string
	identity  string
	current   string
	branches  map[string][]string
	pushed    []string
	commands  []string
	remote    *Remote

	// FailOn makes any command whose log line starts with the prefix
	// fail, for example "commit Adding unit tests 5".
	FailOn string
}

// NewWorktree returns a worktree rooted at dir with history commits on
// main. A __tests__ directory is created to match the course template.
func NewWorktree(dir string, history int) (*Worktree, error) {
	if err := os.MkdirAll(filepath.Join(dir, "__tests__"), 0o755); err != nil {
		return nil, err
	}
	return &Worktree{dir: dir, current: "main", branches: newRemote(history).branches}, nil
}

func (worktree *Worktree) note(command string) error {
	worktree.commands = append(worktree.commands, command)
	if worktree.FailOn != "" && strings.HasPrefix(command, worktree.FailOn) {
		return errors.New("simulated failure: " + command)
	}
	return nil
}

func (worktree *Worktree) Dir() string { return worktree.dir }

func (worktree *Worktree) AddAll(ctx context.Context) error {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	return worktree.note("add")
}

func (worktree *Worktree) Commit(ctx context.Context, message string) error {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	if err := worktree.note("commit " + message); err != nil {
		return err
	}
	worktree.branches[worktree.current] = append(worktree.branches[worktree.current], message)
	return nil
}

func (worktree *Worktree) HasCommit(ctx context.Context, subject string) (bool, error) {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	for _, subjects := range worktree.branches {
		for _, existing := range subjects {
			if existing == subject {
				return true, nil
			}
		}
	}
	return false, nil
}

func (worktree *Worktree) BranchExists(ctx context.Context, branch string) (bool, error) {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	_, ok := worktree.branches[branch]
	return ok, nil
}

func (worktree *Worktree) Checkout(ctx context.Context, branch string) error {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	if err := worktree.note("checkout " + branch); err != nil {
		return err
	}
	if _, ok := worktree.branches[branch]; !ok {
		return fmt.Errorf("no branch %s", branch)
	}
	worktree.current = branch
	return nil
}

// CheckoutNewBranch understands start points of the form "HEAD~N".
func (worktree *Worktree) CheckoutNewBranch(ctx context.Context, branch, startPoint string) error {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	if err := worktree.note(strings.TrimSpace("branch " + branch + " " + startPoint)); err != nil {
		return err
	}
	if _, ok := worktree.branches[branch]; ok {
		return fmt.Errorf("branch %s already exists", branch)
	}
	history, err := worktree.resolveLocked(startPoint)
	if err != nil {
		return err
	}
	worktree.branches[branch] = append([]string(nil), history...)
	worktree.current = branch
	return nil
}

func (worktree *Worktree) resolveLocked(ref string) ([]string, error) {
	history := worktree.branches[worktree.current]
	if ref == "" || ref == "HEAD" {
		return history, nil
	}
	back, ok := strings.CutPrefix(ref, "HEAD~")
	if !ok {
		return nil, fmt.Errorf("unsupported ref %q", ref)
	}
	count, err := strconv.Atoi(back)
	if err != nil || count < 0 || count >= len(history) {
		return nil, fmt.Errorf("unknown revision %q", ref)
	}
	return history[:len(history)-count], nil
}

func (worktree *Worktree) Push(ctx context.Context, branch string, setUpstream bool) error {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	if err := worktree.note("push " + branch); err != nil {
		return err
	}
	history, ok := worktree.branches[branch]
	if !ok {
		return fmt.Errorf("no branch %s", branch)
	}
	worktree.pushed = append(worktree.pushed, branch)
	if worktree.remote != nil {
		worktree.remote.update(branch, history)
	}
	return nil
}

func (worktree *Worktree) RevParse(ctx context.Context, ref string) (string, error) {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	history, err := worktree.resolveLocked(ref)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%040x", len(history)), nil
}

func (worktree *Worktree) SetRemoteURL(ctx context.Context, remote, url string) error {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	worktree.remoteURL = url
	return worktree.note("remote set-url " + remote)
}

func (worktree *Worktree) ConfigureIdentity(ctx context.Context, name, email string) error {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	worktree.identity = name + " <" + email + ">"
	return worktree.note("config identity")
}

// Branch returns the commit subjects of branch.
func (worktree *Worktree) Branch(name string) ([]string, bool) {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	subjects, ok := worktree.branches[name]
	return append([]string(nil), subjects...), ok
}

// Current returns the checked-out branch.
func (worktree *Worktree) Current() string {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	return worktree.current
}

// Pushed returns every pushed branch in order.
func (worktree *Worktree) Pushed() []string {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	return append([]string(nil), worktree.pushed...)
}

// Commands returns the command log.
func (worktree *Worktree) Commands() []string {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	return append([]string(nil), worktree.commands...)
}

// URL is the URL the worktree was cloned from.
func (worktree *Worktree) URL() string { return worktree.url }

// RemoteURL is the last URL set for a remote.
func (worktree *Worktree) RemoteURL() string {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	return worktree.remoteURL
}

// Identity is the configured "name <email>".
func (worktree *Worktree) Identity() string {
	worktree.mu.Lock()
	defer worktree.mu.Unlock()
	return worktree.identity
}

// Remote is the server side of a cloned repository: the branches
// that have been pushed to it. Safe for concurrent use.
type Remote struct {
	mu       sync.Mutex
	branches map[string][]string
}

func newRemote(history int) *Remote {
	subjects := make([]string, 0, history)
	for index := range history {
		subjects = append(subjects, fmt.Sprintf("template commit %d", index+1))
	}
	return &Remote{branches: map[string][]string{"main": subjects}}
}

func (remote *Remote) update(branch string, history []string) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	remote.branches[branch] = append([]string(nil), history...)
}

func (remote *Remote) snapshot() map[string][]string {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	branches := make(map[string][]string, len(remote.branches))
	for name, subjects := range remote.branches {
		branches[name] = append([]string(nil), subjects...)
	}
	return branches
}

// Branch returns the commit subjects of branch as last pushed.
func (remote *Remote) Branch(name string) ([]string, bool) {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	subjects, ok := remote.branches[name]
	return append([]string(nil), subjects...), ok
}

// Cloner hands out a fresh Worktree per clone, keyed by directory base
// name. Each name has one Remote: pushes update it and later clones
// start from what it holds.
type Cloner struct {
	mu        sync.Mutex
	worktrees map[string]*Worktree
	remotes   map[string]*Remote

	// History is the number of template commits on main.
	History int

	// FailOn is copied to every new worktree.
	FailOn string
}

// NewCloner returns a Cloner whose clones start with one commit.
func NewCloner() *Cloner {
	return &Cloner{worktrees: make(map[string]*Worktree), remotes: make(map[string]*Remote), History: 1}
}

// Clone has the shape of git.Clone but returns the concrete fake;
// callers adapt it to their worktree interface.
func (cloner *Cloner) Clone(ctx context.Context, url, dir string, timeout time.Duration) (*Worktree, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	worktree, err := NewWorktree(dir, 0)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(dir)

	cloner.mu.Lock()
	defer cloner.mu.Unlock()
	remote, ok := cloner.remotes[name]
	if !ok {
		remote = newRemote(cloner.History)
		cloner.remotes[name] = remote
	}
	worktree.url = url
	worktree.remote = remote
	worktree.branches = remote.snapshot()
	worktree.FailOn = cloner.FailOn
	cloner.worktrees[name] = worktree
	return worktree, nil
}

// Get returns the last worktree cloned into a directory named name.
func (cloner *Cloner) Get(name string) *Worktree {
	cloner.mu.Lock()
	defer cloner.mu.Unlock()
	return cloner.worktrees[name]
}

// Remote returns the remote behind clones named name, or nil before
// the first clone.
func (cloner *Cloner) Remote(name string) *Remote {
	cloner.mu.Lock()
	defer cloner.mu.Unlock()
	return cloner.remotes[name]
}
