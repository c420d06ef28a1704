// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package labs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/classroom/lib/github"
)

const (
	bisectTarget = "__tests__/keyboard_input_manager.test.ts"
	bisectCount  = 9

	rebaseBranch = "rebase-practice"
	rebaseNotes  = "files/4-interactive-rebase/NOTES.md"
	rebaseSteps  = "files/4-interactive-rebase/steps"

	hotfixBranch = "hotfix"
	hotfixFile   = "files/5-cherry-pick/HOTFIX.md"
	hotfixCommit = "Fix score doubling on merged tiles"

	conflictBranch     = "merge-conflict"
	conflictTarget     = "style/tile-colors.css"
	conflictBranchFile = "files/8-merge-conflicts/tile-colors.branch.css"
	conflictMainFile   = "files/8-merge-conflicts/tile-colors.main.css"
	conflictPullTitle  = "Update tile colors"
)

func bisectFiles() []string {
	files := make([]string, bisectCount)
	for index := range files {
		files[index] = fmt.Sprintf("files/3-git-bisect/keyboard_input_manager.test.%d", index+1)
	}
	return files
}

// setupBisect replaces the keyboard test file nine times, one commit
// each. Version 6 introduces the failing expectation students bisect
// for.
func setupBisect(ctx context.Context, pipeline *Pipeline, target Target) error {
	if err := requireDirectory(target.Worktree, "__tests__"); err != nil {
		return err
	}
	for index, embedded := range bisectFiles() {
		if err := commitFile(ctx, target.Worktree, embedded, bisectTarget, fmt.Sprintf("Adding unit tests %d", index+1)); err != nil {
			return err
		}
	}
	return nil
}

// setupRebase branches three commits back and adds a run of small
// commits for students to squash.
func setupRebase(ctx context.Context, pipeline *Pipeline, target Target) error {
	worktree := target.Worktree
	exists, err := worktree.BranchExists(ctx, rebaseBranch)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := worktree.RevParse(ctx, "HEAD~3"); err != nil {
		return fmt.Errorf("history too short to branch %s from HEAD~3: %w", rebaseBranch, err)
	}
	subjects, err := lines(rebaseSteps)
	if err != nil {
		return err
	}
	notes, err := content.ReadFile(rebaseNotes)
	if err != nil {
		return err
	}

	if err := worktree.CheckoutNewBranch(ctx, rebaseBranch, "HEAD~3"); err != nil {
		return err
	}
	path := filepath.Join(worktree.Dir(), "NOTES.md")
	for index, subject := range subjects {
		// Each commit appends one more section of the notes.
		body := fmt.Sprintf("%s\n<!-- revision %d -->\n", notes, index+1)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return err
		}
		if err := worktree.AddAll(ctx); err != nil {
			return err
		}
		if err := worktree.Commit(ctx, subject); err != nil {
			return err
		}
	}
	if err := worktree.Push(ctx, rebaseBranch, true); err != nil {
		return err
	}
	return worktree.Checkout(ctx, target.DefaultBranch)
}

// setupCherryPick leaves a single fix commit on a hotfix branch.
func setupCherryPick(ctx context.Context, pipeline *Pipeline, target Target) error {
	worktree := target.Worktree
	exists, err := worktree.BranchExists(ctx, hotfixBranch)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := worktree.CheckoutNewBranch(ctx, hotfixBranch, ""); err != nil {
		return err
	}
	if err := writeFile(worktree, hotfixFile, "HOTFIX.md"); err != nil {
		return err
	}
	if err := worktree.AddAll(ctx); err != nil {
		return err
	}
	if err := worktree.Commit(ctx, hotfixCommit); err != nil {
		return err
	}
	if err := worktree.Push(ctx, hotfixBranch, true); err != nil {
		return err
	}
	return worktree.Checkout(ctx, target.DefaultBranch)
}

// setupMergeConflict adds the same file with different content on a
// branch and on the default branch, then opens a pull request that
// cannot merge cleanly.
func setupMergeConflict(ctx context.Context, pipeline *Pipeline, target Target) error {
	worktree := target.Worktree
	exists, err := worktree.BranchExists(ctx, conflictBranch)
	if err != nil {
		return err
	}
	if !exists {
		if err := worktree.CheckoutNewBranch(ctx, conflictBranch, ""); err != nil {
			return err
		}
		if err := commitFile(ctx, worktree, conflictBranchFile, conflictTarget, "Use warm tile colors"); err != nil {
			return err
		}
		if err := worktree.Push(ctx, conflictBranch, true); err != nil {
			return err
		}
		if err := worktree.Checkout(ctx, target.DefaultBranch); err != nil {
			return err
		}
	}
	if err := commitFile(ctx, worktree, conflictMainFile, conflictTarget, "Use neutral tile colors"); err != nil {
		return err
	}
	if err := worktree.Push(ctx, target.DefaultBranch, false); err != nil {
		return err
	}

	existing, err := pipeline.client.ListPullRequests(ctx, target.Owner, target.Repository, github.ListPullRequestsOptions{
		State: "all",
		Head:  target.Owner + ":" + conflictBranch,
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = pipeline.client.CreatePullRequest(ctx, target.Owner, target.Repository, github.CreatePullRequestRequest{
		Title: conflictPullTitle,
		Body:  "Resolve the conflict in `" + conflictTarget + "` before merging.",
		Head:  conflictBranch,
		Base:  target.DefaultBranch,
	})
	return err
}
