// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package provision creates, seeds, and deletes per-attendee class
// repositories.
//
// A repository goes through four steps: generation from the course
// template (private, all branches, class team as admin), a readiness
// poll until the default branch exists, configuration (deployment
// environment, Pages site, homepage, lab seeding), and a final push.
// Configuration steps that must not repeat are tracked in the class
// ledger so a retried provision resumes where the last one stopped.
//
// Batches of repositories run through a bounded worker pool. Each
// repository's steps stay in order; every failure in a batch is
// reported, not just the first.
package provision
