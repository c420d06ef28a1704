// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package github is the hosting-platform client used by the classroom
// lifecycle: repositories created from a template, class teams,
// organization memberships and invitations, tracking issues, pull
// requests, repository search, and the GraphQL identity query.
//
// One Client is built at process entry and passed to every component.
// It authenticates with a token, speaks HTTPS only, follows RFC 5988
// Link pagination, waits out exhausted rate limits, and retries
// transient failures (429, secondary rate limits, 5xx) with bounded
// exponential backoff. Non-2xx responses surface as *APIError; use
// IsNotFound to turn a 404 into an ordinary absent result.
//
// List methods collect every page before returning so that callers
// can depend on small interfaces satisfied by both Client and the
// in-memory fake in githubtest.
package github
