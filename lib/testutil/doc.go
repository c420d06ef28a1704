// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern for tests that wait on goroutines: the webhook queue worker,
// the HTTP service, and cron loops driven by a fake clock. They are the
// only place tests use a real wall-clock timeout, and it exists only to
// turn a hang into a failure.
package testutil
