// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git runs the git CLI for lab provisioning: clone a class
// repository into a scratch workspace, point it at an authenticated
// remote, set the bot identity, commit, branch, and push.
//
// Every Repository method targets its directory with "git -C <dir>"
// and runs under a per-command timeout. A command that exceeds it
// fails with *TimeoutError, which callers treat as retryable. Error
// messages have access tokens embedded in remote URLs redacted.
package git
