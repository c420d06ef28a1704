// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the classroom binary.
//
// Values are injected with -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/classroom/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When they are not injected, the VCS stamp the Go toolchain embeds in
// the binary is used instead.
package version
