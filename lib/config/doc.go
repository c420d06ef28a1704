// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the classroom YAML configuration.
//
// The file is named by the CLASSROOM_CONFIG environment variable (via
// [Load]) or a --config flag (via [LoadFile]). There is no discovery:
// without one of the two, commands run on [Default] values plus flags.
//
// Environment-specific sections (development, staging, production)
// override base values when [Config].Environment matches. Path fields
// expand ${HOME}, ${CLASSROOM_ROOT}, and ${VAR:-default}.
//
// The access token is never stored in the file. [Config.LoadToken]
// reads it from CLASSROOM_TOKEN or GITHUB_TOKEN, or from
// github.token_file, which is an age-sealed file when
// github.identity_file is set.
package config
