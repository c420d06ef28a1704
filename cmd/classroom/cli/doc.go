// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the classroom binary.
//
// A [Command] tree dispatches on the first positional argument. Leaf
// commands declare their flags as a tagged params struct (see
// [BindFlags]), receive a context cancelled on SIGINT/SIGTERM, and a
// logger built by [NewCommandLogger] and scoped with the command path.
// Every command accepts --verbose to lower the log level to debug.
//
// Unknown commands and flags produce an error with the closest match
// suggested, measured by edit distance.
package cli
