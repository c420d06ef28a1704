// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for the classroom binary:
// reporting an error to stderr before the structured logger exists,
// and mapping errors to exit codes.
package process
