// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps the platform access token out of the Go heap.
//
// [Buffer] holds bytes in an anonymous mmap region that is mlocked
// (never swapped), excluded from core dumps, and zeroed on Close. The
// token is read once at startup, from the environment ([FromEnv]) or a
// file ([ReadFile]), and the heap copies made while reading are zeroed
// immediately.
//
// The HTTP client and the git remote URL still need the token as a
// string; [Buffer.String] makes that copy at the call boundary.
package secret
