// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package classroom defines the class record shared by every lifecycle
// component: the Class value, its administrators and attendees, the
// pure naming functions that derive team and repository names from it,
// and the precondition errors lifecycle operations report.
//
// Class values are snapshots. Methods that change membership return a
// new Class and never modify the receiver's slices, so a value read
// from storage cannot be altered by an operation that later fails.
package classroom
