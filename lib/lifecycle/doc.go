// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle is the one state machine for a class:
// Requested -> Active -> Closed, with Expired as a Closed reached by
// date rather than by an explicit close.
//
// Every operation checks its preconditions before mutating anything
// and returns a new class snapshot for the caller to persist. The
// controller does not know where a request came from: issue events
// and the classroom.json command line both drive it, and report
// outcomes through a [Notifier] supplied with the [Trigger].
package lifecycle
