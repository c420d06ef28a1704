// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package issueops drives the class lifecycle from an issue tracker.
//
// A class request is an issue in the issueops repository whose body
// is the class request form (see package issueform). Opening or
// editing the issue creates the class; closing it tears the class
// down. Comments beginning with .add-user, .add-admin, .remove-user or
// .remove-admin change membership. Outcomes are reported back to the
// issue as labels and comments.
//
// The Dispatcher authorizes the triggering account against the
// instructor allow-list, builds the class snapshot from the issue
// body, and runs exactly one lifecycle operation per event. The
// IssueSource lists open class requests for scheduled expiry.
package issueops
