// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package membership answers two questions about a handle: what is its
// organization membership state, and is it exempt from removal.
//
// An exempt identity (a GitHub employee, an account whose email is in a
// partner domain, or a listed instructor) keeps its organization
// membership through every teardown. Exemption never protects the
// class repository or team membership.
package membership
