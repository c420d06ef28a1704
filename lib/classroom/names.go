// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package classroom

import "strings"

// DefaultPrefix begins every team and repository name.
const DefaultPrefix = "gh-int"

// Naming derives resource names. Every name is a pure function of the
// prefix, the class abbreviation, and (for repositories) a handle, so
// existence checks can be repeated at any time without stored IDs.
type Naming struct {
	Prefix string
}

func (naming Naming) prefix() string {
	if naming.Prefix == "" {
		return DefaultPrefix
	}
	return naming.Prefix
}

// Team returns the class team name: "<prefix>-<abbr>", lowercase.
func (naming Naming) Team(class Class) string {
	return naming.prefix() + "-" + strings.ToLower(strings.TrimSpace(class.CustomerAbbr))
}

// Repository returns the repository name for one member:
// "<prefix>-<abbr>-<handle>", lowercase.
func (naming Naming) Repository(class Class, handle string) string {
	return naming.Team(class) + "-" + strings.ToLower(strings.TrimSpace(handle))
}

// RepositoryPrefix returns the prefix shared by every repository of
// the class, including the trailing separator.
func (naming Naming) RepositoryPrefix(class Class) string {
	return naming.Team(class) + "-"
}

// HandleFromRepository returns the handle a repository name was
// derived from, or false when name does not belong to the class.
func (naming Naming) HandleFromRepository(class Class, name string) (string, bool) {
	handle, found := strings.CutPrefix(strings.ToLower(name), naming.RepositoryPrefix(class))
	if !found || !ValidHandle(handle) {
		return "", false
	}
	return handle, true
}
