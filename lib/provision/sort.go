// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"sort"

	"github.com/bureau-foundation/classroom/lib/github"
)

func sortRepositories(repositories []github.Repository) {
	sort.Slice(repositories, func(i, j int) bool { return repositories[i].Name < repositories[j].Name })
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
