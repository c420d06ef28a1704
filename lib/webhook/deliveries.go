// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package webhook

import "sync"

// deliveries remembers the most recent delivery IDs so redeliveries
// are acknowledged without running twice.
type deliveries struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	capacity int
}

func newDeliveries(capacity int) *deliveries {
	if capacity <= 0 {
		capacity = 1024
	}
	return &deliveries{seen: make(map[string]struct{}, capacity), capacity: capacity}
}

// add records id and reports whether it was new.
func (set *deliveries) add(id string) bool {
	set.mu.Lock()
	defer set.mu.Unlock()
	if _, found := set.seen[id]; found {
		return false
	}
	if len(set.order) == set.capacity {
		delete(set.seen, set.order[0])
		set.order = set.order[1:]
	}
	set.seen[id] = struct{}{}
	set.order = append(set.order, id)
	return true
}

// forget drops id so a later redelivery is accepted.
func (set *deliveries) forget(id string) {
	set.mu.Lock()
	defer set.mu.Unlock()
	if _, found := set.seen[id]; !found {
		return
	}
	delete(set.seen, id)
	for index, candidate := range set.order {
		if candidate == id {
			set.order = append(set.order[:index], set.order[index+1:]...)
			break
		}
	}
}
