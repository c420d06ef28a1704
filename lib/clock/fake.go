// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only when Advance is called.
// Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	current time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
}

// Fake returns a FakeClock set to initial.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{current: initial}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// Now returns the fake current time.
func (fake *FakeClock) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.current
}

// After registers a waiter that fires when the clock has advanced by
// at least d.
func (fake *FakeClock) After(d time.Duration) <-chan time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- fake.current
		return channel
	}
	fake.waiters = append(fake.waiters, fakeWaiter{
		deadline: fake.current.Add(d),
		channel:  channel,
	})
	fake.changed.Broadcast()
	return channel
}

// Set moves the clock to t. Waiters whose deadline is at or before t
// fire, as with Advance.
func (fake *FakeClock) Set(t time.Time) {
	fake.mu.Lock()
	delta := t.Sub(fake.current)
	fake.mu.Unlock()
	fake.Advance(delta)
}

// Advance moves the clock forward by d and fires, in deadline order,
// every waiter whose deadline has been reached.
func (fake *FakeClock) Advance(d time.Duration) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.current = fake.current.Add(d)

	var due, pending []fakeWaiter
	for _, waiter := range fake.waiters {
		if waiter.deadline.After(fake.current) {
			pending = append(pending, waiter)
		} else {
			due = append(due, waiter)
		}
	}
	fake.waiters = pending

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, waiter := range due {
		waiter.channel <- fake.current
	}
	fake.changed.Broadcast()
}

// WaitForTimers blocks until at least n waiters are pending. Tests call
// it before Advance so the goroutine under test has registered its
// timer.
func (fake *FakeClock) WaitForTimers(n int) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for len(fake.waiters) < n {
		fake.changed.Wait()
	}
}

// PendingCount returns the number of registered waiters that have not
// fired.
func (fake *FakeClock) PendingCount() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.waiters)
}
