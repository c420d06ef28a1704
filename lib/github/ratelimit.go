// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bureau-foundation/classroom/lib/clock"
)

// rateLimitTracker remembers the last X-RateLimit-* headers and blocks
// new requests while the budget is exhausted.
type rateLimitTracker struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool
	clock     clock.Clock
}

func newRateLimitTracker(clk clock.Clock) *rateLimitTracker {
	return &rateLimitTracker{clock: clk}
}

// update records the budget from a response.
func (tracker *rateLimitTracker) update(header http.Header) {
	remaining, err := strconv.Atoi(header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.remaining = remaining
	tracker.reset = time.Unix(resetUnix, 0)
	tracker.known = true
}

// wait blocks until the reset time when the budget is known to be
// spent.
func (tracker *rateLimitTracker) wait(ctx context.Context) error {
	tracker.mu.Lock()
	if !tracker.known || tracker.remaining > 0 {
		tracker.mu.Unlock()
		return nil
	}
	duration := tracker.reset.Sub(tracker.clock.Now())
	// One request is let through after the wait; its headers refresh
	// the budget.
	tracker.known = false
	tracker.mu.Unlock()

	if duration <= 0 {
		return nil
	}
	return clock.Sleep(ctx, tracker.clock, duration)
}

// retryAfter reads the server-requested wait from a failed response:
// Retry-After seconds for secondary limits, X-RateLimit-Reset for an
// exhausted primary budget. Zero when neither applies.
func (tracker *rateLimitTracker) retryAfter(header http.Header) time.Duration {
	if seconds, err := strconv.Atoi(header.Get("Retry-After")); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if header.Get("X-RateLimit-Remaining") != "0" {
		return 0
	}
	if resetUnix, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if duration := time.Unix(resetUnix, 0).Sub(tracker.clock.Now()); duration > 0 {
			return duration
		}
	}
	return 0
}
