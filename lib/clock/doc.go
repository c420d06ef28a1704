// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the lifecycle code wait and read the time through
// an interface so tests can control both.
//
// Readiness polling, API backoff, and class expiry all take a Clock.
// Production passes Real(); tests pass Fake() and drive time forward:
//
//	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
//	go poller.Wait(ctx, repo)
//	fake.WaitForTimers(1)
//	fake.Advance(2 * time.Second)
package clock
