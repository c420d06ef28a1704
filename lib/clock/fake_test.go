// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(5 * time.Second)

	fake.Advance(4 * time.Second)
	select {
	case <-channel:
		t.Fatal("waiter fired before its deadline")
	default:
	}

	fake.Advance(time.Second)
	select {
	case fired := <-channel:
		if want := epoch.Add(5 * time.Second); !fired.Equal(want) {
			t.Errorf("fired at %v, want %v", fired, want)
		}
	default:
		t.Fatal("waiter did not fire at its deadline")
	}
	if fake.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", fake.PendingCount())
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	fake := Fake(epoch)
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeSet(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(time.Hour)
	fake.Set(epoch.Add(2 * time.Hour))

	if got := fake.Now(); !got.Equal(epoch.Add(2 * time.Hour)) {
		t.Errorf("Now = %v, want %v", got, epoch.Add(2*time.Hour))
	}
	select {
	case <-channel:
	default:
		t.Fatal("waiter did not fire after Set past its deadline")
	}
}

func TestSleepWaitsForFakeClock(t *testing.T) {
	fake := Fake(epoch)
	done := make(chan error, 1)
	go func() {
		done <- Sleep(context.Background(), fake, 3*time.Second)
	}()

	fake.WaitForTimers(1)
	fake.Advance(3 * time.Second)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Sleep: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestSleepCancelled(t *testing.T) {
	fake := Fake(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Sleep(ctx, fake, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep error = %v, want context.Canceled", err)
	}
}
