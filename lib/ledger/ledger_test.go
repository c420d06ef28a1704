// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/classroom/lib/clock"
)

func TestRecordAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "NA1.ledger")
	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	ledger, err := Open(path, "NA1", fake)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := Key("gh-int-na1-alice", "lab-03")
	fingerprint := Fingerprint([]byte("lab-03"), []byte("v1"))
	if ledger.Done(key, fingerprint) {
		t.Fatal("fresh ledger reports step done")
	}
	if err := ledger.Record(key, fingerprint, "run-1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	reopened, err := Open(path, "NA1", fake)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.Done(key, fingerprint) {
		t.Error("reopened ledger lost the recorded step")
	}
	if reopened.Done(key, Fingerprint([]byte("lab-03"), []byte("v2"))) {
		t.Error("step with changed fingerprint reported done")
	}
	entries := reopened.Entries()
	if len(entries) != 1 {
		t.Fatalf("Entries() = %d entries, want 1", len(entries))
	}
	if entries[0].RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", entries[0].RunID)
	}
	if !entries[0].CompletedAt.Equal(fake.Now()) {
		t.Errorf("CompletedAt = %v, want %v", entries[0].CompletedAt, fake.Now())
	}
}

func TestOpenRejectsOtherClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	ledger, err := Open(path, "NA1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Record("r/lab-01", "fp", "run"); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, "EU2", nil); err == nil || !strings.Contains(err.Error(), "belongs to class") {
		t.Errorf("Open with another class: err = %v", err)
	}
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	if err := os.WriteFile(path, []byte("not a ledger"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, "NA1", nil); err == nil {
		t.Error("expected an error decoding a corrupt ledger")
	}
}

func TestForgetByRepositoryPrefix(t *testing.T) {
	ledger := Memory("NA1")
	for _, key := range []string{
		Key("gh-int-na1-alice", "lab-03"),
		Key("gh-int-na1-alice", "pages"),
		Key("gh-int-na1-alicia", "lab-03"),
	} {
		if err := ledger.Record(key, "fp", "run"); err != nil {
			t.Fatal(err)
		}
	}

	if err := ledger.Forget("gh-int-na1-alice/"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	entries := ledger.Entries()
	if len(entries) != 1 || entries[0].Key != "gh-int-na1-alicia/lab-03" {
		t.Errorf("Entries() after Forget = %+v", entries)
	}
}

func TestFingerprintIsLengthPrefixed(t *testing.T) {
	if Fingerprint([]byte("ab"), []byte("c")) == Fingerprint([]byte("a"), []byte("bc")) {
		t.Error("fingerprints of differently split parts collide")
	}
	if Fingerprint([]byte("x")) != Fingerprint([]byte("x")) {
		t.Error("fingerprint is not deterministic")
	}
	if len(Fingerprint()) != 32 {
		t.Errorf("fingerprint length = %d, want 32 hex characters", len(Fingerprint()))
	}
}

func TestBookOpensOneFilePerTeam(t *testing.T) {
	dir := t.TempDir()
	book := NewBook(dir, clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))

	first, err := book.For("GH-INT-NA1")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	again, err := book.For("gh-int-na1")
	if err != nil {
		t.Fatal(err)
	}
	if first != again {
		t.Error("For returned a second ledger for the same team")
	}
	if err := first.Record(Key("gh-int-na1-alice", "pages"), "fp", "run-1"); err != nil {
		t.Fatal(err)
	}
	if first.Path() != filepath.Join(dir, "gh-int-na1.ledger") {
		t.Errorf("Path = %q", first.Path())
	}
	if _, err := os.Stat(book.Path("gh-int-na1")); err != nil {
		t.Errorf("ledger file not written: %v", err)
	}

	other, err := book.For("gh-int-eu2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other.Entries()) != 0 {
		t.Error("ledgers of different teams share entries")
	}

	reopened, err := NewBook(dir, nil).For("gh-int-na1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.Done(Key("gh-int-na1-alice", "pages"), "fp") {
		t.Error("reopened book lost the recorded step")
	}
}

func TestMemoryBook(t *testing.T) {
	book := NewBook("", nil)
	record, err := book.For("gh-int-na1")
	if err != nil {
		t.Fatal(err)
	}
	if record.Path() != "" || book.Path("gh-int-na1") != "" {
		t.Error("memory book reports a file path")
	}
}
