// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger records which provisioning steps have completed for a
// class so a retried operation can skip steps that must not run twice,
// such as lab commits and pull requests.
//
// Entries are keyed by a step key ("<repository>/lab-03") and carry a
// fingerprint of the step's content. A step counts as done only when
// the recorded fingerprint matches, so changing a lab's content makes
// it eligible to run again. The ledger file is deterministic CBOR in a
// zstd frame, rewritten atomically after every change.
package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/classroom/lib/atomicfile"
	"github.com/bureau-foundation/classroom/lib/clock"
	"github.com/bureau-foundation/classroom/lib/codec"
)

// formatVersion is written into every ledger file.
const formatVersion = 1

// fingerprintDomain keys the BLAKE3 hash so ledger fingerprints can
// never collide with hashes computed for another purpose.
var fingerprintDomain = [32]byte{'c', 'l', 'a', 's', 's', 'r', 'o', 'o', 'm', '.', 'l', 'e', 'd', 'g', 'e', 'r', '.', 's', 't', 'e', 'p'}

// Entry is one completed step.
type Entry struct {
	Key         string    `cbor:"key"`
	Fingerprint string    `cbor:"fingerprint"`
	RunID       string    `cbor:"run_id"`
	CompletedAt time.Time `cbor:"completed_at"`
}

type ledgerFile struct {
	Version int     `cbor:"version"`
	Class   string  `cbor:"class"`
	Entries []Entry `cbor:"entries"`
}

// Ledger is the completed-step record of one class. Safe for
// concurrent use.
type Ledger struct {
	mu      sync.Mutex
	path    string
	class   string
	entries map[string]Entry
	clock   clock.Clock
}

// Open loads the ledger at path, or starts an empty one when the file
// does not exist yet. The parent directory is created on first write.
func Open(path, class string, clk clock.Clock) (*Ledger, error) {
	if clk == nil {
		clk = clock.Real()
	}
	ledger := &Ledger{path: path, class: class, entries: make(map[string]Entry), clock: clk}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	var file ledgerFile
	if err := codec.UnmarshalCompressed(data, &file); err != nil {
		return nil, fmt.Errorf("decoding ledger %s: %w", path, err)
	}
	if file.Version != formatVersion {
		return nil, fmt.Errorf("ledger %s has format version %d, want %d", path, file.Version, formatVersion)
	}
	if file.Class != class {
		return nil, fmt.Errorf("ledger %s belongs to class %q, not %q", path, file.Class, class)
	}
	for _, entry := range file.Entries {
		ledger.entries[entry.Key] = entry
	}
	return ledger, nil
}

// Memory returns a ledger that is never written to disk.
func Memory(class string) *Ledger {
	return &Ledger{class: class, entries: make(map[string]Entry), clock: clock.Real()}
}

// Path returns the backing file, or "" for an in-memory ledger.
func (ledger *Ledger) Path() string {
	return ledger.path
}

// Done reports whether key completed with the same fingerprint.
func (ledger *Ledger) Done(key, fingerprint string) bool {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	entry, ok := ledger.entries[key]
	return ok && entry.Fingerprint == fingerprint
}

// Record marks key complete and persists the ledger.
func (ledger *Ledger) Record(key, fingerprint, runID string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	ledger.entries[key] = Entry{
		Key:         key,
		Fingerprint: fingerprint,
		RunID:       runID,
		CompletedAt: ledger.clock.Now().UTC(),
	}
	return ledger.saveLocked()
}

// Forget drops every entry whose key starts with prefix and persists
// the ledger. Called when a repository is created or deleted so a new
// repository with the same name is provisioned from scratch.
func (ledger *Ledger) Forget(prefix string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	removed := 0
	for key := range ledger.entries {
		if strings.HasPrefix(key, prefix) {
			delete(ledger.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return nil
	}
	return ledger.saveLocked()
}

// Entries returns every entry sorted by key.
func (ledger *Ledger) Entries() []Entry {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	return ledger.sortedLocked()
}

func (ledger *Ledger) sortedLocked() []Entry {
	entries := make([]Entry, 0, len(ledger.entries))
	for _, entry := range ledger.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

func (ledger *Ledger) saveLocked() error {
	if ledger.path == "" {
		return nil
	}
	data, err := codec.MarshalCompressed(ledgerFile{
		Version: formatVersion,
		Class:   ledger.class,
		Entries: ledger.sortedLocked(),
	})
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(ledger.path), 0o700); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	return atomicfile.WriteFile(ledger.path, data, 0o600)
}

// Key joins a repository name and step name into a ledger key.
func Key(repository, step string) string {
	return repository + "/" + step
}

// Fingerprint hashes the parts that define a step's effect. Parts are
// length-prefixed so ("ab", "c") and ("a", "bc") differ.
func Fingerprint(parts ...[]byte) string {
	hasher, err := blake3.NewKeyed(fingerprintDomain[:])
	if err != nil {
		panic("ledger: blake3 keyed hasher: " + err.Error())
	}
	var length [8]byte
	for _, part := range parts {
		size := uint64(len(part))
		for index := range length {
			length[index] = byte(size >> (8 * index))
		}
		hasher.Write(length[:])
		hasher.Write(part)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)[:16])
}
