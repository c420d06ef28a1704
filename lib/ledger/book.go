// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/bureau-foundation/classroom/lib/clock"
)

// Book hands out one ledger per class team, stored as
// "<dir>/<team>.ledger". A Book with an empty directory keeps every
// ledger in memory. Safe for concurrent use.
type Book struct {
	dir   string
	clock clock.Clock

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewBook creates a Book rooted at dir.
func NewBook(dir string, clk clock.Clock) *Book {
	if clk == nil {
		clk = clock.Real()
	}
	return &Book{dir: dir, clock: clk, ledgers: make(map[string]*Ledger)}
}

// Path returns the file backing team's ledger, or "" in memory.
func (book *Book) Path(team string) string {
	if book.dir == "" {
		return ""
	}
	return filepath.Join(book.dir, strings.ToLower(team)+".ledger")
}

// For returns team's ledger, loading it on first use.
func (book *Book) For(team string) (*Ledger, error) {
	team = strings.ToLower(team)
	book.mu.Lock()
	defer book.mu.Unlock()
	if ledger, ok := book.ledgers[team]; ok {
		return ledger, nil
	}
	var ledger *Ledger
	if book.dir == "" {
		ledger = Memory(team)
		ledger.clock = book.clock
	} else {
		var err error
		if ledger, err = Open(book.Path(team), team, book.clock); err != nil {
			return nil, err
		}
	}
	book.ledgers[team] = ledger
	return ledger, nil
}
