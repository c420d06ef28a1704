// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atomicfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileReplaces(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "classroom.json")
	if err := os.WriteFile(path, []byte(`{"customerAbbr":"OLD"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFile(path, []byte(`{"customerAbbr":"NA1"}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"customerAbbr":"NA1"}` {
		t.Errorf("contents = %s", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the target (temporary files leaked)", len(entries))
	}
}

func TestWriteFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "ledger")
	if err := WriteFile(path, []byte("x"), 0o600); err == nil {
		t.Fatal("expected an error when the parent directory does not exist")
	}
}
