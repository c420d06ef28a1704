// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoToken means none of the consulted sources held a token.
var ErrNoToken = errors.New("no access token")

// FromEnv returns the first non-empty variable among names, trimmed,
// and the name it came from. The variable is removed from the process
// environment so git and other children do not inherit it.
func FromEnv(names ...string) (*Buffer, string, error) {
	for _, name := range names {
		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		data := bytes.TrimSpace([]byte(value))
		if len(data) == 0 {
			continue
		}
		buffer, err := NewFromBytes(data)
		if err != nil {
			return nil, "", err
		}
		os.Unsetenv(name)
		return buffer, name, nil
	}
	return nil, "", fmt.Errorf("%w in %v", ErrNoToken, names)
}

// ReadFile reads a secret from path, or the first line of stdin when
// path is "-". Surrounding whitespace is dropped.
func ReadFile(path string) (*Buffer, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, 64<<10))
		if newline := bytes.IndexByte(data, '\n'); newline >= 0 {
			Zero(data[newline:])
			data = data[:newline]
		}
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	return FromBytes(data)
}

// FromBytes trims data and moves it into a Buffer. All of data is
// zeroed.
func FromBytes(data []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, ErrNoToken
	}
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	return buffer, err
}
