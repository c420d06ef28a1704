// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package membership

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Instructors is the allow-list of handles that may trigger lifecycle
// operations and are never removed from the organization.
type Instructors struct {
	handles map[string]bool
}

// instructorsFile is the on-disk layout:
//
//	instructors:
//	  - octocat
//	  - hubot
type instructorsFile struct {
	Instructors []string `yaml:"instructors"`
}

// LoadInstructors reads an instructor allow-list from a YAML file.
func LoadInstructors(path string) (*Instructors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading instructor list: %w", err)
	}
	return ParseInstructors(data)
}

// ParseInstructors parses the YAML allow-list.
func ParseInstructors(data []byte) (*Instructors, error) {
	var file instructorsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing instructor list: %w", err)
	}
	return NewInstructors(file.Instructors...), nil
}

// NewInstructors builds an allow-list from handles.
func NewInstructors(handles ...string) *Instructors {
	instructors := &Instructors{handles: make(map[string]bool, len(handles))}
	for _, handle := range handles {
		if handle = strings.ToLower(strings.TrimSpace(handle)); handle != "" {
			instructors.handles[handle] = true
		}
	}
	return instructors
}

// Contains reports whether handle is an instructor. A nil list
// contains nobody.
func (instructors *Instructors) Contains(handle string) bool {
	if instructors == nil {
		return false
	}
	return instructors.handles[strings.ToLower(strings.TrimSpace(handle))]
}

// Len returns the number of instructors.
func (instructors *Instructors) Len() int {
	if instructors == nil {
		return 0
	}
	return len(instructors.handles)
}
