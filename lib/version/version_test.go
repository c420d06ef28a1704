// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestApplySettings(t *testing.T) {
	build := Build{Commit: "unknown", BuildTime: "unknown"}
	applySettings(&build, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-03-10T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	})
	if build.Commit != "0123456789ab" {
		t.Errorf("Commit = %q, want 0123456789ab", build.Commit)
	}
	if build.BuildTime != "2026-03-10T12:00:00Z" {
		t.Errorf("BuildTime = %q", build.BuildTime)
	}
	if !build.Dirty {
		t.Error("Dirty = false, want true")
	}
}

func TestApplySettingsKeepsLinkerValues(t *testing.T) {
	build := Build{Commit: "abc1234", BuildTime: "2026-01-01"}
	applySettings(&build, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "ffffffffffff"},
		{Key: "vcs.time", Value: "2026-03-10T12:00:00Z"},
	})
	if build.Commit != "abc1234" || build.BuildTime != "2026-01-01" {
		t.Errorf("linker values replaced: %+v", build)
	}
}

func TestInfo(t *testing.T) {
	if !strings.HasPrefix(Info(), Version+" (") {
		t.Errorf("Info = %q, want prefix %q", Info(), Version+" (")
	}
	if !strings.Contains(Full(), "Go: ") {
		t.Errorf("Full = %q, missing Go version", Full())
	}
	if UserAgent() != "classroom/"+Version {
		t.Errorf("UserAgent = %q", UserAgent())
	}
}
