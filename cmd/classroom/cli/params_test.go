// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"
)

type recordParams struct {
	JSONOutput
	Record   string        `flag:"record,r" desc:"class record" default:"classroom.json"`
	Force    bool          `flag:"force" desc:"skip checks"`
	Workers  int           `flag:"workers" default:"4"`
	Timeout  time.Duration `flag:"timeout" default:"5m"`
	Handles  []string      `flag:"handle"`
	Config   string        `flag:"config" env:"CLASSROOM_TEST_CONFIG"`
	internal string
}

func TestBindFlagsDefaults(t *testing.T) {
	var params recordParams
	flagSet := FlagsFromParams("test", &params)
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Record != "classroom.json" {
		t.Errorf("Record = %q, want classroom.json", params.Record)
	}
	if params.Workers != 4 {
		t.Errorf("Workers = %d, want 4", params.Workers)
	}
	if params.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", params.Timeout)
	}
	if params.Force || params.OutputJSON {
		t.Errorf("bools default true: force=%v json=%v", params.Force, params.OutputJSON)
	}
	if params.internal != "" {
		t.Errorf("untagged field bound")
	}
}

func TestBindFlagsParse(t *testing.T) {
	var params recordParams
	flagSet := FlagsFromParams("test", &params)
	args := []string{"-r", "other.json", "--force", "--json", "--handle", "ada,grace", "--handle", "linus", "--timeout", "30s", "positional"}
	if err := flagSet.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Record != "other.json" || !params.Force || !params.OutputJSON {
		t.Errorf("params = %+v", params)
	}
	if got := strings.Join(params.Handles, " "); got != "ada grace linus" {
		t.Errorf("Handles = %q, want %q", got, "ada grace linus")
	}
	if params.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", params.Timeout)
	}
	if got := flagSet.Args(); len(got) != 1 || got[0] != "positional" {
		t.Errorf("Args = %v, want [positional]", got)
	}
}

func TestBindFlagsEnvironmentDefault(t *testing.T) {
	t.Setenv("CLASSROOM_TEST_CONFIG", "/etc/classroom.yaml")
	var params recordParams
	flagSet := FlagsFromParams("test", &params)
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Config != "/etc/classroom.yaml" {
		t.Errorf("Config = %q, want the environment value", params.Config)
	}
	if err := flagSet.Parse([]string{"--config", "cli.yaml"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Config != "cli.yaml" {
		t.Errorf("Config = %q, want the flag value", params.Config)
	}
}

func TestBindFlagsErrors(t *testing.T) {
	flagSet := FlagsFromParams("test", &struct{}{})
	if err := BindFlags(recordParams{}, flagSet); err == nil {
		t.Error("BindFlags accepted a non-pointer")
	}
	value := 3
	if err := BindFlags(&value, flagSet); err == nil {
		t.Error("BindFlags accepted a pointer to a non-struct")
	}
	bad := struct {
		Count int `flag:"count" default:"many"`
	}{}
	if err := BindFlags(&bad, flagSet); err == nil || !strings.Contains(err.Error(), "--count") {
		t.Errorf("BindFlags(bad default) = %v, want an error naming --count", err)
	}
	unsupported := struct {
		Ratio float32 `flag:"ratio"`
	}{}
	if err := BindFlags(&unsupported, flagSet); err == nil {
		t.Error("BindFlags accepted float32")
	}
}
