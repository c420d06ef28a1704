// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type greetParams struct {
	Name  string `flag:"name,n" desc:"who to greet" default:"world"`
	Times int    `flag:"times" desc:"repeat count" default:"1"`
}

func testTree(stderr *bytes.Buffer, called *[]string) *Command {
	var params greetParams
	return &Command{
		Name:   "classroom",
		Stderr: stderr,
		Subcommands: []*Command{
			{
				Name:    "greet",
				Summary: "Say hello",
				Params:  func() any { return &params },
				Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
					*called = append(*called, "greet:"+params.Name+":"+strings.Join(args, ","))
					logger.Debug("greeted")
					return nil
				},
			},
			{
				Name:    "token",
				Summary: "Token tools",
				Subcommands: []*Command{
					{
						Name:    "seal",
						Summary: "Seal a token",
						Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
							*called = append(*called, "seal")
							return nil
						},
					},
				},
			},
		},
	}
}

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var stderr bytes.Buffer
	var called []string
	root := testTree(&stderr, &called)

	if err := root.Execute(context.Background(), []string{"greet", "--name", "ada", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := root.Execute(context.Background(), []string{"token", "seal"}); err != nil {
		t.Fatalf("Execute nested: %v", err)
	}
	want := []string{"greet:ada:extra", "seal"}
	if strings.Join(called, " ") != strings.Join(want, " ") {
		t.Errorf("called = %v, want %v", called, want)
	}
}

func TestExecuteVerboseLogsDebug(t *testing.T) {
	var stderr bytes.Buffer
	var called []string
	root := testTree(&stderr, &called)

	if err := root.Execute(context.Background(), []string{"greet"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Contains(stderr.String(), "greeted") {
		t.Errorf("debug record logged without --verbose: %s", stderr.String())
	}
	if err := root.Execute(context.Background(), []string{"greet", "-v"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stderr.String(), `"msg":"greeted"`) || !strings.Contains(stderr.String(), `"command":"greet"`) {
		t.Errorf("stderr = %s, want a JSON debug record scoped to greet", stderr.String())
	}
}

func TestExecuteUnknownCommandSuggestion(t *testing.T) {
	var stderr bytes.Buffer
	var called []string
	root := testTree(&stderr, &called)

	err := root.Execute(context.Background(), []string{"gret"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "greet"`) {
		t.Errorf("Execute(gret) = %v, want a suggestion of greet", err)
	}
	err = root.Execute(context.Background(), []string{"zzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("Execute(zzzzzzzz) = %v, want an error without a suggestion", err)
	}
}

func TestExecuteUnknownFlagSuggestion(t *testing.T) {
	var stderr bytes.Buffer
	var called []string
	root := testTree(&stderr, &called)

	err := root.Execute(context.Background(), []string{"greet", "--nme", "x"})
	if err == nil || !strings.Contains(err.Error(), "did you mean --name?") {
		t.Errorf("Execute = %v, want a suggestion of --name", err)
	}
	if len(called) != 0 {
		t.Errorf("Run called after a flag error: %v", called)
	}
}

func TestExecuteGroupWithoutSubcommand(t *testing.T) {
	var stderr bytes.Buffer
	var called []string
	root := testTree(&stderr, &called)

	err := root.Execute(context.Background(), nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 2 {
		t.Errorf("Execute() = %v, want exit code 2", err)
	}
	if !strings.Contains(stderr.String(), "Commands:") {
		t.Errorf("help not printed: %s", stderr.String())
	}
}

func TestExecuteHelp(t *testing.T) {
	var stderr bytes.Buffer
	var called []string
	root := testTree(&stderr, &called)

	if err := root.Execute(context.Background(), []string{"greet", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	output := stderr.String()
	for _, want := range []string{"Usage:\n  classroom greet [flags]", "--name", "--verbose", "who to greet"} {
		if !strings.Contains(output, want) {
			t.Errorf("help missing %q:\n%s", want, output)
		}
	}
	if len(called) != 0 {
		t.Errorf("Run called for --help: %v", called)
	}
}

func TestFullName(t *testing.T) {
	var stderr bytes.Buffer
	var called []string
	root := testTree(&stderr, &called)
	token := root.Subcommands[1]
	seal := token.Subcommands[0]
	token.parent = root
	seal.parent = token

	if got := seal.fullName(); got != "classroom token seal" {
		t.Errorf("fullName = %q, want %q", got, "classroom token seal")
	}
	if got := seal.path(); got != "token/seal" {
		t.Errorf("path = %q, want %q", got, "token/seal")
	}
}

func TestEmitJSON(t *testing.T) {
	var out bytes.Buffer
	output := JSONOutput{Stdout: &out}
	if done, err := output.EmitJSON([]string{"a"}); done || err != nil {
		t.Fatalf("EmitJSON without --json = (%v, %v), want (false, nil)", done, err)
	}

	output.OutputJSON = true
	var empty []string
	if done, err := output.EmitJSON(empty); !done || err != nil {
		t.Fatalf("EmitJSON = (%v, %v), want (true, nil)", done, err)
	}
	if got := strings.TrimSpace(out.String()); got != "[]" {
		t.Errorf("nil slice encoded as %q, want []", got)
	}
}
