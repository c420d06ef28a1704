// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/atomicfile"
	"github.com/bureau-foundation/classroom/lib/sealed"
	"github.com/bureau-foundation/classroom/lib/secret"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:    "token",
		Summary: "Manage the access token",
		Description: `Create an age identity, seal an access token to it, and check which
account a token authenticates as. A sealed token is configured with
github.token_file plus github.identity_file.`,
		Subcommands: []*cli.Command{
			tokenKeygenCommand(),
			tokenSealCommand(),
			tokenCheckCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Create an identity and seal a token to it",
				Command:     "classroom token keygen --output identity.txt && classroom token seal --recipient age1... --output token.age < token.txt",
			},
		},
	}
}

func tokenKeygenCommand() *cli.Command {
	var params struct {
		Output string `flag:"output,o" desc:"identity file to create" default:"identity.txt"`
	}
	return &cli.Command{
		Name:    "keygen",
		Summary: "Create an age identity file",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			recipient, err := writeIdentity(params.Output, time.Now())
			if err != nil {
				return err
			}
			fmt.Println(recipient)
			logger.Info("identity created", "path", params.Output)
			return nil
		},
	}
}

// writeIdentity creates a new identity file at path, which must not
// exist, and returns its recipient.
func writeIdentity(path string, now time.Time) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	identity, err := sealed.GenerateIdentity()
	if err != nil {
		return "", err
	}
	defer identity.Close()

	header := fmt.Sprintf("# created: %s\n# public key: %s\n", now.UTC().Format(time.RFC3339), identity.Recipient)
	contents := make([]byte, 0, len(header)+identity.Private.Len()+1)
	contents = append(contents, header...)
	contents = append(contents, identity.Private.Bytes()...)
	contents = append(contents, '\n')
	defer secret.Zero(contents)
	if err := atomicfile.WriteFile(path, contents, 0o600); err != nil {
		return "", err
	}
	return identity.Recipient, nil
}

func tokenSealCommand() *cli.Command {
	var params struct {
		Recipients []string `flag:"recipient" desc:"age recipient (repeatable)"`
		Input      string   `flag:"input,i" desc:"token file, or - for the first line of stdin" default:"-"`
		Output     string   `flag:"output,o" desc:"sealed file to write (default: stdout)"`
	}
	return &cli.Command{
		Name:    "seal",
		Summary: "Encrypt an access token to age recipients",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("seal takes no arguments")
			}
			ciphertext, err := sealToken(params.Input, params.Recipients)
			if err != nil {
				return err
			}
			if params.Output == "" {
				_, err := os.Stdout.Write(ciphertext)
				return err
			}
			if err := atomicfile.WriteFile(params.Output, ciphertext, 0o600); err != nil {
				return err
			}
			logger.Info("token sealed", "path", params.Output, "recipients", len(params.Recipients))
			return nil
		},
	}
}

func sealToken(input string, recipients []string) ([]byte, error) {
	for _, recipient := range recipients {
		if err := sealed.ValidateRecipient(recipient); err != nil {
			return nil, err
		}
	}
	token, err := secret.ReadFile(input)
	if err != nil {
		return nil, err
	}
	defer token.Close()
	return sealed.Seal(token.Bytes(), recipients)
}

func tokenCheckCommand() *cli.Command {
	var params configParams
	return &cli.Command{
		Name:    "check",
		Summary: "Show which account the configured token authenticates as",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			cfg, err := loadConfig(params.Config)
			if err != nil {
				return err
			}
			conn, err := connect(cfg, logger)
			if err != nil {
				return err
			}
			defer conn.close()
			return checkToken(ctx, os.Stdout, conn.stack, conn.source)
		},
	}
}

func checkToken(ctx context.Context, w io.Writer, s *stack, source string) error {
	user, err := s.client.GetAuthenticatedUser(ctx)
	if err != nil {
		return fmt.Errorf("token from %s: %w", source, err)
	}
	fmt.Fprintf(w, "%s authenticates as %s on %s\n", source, user.Login, s.config.GitHub.Server)
	return nil
}
