// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/classroom/cmd/classroom/cli"
	"github.com/bureau-foundation/classroom/lib/cron"
	"github.com/bureau-foundation/classroom/lib/secret"
	"github.com/bureau-foundation/classroom/lib/webhook"
)

type serveParams struct {
	configParams
	Listen string `flag:"listen" desc:"listen address (default: service.listen)"`
}

func serveCommand() *cli.Command {
	var params serveParams
	return &cli.Command{
		Name:    "serve",
		Summary: "Receive webhook deliveries and expire classes on a schedule",
		Description: `Run the webhook service. POST /webhook accepts signed issues and
issue_comment deliveries from the issueops repository; GET /healthz
reports the queue depth. Deliveries and scheduled expiry sweeps run one
at a time in arrival order.

The webhook secret is read from service.webhook_secret_file and the
expiry schedule from service.expire_schedule (cron syntax, UTC).`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("serve takes no arguments")
			}
			cfg, err := loadConfig(params.Config)
			if err != nil {
				return err
			}
			if params.Listen != "" {
				cfg.Service.Listen = params.Listen
			}
			if cfg.Service.WebhookSecretFile == "" {
				return errors.New("service.webhook_secret_file is required")
			}
			if cfg.Classroom.IssueOpsRepository == "" {
				return errors.New("classroom.issueops_repository is required")
			}
			webhookSecret, err := secret.ReadFile(cfg.Service.WebhookSecretFile)
			if err != nil {
				return fmt.Errorf("webhook secret: %w", err)
			}
			defer webhookSecret.Close()

			var schedule *cron.Schedule
			if cfg.Service.ExpireSchedule != "" {
				parsed, err := cron.Parse(cfg.Service.ExpireSchedule)
				if err != nil {
					return fmt.Errorf("service.expire_schedule: %w", err)
				}
				schedule = &parsed
			}

			conn, err := connect(cfg, logger)
			if err != nil {
				return err
			}
			defer conn.close()

			self := authenticatedLogin(ctx, conn.client, logger)
			dispatcher, err := conn.dispatcher("", self)
			if err != nil {
				return err
			}
			service, err := webhook.NewService(webhook.ServiceConfig{
				Address:    cfg.Service.Listen,
				Dispatcher: dispatcher,
				Secret:     webhookSecret.Bytes(),
				Schedule:   schedule,
				Logger:     logger.With("component", "webhook"),
			})
			if err != nil {
				return err
			}
			logger.Info("starting webhook service",
				"listen", cfg.Service.Listen,
				"organization", cfg.GitHub.Organization,
				"issueops", cfg.Classroom.IssueOpsRepository,
				"expire_schedule", cfg.Service.ExpireSchedule,
			)
			return service.Run(ctx)
		},
	}
}
