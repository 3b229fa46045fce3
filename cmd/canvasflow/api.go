package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/canvasflow/canvasflow/pkg/cmd"
	"github.com/canvasflow/canvasflow/pkg/log"
	"github.com/canvasflow/canvasflow/pkg/service"
	"github.com/canvasflow/canvasflow/pkg/triggers/webhook"
	"github.com/canvasflow/canvasflow/pkg/web"
)

const (
	defaultAPIPort     = 9091
	defaultWebhookPort = 9092
)

func APICommand() *cli.Command {
	return &cli.Command{
		Name:    "api",
		Aliases: []string{"a"},
		Usage:   "Start the workflow API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultAPIPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.IntFlag{
				Name:    "webhook-port",
				Usage:   "Port to run the webhook listener on",
				Value:   defaultWebhookPort,
				Sources: cli.EnvVars("WEBHOOK_PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Run store URL (redis://... or empty for in-memory)",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")
			logger.Info("Initializing Canvasflow API")

			webhooks := webhook.NewServerManager(logger)

			registry := cmd.NewRegistry(logger, webhooks)

			eventBus := cmd.NewEventBus(logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			if err := cmd.SubscribeRunEventLogging(ctx, eventBus, logger); err != nil {
				logger.Error("Failed to subscribe to run events", "error", err)

				return err
			}

			repository := cmd.NewRunRepository(command.String("database-url"))
			defer func() {
				if err := repository.Close(ctx); err != nil {
					logger.Error("Failed to close run repository", "error", err)
				}
			}()

			manager := service.NewManager(registry, repository, eventBus, logger)

			go func() {
				if err := webhooks.Start(command.Int("webhook-port")); err != nil {
					logger.Error("Webhook listener stopped", "error", err)
				}
			}()

			api := web.NewAPI(logger, manager, repository)

			if err := api.Start(command.Int("port")); err != nil {
				logger.Error("Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}
}
