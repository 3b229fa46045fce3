package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/canvasflow/canvasflow/pkg/cmd"
	"github.com/canvasflow/canvasflow/pkg/config"
	"github.com/canvasflow/canvasflow/pkg/engine"
	"github.com/canvasflow/canvasflow/pkg/log"
	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/otelhelper"
	"github.com/canvasflow/canvasflow/pkg/service"
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a workflow file and print the final run state",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow file (JSON or YAML)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "failure-policy",
				Usage:   "Failure policy (continue, abort-all)",
				Value:   "continue",
				Sources: cli.EnvVars("FAILURE_POLICY"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Run store URL (redis://... or empty for in-memory)",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces for the run",
				Sources: cli.EnvVars("TRACING_ENABLED"),
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

			logger := log.WithModule("run")

			workflowConfig, err := config.LoadWorkflow(command.String("file"))
			if err != nil {
				return err
			}

			policy, err := parsePolicy(command.String("failure-policy"))
			if err != nil {
				return err
			}

			engineOpts := []engine.Option{engine.WithPolicy(policy)}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "canvasflow")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				engineOpts = append(engineOpts, engine.WithTracer(tracer))
			}

			registry := cmd.NewRegistry(logger, nil)
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

			manager := service.NewManager(registry, repository, eventBus, logger, engineOpts...)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			runID, err := manager.Submit(ctx, workflowConfig)
			if err != nil {
				return fmt.Errorf("workflow is invalid: %w", err)
			}

			go func() {
				<-ctx.Done()

				if err := manager.Cancel(runID); err != nil {
					logger.Debug("Run already finished", "run_id", runID)
				}
			}()

			updates, err := manager.Watch(context.WithoutCancel(ctx), runID)
			if err != nil {
				return err
			}

			var final *models.WorkflowRun
			for run := range updates {
				final = run
			}

			output, err := json.MarshalIndent(final, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(output))

			if final.Status != models.RunStatusCompleted {
				return fmt.Errorf("run %s finished with status %s", runID, final.Status)
			}

			return nil
		},
	}
}

func parsePolicy(name string) (engine.Policy, error) {
	switch name {
	case "continue", "":
		return engine.ContinueIndependent, nil
	case "abort-all":
		return engine.AbortAll, nil
	default:
		return engine.ContinueIndependent, fmt.Errorf("unknown failure policy %q", name)
	}
}
