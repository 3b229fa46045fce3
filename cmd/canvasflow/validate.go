package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/canvasflow/canvasflow/pkg/cmd"
	"github.com/canvasflow/canvasflow/pkg/config"
	"github.com/canvasflow/canvasflow/pkg/graph"
	"github.com/canvasflow/canvasflow/pkg/log"
)

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a workflow file and print its execution plan",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow file (JSON or YAML)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("validate")

			workflowConfig, err := config.LoadWorkflow(command.String("file"))
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(logger, nil)
			builder := graph.NewBuilder(registry, logger)

			definition, err := builder.Build(workflowConfig)
			if err != nil {
				return fmt.Errorf("workflow is invalid: %w", err)
			}

			plan, err := json.MarshalIndent(map[string]any{
				"workflow":         definition.Name,
				"execution_order":  definition.ExecutionOrder,
				"dependency_edges": definition.DependencyEdges,
			}, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(plan))

			return nil
		},
	}
}
