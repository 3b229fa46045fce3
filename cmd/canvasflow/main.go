// Package main provides the canvasflow command-line interface.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "canvasflow",
		Usage:                 "Build and execute module workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			ValidateCommand(),
			RunCommand(),
			APICommand(),
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
