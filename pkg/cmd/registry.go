// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/handlers/echo"
	loghandler "github.com/canvasflow/canvasflow/pkg/handlers/log"
	"github.com/canvasflow/canvasflow/pkg/registry"
	"github.com/canvasflow/canvasflow/pkg/triggers/email"
	"github.com/canvasflow/canvasflow/pkg/triggers/schedule"
	"github.com/canvasflow/canvasflow/pkg/triggers/webhook"
)

func registerNativeHandlers(reg *registry.Registry) {
	reg.RegisterHandler(echo.NewFactory())
	reg.RegisterHandler(loghandler.NewFactory())
}

func registerNativeTriggers(reg *registry.Registry, webhooks *webhook.ServerManager) {
	reg.RegisterTrigger(schedule.NewFactory())
	reg.RegisterTrigger(email.NewFactory(nil))

	if webhooks != nil {
		reg.RegisterTrigger(webhook.NewFactory(webhooks))
	}
}

// NewRegistry builds a registry with the native handlers and triggers
// registered. The webhook trigger is only available when a server manager is
// supplied.
func NewRegistry(logger *slog.Logger, webhooks *webhook.ServerManager) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeHandlers(reg)
	registerNativeTriggers(reg, webhooks)

	return reg
}
