// Package web provides the REST API for workflow submission and run status.
package web

import (
	"bufio"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/persistence"
	"github.com/canvasflow/canvasflow/pkg/service"
)

type APIHandlers struct {
	manager    *service.Manager
	repository persistence.RunRepository
}

func NewAPIHandlers(manager *service.Manager, repository persistence.RunRepository) *APIHandlers {
	return &APIHandlers{manager: manager, repository: repository}
}

// SubmitWorkflow validates and starts a workflow. The response carries the
// run id; execution continues in the background.
func (h *APIHandlers) SubmitWorkflow(c fiber.Ctx) error {
	var config models.WorkflowConfig
	if err := c.Bind().JSON(&config); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	runID, err := h.manager.Submit(c.Context(), &config)
	if err != nil {
		return handleSubmitError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id":   runID,
		"workflow": config.Name(),
		"status":   models.RunStatusPending,
	})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.manager.Status(c.Context(), id)
	if err != nil {
		return handleRunLookupError(c, err)
	}

	return c.JSON(run)
}

// CancelRun stops an in-flight run.
func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	if err := h.manager.Cancel(id); err != nil {
		return handleRunLookupError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// StreamRun serves run snapshots over server-sent events until the run
// reaches a terminal state.
func (h *APIHandlers) StreamRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	updates, err := h.manager.Watch(c.Context(), id)
	if err != nil {
		return handleRunLookupError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		for run := range updates {
			payload, err := json.Marshal(run)
			if err != nil {
				continue
			}

			if _, err := w.WriteString("data: " + string(payload) + "\n\n"); err != nil {
				return
			}

			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.repository.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
