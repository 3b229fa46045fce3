package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/canvasflow/canvasflow/pkg/graph"
	"github.com/canvasflow/canvasflow/pkg/persistence"
	"github.com/canvasflow/canvasflow/pkg/registry"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleSubmitError maps graph build failures onto problem responses so
// clients can tell structural workflow errors apart from server faults.
func handleSubmitError(c fiber.Ctx, err error) error {
	problemType := ""

	switch {
	case errors.Is(err, graph.ErrNoModules):
		problemType = "empty_workflow"
	case errors.Is(err, graph.ErrCircularDependency):
		problemType = "circular_dependency"
	case errors.Is(err, graph.ErrUnknownModuleReference):
		problemType = "unknown_module_reference"
	case errors.Is(err, graph.ErrMissingRequiredField):
		problemType = "missing_required_field"
	case errors.Is(err, registry.ErrUnknownHandlerType):
		problemType = "unknown_handler_type"
	}

	if problemType == "" {
		return internalError(c, err)
	}

	problem := problems.NewStatusProblem(422).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(err.Error())

	return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
}

func handleRunLookupError(c fiber.Ctx, err error) error {
	if persistence.IsRunNotFound(err) {
		return notFound(c, "Workflow run not found")
	}

	return internalError(c, err)
}
