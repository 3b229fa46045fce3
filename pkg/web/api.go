package web

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/canvasflow/canvasflow/pkg/persistence"
	"github.com/canvasflow/canvasflow/pkg/service"
)

type API struct {
	logger     *slog.Logger
	manager    *service.Manager
	repository persistence.RunRepository
}

func NewAPI(logger *slog.Logger, manager *service.Manager, repository persistence.RunRepository) *API {
	return &API{
		logger:     logger,
		manager:    manager,
		repository: repository,
	}
}

func (a *API) App() *fiber.App {
	handlers := NewAPIHandlers(a.manager, a.repository)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Canvasflow API")
	})

	app.Post("/workflows", handlers.SubmitWorkflow)

	runs := app.Group("/workflow-runs")
	runs.Get("/:id", handlers.GetRun)
	runs.Get("/:id/stream", handlers.StreamRun)
	runs.Post("/:id/cancel", handlers.CancelRun)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
