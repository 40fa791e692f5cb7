// Package main provides the KubeGenie API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/kubegenie/kubegenie/pkg/engine"
	"github.com/kubegenie/kubegenie/pkg/eventbus"
	"github.com/kubegenie/kubegenie/pkg/persistence"
	"github.com/kubegenie/kubegenie/pkg/registry"
	"github.com/kubegenie/kubegenie/pkg/services"
	"github.com/kubegenie/kubegenie/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	engineOpts  []engine.Option
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	engineOpts ...engine.Option,
) *API {
	return &API{
		logger:      logger,
		persistence: persist,
		registry:    reg,
		eventBus:    eventBus,
		engineOpts:  engineOpts,
	}
}

func (a *API) App() *fiber.App {
	store := engine.NewWorkflowStore()
	executor := registry.NewExecutor(a.registry, a.logger)

	opts := append([]engine.Option{
		engine.WithEventBus(a.eventBus),
		engine.WithLogger(a.logger),
	}, a.engineOpts...)

	eng := engine.New(store, executor, opts...)
	workflowService := services.NewWorkflowService(store, eng, a.persistence, a.logger)
	handlers := web.NewAPIHandlers(workflowService)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("KubeGenie API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/cancel", handlers.CancelWorkflow)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
