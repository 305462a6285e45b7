package web

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/opensyte/automation/pkg/engine"
	"github.com/opensyte/automation/pkg/handlers"
	"github.com/opensyte/automation/pkg/persistence"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	registry *handlers.Registry
	engine   *engine.Engine
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	registry *handlers.Registry,
	eng *engine.Engine,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		registry: registry,
		engine:   eng,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	apiHandlers := NewAPIHandlers(a.store, a.engine, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Automation Engine API")
	})

	v1 := app.Group("/v1")
	v1.Post("/events", apiHandlers.PostEvent)
	v1.Get("/runs", apiHandlers.GetRuns)
	v1.Get("/runs/:id", apiHandlers.GetRun)
	v1.Get("/configs", apiHandlers.GetConfigs)
	v1.Put("/configs/:key", apiHandlers.PutConfig)

	app.Get("/health", apiHandlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
