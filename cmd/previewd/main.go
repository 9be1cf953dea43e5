package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/previewlab/surgeon/cmd/previewd/container"
	"github.com/previewlab/surgeon/cmd/previewd/repository"
	"github.com/previewlab/surgeon/cmd/previewd/routes"
	"github.com/previewlab/surgeon/cmd/previewd/seed"
	"github.com/previewlab/surgeon/common/bootstrap"
	"github.com/previewlab/surgeon/common/db"
	"github.com/previewlab/surgeon/common/logger"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (config, logger, DB, redis, cache)
	components, err := bootstrap.Setup(ctx, "previewd",
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return initDatabase(ctx, database)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap previewd: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	startServer(e, serviceContainer)
}

// initDatabase applies the schema and provisions the demo project
func initDatabase(ctx context.Context, database *db.DB) error {
	log := logger.New("info", "json")
	if err := repository.ApplySchema(database); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return seed.Apply(ctx, database, log)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(503, map[string]string{
				"status":  "degraded",
				"service": "previewd",
				"error":   err.Error(),
			})
		}
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "previewd",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterProjectRoutes(e, serviceContainer)
	routes.RegisterRevisionRoutes(e, serviceContainer)
}

// startServer starts the Echo server on the configured port
func startServer(e *echo.Echo, serviceContainer *container.Container) {
	components := serviceContainer.Components
	port := components.Config.Service.Port
	components.Logger.Info("Starting previewd", "port", port)

	if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
		components.Logger.Error("Server error", "error", err)
		serviceContainer.RevisionService.Wait()
		os.Exit(1)
	}
}
