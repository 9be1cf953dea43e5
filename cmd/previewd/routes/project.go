package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/previewlab/surgeon/cmd/previewd/container"
	"github.com/previewlab/surgeon/cmd/previewd/handlers"
)

// RegisterProjectRoutes registers project read/create routes
func RegisterProjectRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewProjectHandler(c.Components, c.ProjectService)

	projects := e.Group("/api/v1/projects")
	{
		projects.POST("", h.CreateProject)           // POST /api/v1/projects
		projects.GET("/:projectId", h.GetProject)    // GET /api/v1/projects/{project_id}
	}
}
