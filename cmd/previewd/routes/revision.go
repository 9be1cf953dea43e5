package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/previewlab/surgeon/cmd/previewd/container"
	"github.com/previewlab/surgeon/cmd/previewd/handlers"
	"github.com/previewlab/surgeon/cmd/previewd/middleware"
)

// RegisterRevisionRoutes registers the revision pipeline routes
func RegisterRevisionRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRevisionHandler(c.Components, c.RevisionService)

	cfg := c.Components.Config.Preview
	limited := middleware.SurgeryRateLimit(
		c.RateLimiter,
		cfg.SurgeryRateLimit,
		int(cfg.SurgeryRateWindow.Seconds()),
		c.Components.Logger,
	)

	projects := e.Group("/api/v1/projects/:projectId")
	{
		projects.POST("/surgeries", h.StartSurgery, limited)               // POST /api/v1/projects/{project_id}/surgeries
		projects.GET("/revisions/:revisionId", h.GetRevision)              // GET /api/v1/projects/{project_id}/revisions/{revision_id}
		projects.POST("/revisions/:revisionId/replay", h.ReplayRevision)   // POST /api/v1/projects/{project_id}/revisions/{revision_id}/replay
		projects.POST("/restore", h.RestoreProject)                        // POST /api/v1/projects/{project_id}/restore
	}
}
