package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/previewlab/surgeon/cmd/previewd/service"
	"github.com/previewlab/surgeon/common/bootstrap"
)

// ProjectHandler exposes project reads and creation
type ProjectHandler struct {
	components *bootstrap.Components
	projects   *service.ProjectService
}

func NewProjectHandler(components *bootstrap.Components, projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		components: components,
		projects:   projects,
	}
}

// CreateProject provisions a project seeded with the baseline preview.
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Project name was invalid."})
	}

	project, err := h.projects.Create(c.Request().Context(), body.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidProjectName) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.components.Logger.Error("failed to create project", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not create the project."})
	}

	return c.JSON(http.StatusOK, map[string]string{"project_id": project.ID})
}

// GetProject returns a project with its recent revision history.
// GET /api/v1/projects/:projectId
func (h *ProjectHandler) GetProject(c echo.Context) error {
	projectID := c.Param("projectId")

	overview, err := h.projects.GetOverview(c.Request().Context(), projectID)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		h.components.Logger.Error("failed to load project", "project_id", projectID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not load the project."})
	}

	return c.JSON(http.StatusOK, overview)
}
