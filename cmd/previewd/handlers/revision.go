package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/previewlab/surgeon/cmd/previewd/service"
	"github.com/previewlab/surgeon/common/bootstrap"
	"github.com/previewlab/surgeon/common/gate"
	"github.com/previewlab/surgeon/common/models"
)

// RevisionHandler exposes the revision pipeline over HTTP
type RevisionHandler struct {
	components *bootstrap.Components
	revisions  *service.RevisionService
}

func NewRevisionHandler(components *bootstrap.Components, revisions *service.RevisionService) *RevisionHandler {
	return &RevisionHandler{
		components: components,
		revisions:  revisions,
	}
}

// StartSurgery accepts a change request and starts the pipeline.
// POST /api/v1/projects/:projectId/surgeries
func (h *RevisionHandler) StartSurgery(c echo.Context) error {
	projectID := c.Param("projectId")

	var body struct {
		Prompt    string  `json:"prompt"`
		PresetKey *string `json:"presetKey"`
	}
	if err := c.Bind(&body); err != nil || body.Prompt == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Request body was invalid."})
	}
	if body.PresetKey != nil && *body.PresetKey != models.PresetKeyStickyBuyBar {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Request body was invalid."})
	}

	snapshot, err := h.revisions.StartSurgery(c.Request().Context(), &models.SurgeryRequest{
		ProjectID: projectID,
		Prompt:    body.Prompt,
		PresetKey: body.PresetKey,
	})
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		if errors.Is(err, gate.ErrBusy) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Another revision is already in progress for this project."})
		}
		h.components.Logger.Error("failed to start surgery", "project_id", projectID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not start the revision."})
	}

	return c.JSON(http.StatusOK, snapshot)
}

// GetRevision returns the polling snapshot for one revision.
// GET /api/v1/projects/:projectId/revisions/:revisionId
func (h *RevisionHandler) GetRevision(c echo.Context) error {
	projectID := c.Param("projectId")

	revisionID, err := uuid.Parse(c.Param("revisionId"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Revision not found."})
	}

	snapshot, err := h.revisions.GetRevisionSnapshot(c.Request().Context(), projectID, revisionID)
	if err != nil {
		if errors.Is(err, service.ErrRevisionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		h.components.Logger.Error("failed to load revision", "project_id", projectID, "revision_id", revisionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not load the revision."})
	}

	return c.JSON(http.StatusOK, snapshot)
}

// RestoreProject swaps the active source back to a saved version.
// POST /api/v1/projects/:projectId/restore
func (h *RevisionHandler) RestoreProject(c echo.Context) error {
	projectID := c.Param("projectId")

	var body struct {
		Target     string `json:"target"`
		RevisionID string `json:"revisionId"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Request body was invalid."})
	}

	req := &service.RestoreRequest{Target: body.Target}
	switch body.Target {
	case service.RestoreTargetBaseline:
	case service.RestoreTargetRevision:
		revisionID, err := uuid.Parse(body.RevisionID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Request body was invalid."})
		}
		req.RevisionID = &revisionID
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Request body was invalid."})
	}

	result, err := h.revisions.RestoreProject(c.Request().Context(), projectID, req)
	if err != nil {
		return h.restoreError(c, projectID, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *RevisionHandler) restoreError(c echo.Context, projectID string, err error) error {
	switch {
	case errors.Is(err, service.ErrProjectNotFound), errors.Is(err, service.ErrRevisionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotRestorable), errors.Is(err, service.ErrAlreadyActive):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, gate.ErrBusy):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Another revision is already in progress for this project."})
	}
	h.components.Logger.Error("failed to restore project", "project_id", projectID, "error", err)
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not restore that version."})
}

// ReplayRevision re-applies a stored diff without persisting anything.
// POST /api/v1/projects/:projectId/revisions/:revisionId/replay
func (h *RevisionHandler) ReplayRevision(c echo.Context) error {
	projectID := c.Param("projectId")

	revisionID, err := uuid.Parse(c.Param("revisionId"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Revision not found."})
	}

	result, err := h.revisions.ReplayRevisionPatch(c.Request().Context(), projectID, revisionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNotFound), errors.Is(err, service.ErrRevisionNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrNotReplayable):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.components.Logger.Error("failed to replay revision", "project_id", projectID, "revision_id", revisionID, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not replay the stored diff."})
	}

	if !result.OK {
		status := http.StatusBadRequest
		if result.Error == models.ReasonPatchStale {
			status = http.StatusConflict
		}
		return c.JSON(status, map[string]string{"error": result.Error})
	}

	return c.JSON(http.StatusOK, result)
}
