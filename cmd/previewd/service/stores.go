package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/previewlab/surgeon/common/models"
)

// Surfaced verbatim to requesters, so the wording is part of the API.
var (
	ErrProjectNotFound  = errors.New("Project not found.")
	ErrRevisionNotFound = errors.New("Revision not found.")
	ErrNotRestorable    = errors.New("Only saved ready versions can be restored.")
	ErrNotReplayable    = errors.New("Only saved ready versions can replay their original diff.")
	ErrAlreadyActive    = errors.New("This version is already active.")
)

// ProjectStore is the narrow persistence surface the orchestrator needs
// for projects.
type ProjectStore interface {
	GetByID(ctx context.Context, projectID string) (*models.Project, error)
}

// RevisionStore persists revisions. Promote and CreateApplied must be
// atomic with the project's active-source swap.
type RevisionStore interface {
	Create(ctx context.Context, rev *models.Revision) error
	GetByProjectAndID(ctx context.Context, projectID string, revisionID uuid.UUID) (*models.Revision, error)
	Update(ctx context.Context, rev *models.Revision) error
	Promote(ctx context.Context, rev *models.Revision, activeSource string) error
	CreateApplied(ctx context.Context, rev *models.Revision, activeSource string) error
}
