package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/previewlab/surgeon/common/db"
	"github.com/previewlab/surgeon/common/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *db.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(database *db.DB) *ProjectRepository {
	return &ProjectRepository{db: database}
}

// GetByID retrieves a project by its ID
func (r *ProjectRepository) GetByID(ctx context.Context, projectID string) (*models.Project, error) {
	query := `
		SELECT project_id, name, description, baseline_source, active_source, created_at, updated_at
		FROM project
		WHERE project_id = $1
	`

	project := &models.Project{}
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.BaselineSource,
		&project.ActiveSource,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// Upsert inserts a project or refreshes an existing one. Seeding uses
// this so restarts keep the demo project current without duplicating it.
func (r *ProjectRepository) Upsert(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO project (project_id, name, description, baseline_source, active_source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			baseline_source = EXCLUDED.baseline_source,
			active_source = EXCLUDED.active_source,
			updated_at = now()
	`

	_, err := r.db.Exec(
		ctx,
		query,
		project.ID,
		project.Name,
		project.Description,
		project.BaselineSource,
		project.ActiveSource,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	return nil
}
