package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/previewlab/surgeon/common/db"
	"github.com/previewlab/surgeon/common/models"
)

const revisionColumns = `
	revision_id, project_id, prompt, preset_key, summary, patch_text,
	source_before, source_after, blocked_reason, test_status, test_output,
	status, run_stage, created_at, updated_at
`

// RevisionRepository handles database operations for revisions
type RevisionRepository struct {
	db *db.DB
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(database *db.DB) *RevisionRepository {
	return &RevisionRepository{db: database}
}

// Create inserts a new revision
func (r *RevisionRepository) Create(ctx context.Context, rev *models.Revision) error {
	query := `
		INSERT INTO revision (
			revision_id, project_id, prompt, preset_key, summary, patch_text,
			source_before, source_after, blocked_reason, test_status, test_output,
			status, run_stage
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx,
		query,
		rev.ID,
		rev.ProjectID,
		rev.Prompt,
		rev.PresetKey,
		rev.Summary,
		rev.PatchText,
		rev.SourceBefore,
		rev.SourceAfter,
		rev.BlockedReason,
		rev.TestStatus,
		rev.TestOutput,
		rev.Status,
		rev.RunStage,
	).Scan(&rev.CreatedAt, &rev.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create revision: %w", err)
	}

	return nil
}

// GetByProjectAndID retrieves a revision scoped to a project
func (r *RevisionRepository) GetByProjectAndID(ctx context.Context, projectID string, revisionID uuid.UUID) (*models.Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM revision WHERE revision_id = $1 AND project_id = $2`

	rev := &models.Revision{}
	err := scanRevision(r.db.QueryRow(ctx, query, revisionID, projectID), rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get revision: %w", err)
	}

	return rev, nil
}

// ListByProject retrieves revisions for a project, newest first
func (r *RevisionRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Revision, error) {
	query := `
		SELECT ` + revisionColumns + `
		FROM revision
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	var revisions []*models.Revision
	for rows.Next() {
		rev := &models.Revision{}
		if err := scanRevision(rows, rev); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}

	return revisions, rows.Err()
}

// Update rewrites the mutable fields of a revision
func (r *RevisionRepository) Update(ctx context.Context, rev *models.Revision) error {
	query := `
		UPDATE revision
		SET summary = $2,
			patch_text = $3,
			source_after = $4,
			blocked_reason = $5,
			test_status = $6,
			test_output = $7,
			status = $8,
			run_stage = $9,
			updated_at = now()
		WHERE revision_id = $1
	`

	_, err := r.db.Exec(
		ctx,
		query,
		rev.ID,
		rev.Summary,
		rev.PatchText,
		rev.SourceAfter,
		rev.BlockedReason,
		rev.TestStatus,
		rev.TestOutput,
		rev.Status,
		rev.RunStage,
	)

	if err != nil {
		return fmt.Errorf("failed to update revision: %w", err)
	}

	return nil
}

// Promote marks the revision applied/complete and swaps the project's
// active source in one transaction, so a crash between the two writes can
// never leave an applied revision whose source is not being served.
func (r *RevisionRepository) Promote(ctx context.Context, rev *models.Revision, activeSource string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE revision
			SET status = $2, run_stage = $3, updated_at = now()
			WHERE revision_id = $1
		`, rev.ID, models.StatusApplied, models.StageComplete)
		if err != nil {
			return fmt.Errorf("failed to mark revision applied: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		if _, err := tx.Exec(ctx, `
			UPDATE project
			SET active_source = $2, updated_at = now()
			WHERE project_id = $1
		`, rev.ProjectID, activeSource); err != nil {
			return fmt.Errorf("failed to update active source: %w", err)
		}

		return nil
	})
}

// CreateApplied inserts an already-terminal applied revision and swaps
// the project's active source atomically. Restores use this path.
func (r *RevisionRepository) CreateApplied(ctx context.Context, rev *models.Revision, activeSource string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO revision (
				revision_id, project_id, prompt, preset_key, summary, patch_text,
				source_before, source_after, blocked_reason, test_status, test_output,
				status, run_stage
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING created_at, updated_at
		`,
			rev.ID,
			rev.ProjectID,
			rev.Prompt,
			rev.PresetKey,
			rev.Summary,
			rev.PatchText,
			rev.SourceBefore,
			rev.SourceAfter,
			rev.BlockedReason,
			rev.TestStatus,
			rev.TestOutput,
			rev.Status,
			rev.RunStage,
		).Scan(&rev.CreatedAt, &rev.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create restore revision: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE project
			SET active_source = $2, updated_at = now()
			WHERE project_id = $1
		`, rev.ProjectID, activeSource); err != nil {
			return fmt.Errorf("failed to update active source: %w", err)
		}

		return nil
	})
}

// DeleteByProject removes every revision for a project. Seeding uses this
// to reset demo history.
func (r *RevisionRepository) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM revision WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to delete revisions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevision(row rowScanner, rev *models.Revision) error {
	return row.Scan(
		&rev.ID,
		&rev.ProjectID,
		&rev.Prompt,
		&rev.PresetKey,
		&rev.Summary,
		&rev.PatchText,
		&rev.SourceBefore,
		&rev.SourceAfter,
		&rev.BlockedReason,
		&rev.TestStatus,
		&rev.TestOutput,
		&rev.Status,
		&rev.RunStage,
		&rev.CreatedAt,
		&rev.UpdatedAt,
	)
}
