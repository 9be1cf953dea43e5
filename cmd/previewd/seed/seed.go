// Package seed provisions the demo project every fresh deployment starts
// with. The baseline preview component is embedded so the binary is
// self-contained.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/previewlab/surgeon/cmd/previewd/repository"
	"github.com/previewlab/surgeon/common/db"
	"github.com/previewlab/surgeon/common/logger"
	"github.com/previewlab/surgeon/common/models"
)

//go:embed baseline_preview.tsx
var baselineSource string

const (
	// ProjectID is stable so reseeding resets rather than duplicates.
	ProjectID   = "seed-project-storefront-surgeon"
	projectName = "Spring Conversion Refresh"
)

// BaselineSource returns the embedded baseline preview component.
func BaselineSource() string {
	return baselineSource
}

// Apply upserts the demo project and clears its revision history, giving
// every boot a clean slate.
func Apply(ctx context.Context, database *db.DB, log *logger.Logger) error {
	projects := repository.NewProjectRepository(database)
	revisions := repository.NewRevisionRepository(database)

	project := &models.Project{
		ID:             ProjectID,
		Name:           projectName,
		BaselineSource: baselineSource,
		ActiveSource:   baselineSource,
	}

	if err := projects.Upsert(ctx, project); err != nil {
		return fmt.Errorf("seeding project: %w", err)
	}

	if err := revisions.DeleteByProject(ctx, ProjectID); err != nil {
		return fmt.Errorf("clearing seed revisions: %w", err)
	}

	log.WithProjectID(ProjectID).Info("seed project ready", "name", projectName)
	return nil
}
