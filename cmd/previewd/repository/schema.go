package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/previewlab/surgeon/common/db"
)

//go:embed schema.sql
var schemaSQL string

// ApplySchema creates the tables when they do not exist yet. Suitable as
// a bootstrap DB init hook.
func ApplySchema(database *db.DB) error {
	if _, err := database.Exec(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
