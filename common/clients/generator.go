package clients

import (
	"context"

	"github.com/previewlab/surgeon/common/models"
)

// Logger interface for client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Generator produces a candidate edit for the editable preview file.
// Implementations must treat currentSource as read-only input and return
// the complete proposed replacement, never a partial edit.
type Generator interface {
	GeneratePatch(ctx context.Context, currentSource string, req *models.SurgeryRequest) (*models.PatchResponse, error)
}
