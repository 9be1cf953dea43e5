package clients

import (
	"context"
	"strings"
	"testing"

	"github.com/previewlab/surgeon/common/models"
	"github.com/previewlab/surgeon/common/patchtext"
)

func TestFallbackGeneratorStickyPreset(t *testing.T) {
	g := NewFallbackGenerator()
	resp, err := g.GeneratePatch(context.Background(), "current", &models.SurgeryRequest{
		ProjectID: "p1",
		Prompt:    "Add a sticky buy bar for mobile",
	})
	if err != nil {
		t.Fatalf("GeneratePatch: %v", err)
	}
	if len(resp.FilesTouched) != 1 || resp.FilesTouched[0] != patchtext.AllowedPreviewPath {
		t.Errorf("files touched = %v", resp.FilesTouched)
	}
	if !strings.Contains(resp.SourceAfter, "Sticky mobile buy bar") {
		t.Errorf("source missing sticky bar markup")
	}
	if len(resp.Summary) != 3 {
		t.Errorf("summary = %v", resp.Summary)
	}
}

func TestFallbackGeneratorBlocksForbiddenPrompts(t *testing.T) {
	g := NewFallbackGenerator()
	resp, err := g.GeneratePatch(context.Background(), "current", &models.SurgeryRequest{
		ProjectID: "p1",
		Prompt:    "rip out the checkout and rebuild it",
	})
	if err != nil {
		t.Fatalf("GeneratePatch: %v", err)
	}
	if resp.FilesTouched[0] != "src/lib/cart.ts" {
		t.Errorf("files touched = %v", resp.FilesTouched)
	}
}
