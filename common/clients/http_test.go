package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/previewlab/surgeon/common/logger"
	"github.com/previewlab/surgeon/common/models"
)

func TestCodexClientGeneratePatch(t *testing.T) {
	var received generateRequestBody

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/patches", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(models.PatchResponse{
			Summary:      []string{"Brightened the hero section."},
			SourceAfter:  "export default function ProductPreview() {}\n",
			FilesTouched: []string{"src/demo/EditableProductPreview.tsx"},
		})
	}))
	defer server.Close()

	client := NewCodexClient(server.Client(), server.URL, logger.New("error", "json"))

	preset := models.PresetKeyStickyBuyBar
	resp, err := client.GeneratePatch(context.Background(), "before source", &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Brighten the hero",
		PresetKey: &preset,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Brightened the hero section."}, resp.Summary)
	require.Equal(t, []string{"src/demo/EditableProductPreview.tsx"}, resp.FilesTouched)

	require.Equal(t, "proj-1", received.ProjectID)
	require.Equal(t, "Brighten the hero", received.Prompt)
	require.NotNil(t, received.PresetKey)
	require.Equal(t, preset, *received.PresetKey)
	require.Equal(t, "before source", received.CurrentSource)
}

func TestCodexClientSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewCodexClient(server.Client(), server.URL, logger.New("error", "json"))

	_, err := client.GeneratePatch(context.Background(), "src", &models.SurgeryRequest{
		ProjectID: "proj-1",
		Prompt:    "Brighten the hero",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
	require.Contains(t, err.Error(), "model unavailable")
}
