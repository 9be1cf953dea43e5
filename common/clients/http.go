package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/previewlab/surgeon/common/models"
)

// CodexClient talks to an external generation service over HTTP. The
// service receives the prompt and the current file contents and answers
// with a full replacement plus summary bullets.
type CodexClient struct {
	client  *http.Client
	baseURL string
	logger  Logger
}

func NewCodexClient(client *http.Client, baseURL string, logger Logger) *CodexClient {
	return &CodexClient{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

type generateRequestBody struct {
	ProjectID     string  `json:"projectId"`
	Prompt        string  `json:"prompt"`
	PresetKey     *string `json:"presetKey,omitempty"`
	CurrentSource string  `json:"currentSource"`
}

// GeneratePatch posts the request and decodes the patch response. Any
// non-200 answer is an error; the orchestrator records it as a failed
// run rather than a blocked one.
func (c *CodexClient) GeneratePatch(ctx context.Context, currentSource string, req *models.SurgeryRequest) (*models.PatchResponse, error) {
	payload, err := json.Marshal(generateRequestBody{
		ProjectID:     req.ProjectID,
		Prompt:        req.Prompt,
		PresetKey:     req.PresetKey,
		CurrentSource: currentSource,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/patches", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Warn("generation service returned non-200",
			"status", resp.StatusCode,
			"project_id", req.ProjectID,
		)
		return nil, fmt.Errorf("generation service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out models.PatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	return &out, nil
}
