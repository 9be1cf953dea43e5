package models

// PresetKeyStickyBuyBar is the only preset currently shipped
const PresetKeyStickyBuyBar = "sticky-buy-bar"

// SurgeryRequest is a user's natural-language change request against one
// project's editable preview
type SurgeryRequest struct {
	ProjectID string  `json:"project_id"`
	Prompt    string  `json:"prompt"`
	PresetKey *string `json:"preset_key,omitempty"`
}

// PatchResponse is the generation collaborator's raw output. It is treated
// as wholly untrusted until it clears every validator.
type PatchResponse struct {
	Summary      []string `json:"summary"`
	SourceAfter  string   `json:"sourceAfter"`
	FilesTouched []string `json:"filesTouched"`
}

// SanitizeSummary drops empty entries so the generator cannot inject blank
// change bullets into revision records
func SanitizeSummary(summary []string) []string {
	out := make([]string, 0, len(summary))
	for _, item := range summary {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
