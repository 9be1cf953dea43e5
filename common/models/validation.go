package models

// ValidationResult is the tagged outcome of one admission gate. Reason is
// always one of the canonical strings below so downstream user-facing
// translation can match reliably.
type ValidationResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Valid returns a passing result
func Valid() ValidationResult {
	return ValidationResult{OK: true}
}

// Invalid returns a failing result carrying a canonical reason
func Invalid(reason string) ValidationResult {
	return ValidationResult{OK: false, Reason: reason}
}

// Canonical gate reasons. These strings are a versioned contract with the
// user-facing translation layer; change them only alongside that layer.
const (
	// Scope violation (prompt-level, pre-generation)
	ReasonForbiddenScope = "Request attempted to change cart, checkout, pricing, or subscription behavior outside the approved product-page surface."

	// Policy violations (source-level)
	ReasonForbiddenFile      = "Patch attempted to edit a forbidden file."
	ReasonNoMeaningfulChange = "Codex did not produce a meaningful file change."
	ReasonMissingExport      = "Editable preview must keep the default ProductPreview export."
	ReasonNoImports          = "Editable preview must stay self-contained and may not add imports."
	ReasonForbiddenCommerce  = "Patch attempted to import or reference forbidden commerce logic."
	ReasonSideEffects        = "Editable preview must stay presentational and avoid runtime side effects."
	ReasonSubscriptionCopy   = "Editable preview may not introduce subscription or recurring purchase behavior."
	ReasonHooks              = "Editable preview must stay a pure component without hooks."
	ReasonPatchTooLarge      = "Patch exceeded the maximum allowed size."

	// Patch shape violations
	ReasonPatchEmpty            = "Patch did not include any diff content."
	ReasonPatchBinary           = "Patch may not contain binary changes."
	ReasonPatchMalformed        = "Patch did not use a valid unified diff format."
	ReasonPatchCreatesOrDeletes = "Patch may not create or delete files."
	ReasonPatchNoHunks          = "Patch did not include any diff hunks."

	// Fidelity failures (pipeline-internal, reported as failed rather than
	// blocked)
	ReasonPatchStale     = "Patch no longer applies to current revision."
	ReasonReplayMismatch = "Patched result did not match generated source."
)
