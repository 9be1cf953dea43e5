package validation

import (
	"regexp"
	"strings"

	"github.com/previewlab/surgeon/common/models"
	"github.com/previewlab/surgeon/common/patchtext"
)

const exportMarker = "export default function ProductPreview"

var (
	anyImportPattern = regexp.MustCompile(`(?m)^\s*import\s`)

	forbiddenCommercePattern = regexp.MustCompile(
		`(?i)(from\s+["'][^"']*(cart|checkout|pricing)[^"']*["'])|(require\([^)]*(cart|checkout|pricing)[^)]*\))`)

	globalsPattern = regexp.MustCompile(`\b(fetch|process\.|window\.|document\.)`)

	subscriptionCopyPattern = regexp.MustCompile(
		`(?i)\b(subscribe|subscriptions?|recurring\s+purchases?|auto-renew|memberships?)\b`)

	hooksPattern = regexp.MustCompile(`\buse(State|Effect|Reducer|LayoutEffect|Memo|Callback)\b`)
)

// SourceValidator runs the static checks a generated edit has to clear
// before anything is patched, evaluated, or persisted. Checks run in a
// fixed order and the first failure wins.
type SourceValidator struct {
	path            string
	maxChangedLines int
}

func NewSourceValidator(path string, maxChangedLines int) *SourceValidator {
	if path == "" {
		path = patchtext.AllowedPreviewPath
	}
	if maxChangedLines <= 0 {
		maxChangedLines = patchtext.DefaultMaxChangedLines
	}
	return &SourceValidator{path: path, maxChangedLines: maxChangedLines}
}

// ValidateGeneratedEdit checks a generator response against the current
// source of the editable preview file. currentSource is what the project
// holds right now; resp carries the full proposed replacement.
func (v *SourceValidator) ValidateGeneratedEdit(currentSource string, resp *models.PatchResponse) models.ValidationResult {
	if len(resp.FilesTouched) != 1 || resp.FilesTouched[0] != v.path {
		return models.Invalid(models.ReasonForbiddenFile)
	}
	after := resp.SourceAfter
	if strings.TrimSpace(after) == "" || strings.TrimSpace(after) == strings.TrimSpace(currentSource) {
		return models.Invalid(models.ReasonNoMeaningfulChange)
	}
	if !strings.Contains(after, exportMarker) {
		return models.Invalid(models.ReasonMissingExport)
	}
	if anyImportPattern.MatchString(after) {
		return models.Invalid(models.ReasonNoImports)
	}
	if forbiddenCommercePattern.MatchString(after) {
		return models.Invalid(models.ReasonForbiddenCommerce)
	}
	if globalsPattern.MatchString(after) {
		return models.Invalid(models.ReasonSideEffects)
	}
	if subscriptionCopyPattern.MatchString(after) && !subscriptionCopyPattern.MatchString(currentSource) {
		return models.Invalid(models.ReasonSubscriptionCopy)
	}
	if hooksPattern.MatchString(after) {
		return models.Invalid(models.ReasonHooks)
	}
	if patchtext.CountChangedLines(currentSource, after) > v.maxChangedLines {
		return models.Invalid(models.ReasonPatchTooLarge)
	}
	return models.Valid()
}
