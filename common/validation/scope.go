package validation

import (
	"regexp"

	"github.com/previewlab/surgeon/common/models"
)

// The scope gate matches action phrasing only. A prompt is allowed to talk
// about checkout ("secure checkout reassurance" trust copy) as long as it
// does not ask to wire or change forbidden subsystems, so plain keyword
// presence is deliberately not enough to block.
var (
	verbNounPattern = regexp.MustCompile(
		`(?i)\b(?:add|adjust|alter|build|change|connect|create|edit|enable|hook up|implement|integrate|modify|overhaul|refactor|remove|replace|rework|rewrite|update|wire)\b` +
			`(?:\s+\w+){0,2}\s+(?:the\s+)?` +
			`(?:cart|checkout|pricing|subscriptions?|recurring\s+purchases?|memberships?)\b`)

	nounBehaviorPattern = regexp.MustCompile(
		`(?i)\b(?:cart|checkout|pricing|subscriptions?|recurring\s+purchases?|memberships?)\s+` +
			`(?:logic|flows?|behaviou?r|engine|integrations?|billing|process|pipeline|system|backend|handling)\b`)
)

// ValidateRequestedScope inspects a user's natural-language request before
// generation runs, short-circuiting prompts that plainly target cart,
// checkout, pricing, or subscription behavior. This both saves a generation
// round-trip and closes a prompt-injection vector.
func ValidateRequestedScope(prompt string) models.ValidationResult {
	if verbNounPattern.MatchString(prompt) || nounBehaviorPattern.MatchString(prompt) {
		return models.Invalid(models.ReasonForbiddenScope)
	}
	return models.Valid()
}
