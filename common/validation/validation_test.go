package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/previewlab/surgeon/common/models"
	"github.com/previewlab/surgeon/common/patchtext"
)

const currentSource = `const badges = ["Free shipping", "30-day returns"];

export default function ProductPreview() {
  return (
    <section aria-label="Product preview" className="rounded-xl border bg-white">
      <h1 className="text-2xl">Aurora Desk Lamp</h1>
      <button className="bg-black text-white">Add to cart</button>
    </section>
  );
}
`

func response(after string, files ...string) *models.PatchResponse {
	if len(files) == 0 {
		files = []string{patchtext.AllowedPreviewPath}
	}
	return &models.PatchResponse{
		Summary:      []string{"Adjusted the preview."},
		SourceAfter:  after,
		FilesTouched: files,
	}
}

func TestValidateRequestedScope(t *testing.T) {
	blocked := []string{
		"refactor the cart logic and add subscriptions",
		"update the checkout flow so it skips payment",
		"wire the pricing engine into the preview",
		"enable recurring purchases for this product",
		"add a membership upsell to checkout",
	}
	for _, prompt := range blocked {
		res := ValidateRequestedScope(prompt)
		if res.OK {
			t.Errorf("expected %q to be blocked", prompt)
			continue
		}
		if res.Reason != models.ReasonForbiddenScope {
			t.Errorf("prompt %q: got reason %q", prompt, res.Reason)
		}
	}

	allowed := []string{
		"Make the product title larger and bolder",
		"Add trust badges under the CTA with shipping, returns, and secure checkout reassurance",
		"Swap the hero layout so the image sits on the left",
		"Use a warmer color palette across the preview",
	}
	for _, prompt := range allowed {
		if res := ValidateRequestedScope(prompt); !res.OK {
			t.Errorf("expected %q to pass, got %q", prompt, res.Reason)
		}
	}
}

func TestValidateGeneratedEditOrder(t *testing.T) {
	v := NewSourceValidator(patchtext.AllowedPreviewPath, patchtext.DefaultMaxChangedLines)

	cases := []struct {
		name   string
		resp   *models.PatchResponse
		reason string
	}{
		{
			name:   "wrong file",
			resp:   response("anything", "src/lib/cart.ts"),
			reason: models.ReasonForbiddenFile,
		},
		{
			name:   "extra file",
			resp:   response("anything", patchtext.AllowedPreviewPath, "src/lib/cart.ts"),
			reason: models.ReasonForbiddenFile,
		},
		{
			name:   "no-op edit",
			resp:   response(currentSource + "\n\n"),
			reason: models.ReasonNoMeaningfulChange,
		},
		{
			name:   "empty output",
			resp:   response("   \n"),
			reason: models.ReasonNoMeaningfulChange,
		},
		{
			name:   "missing default export",
			resp:   response("export function ProductPreview() { return null; }"),
			reason: models.ReasonMissingExport,
		},
		{
			name:   "added import",
			resp:   response("import React from \"react\";\n\nexport default function ProductPreview() { return null; }"),
			reason: models.ReasonNoImports,
		},
		{
			name:   "commerce require",
			resp:   response("export default function ProductPreview() { const cart = require(\"../lib/cart\"); return null; }"),
			reason: models.ReasonForbiddenCommerce,
		},
		{
			name:   "fetch side effect",
			resp:   response("export default function ProductPreview() { fetch(\"/api/track\"); return null; }"),
			reason: models.ReasonSideEffects,
		},
		{
			name:   "subscription copy",
			resp:   response("export default function ProductPreview() { return <button>Subscribe &amp; Save 10%</button>; }"),
			reason: models.ReasonSubscriptionCopy,
		},
		{
			name:   "hook usage",
			resp:   response("export default function ProductPreview() { const [n] = useState(0); return <p>{n}</p>; }"),
			reason: models.ReasonHooks,
		},
	}
	for _, tc := range cases {
		res := v.ValidateGeneratedEdit(currentSource, tc.resp)
		if res.OK {
			t.Errorf("%s: expected rejection", tc.name)
			continue
		}
		if res.Reason != tc.reason {
			t.Errorf("%s: got reason %q, want %q", tc.name, res.Reason, tc.reason)
		}
	}
}

func TestValidateGeneratedEditAccepts(t *testing.T) {
	v := NewSourceValidator("", 0)
	after := strings.Replace(currentSource, "Aurora Desk Lamp", "Aurora Desk Lamp Pro", 1)
	if res := v.ValidateGeneratedEdit(currentSource, response(after)); !res.OK {
		t.Fatalf("expected valid edit, got %q", res.Reason)
	}
}

func TestValidateGeneratedEditSizeCeiling(t *testing.T) {
	v := NewSourceValidator(patchtext.AllowedPreviewPath, 10)

	withRows := func(n int) string {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&sb, "      <p>Row %d</p>\n", i)
		}
		return strings.Replace(currentSource,
			"      <button className=\"bg-black text-white\">Add to cart</button>\n",
			"      <button className=\"bg-black text-white\">Add to cart</button>\n"+sb.String(), 1)
	}

	if res := v.ValidateGeneratedEdit(currentSource, response(withRows(10))); !res.OK {
		t.Fatalf("edit at the ceiling rejected: %q", res.Reason)
	}
	res := v.ValidateGeneratedEdit(currentSource, response(withRows(11)))
	if res.OK || res.Reason != models.ReasonPatchTooLarge {
		t.Fatalf("expected size rejection, got ok=%v reason=%q", res.OK, res.Reason)
	}
}

func TestImportCheckPrecedesSize(t *testing.T) {
	v := NewSourceValidator(patchtext.AllowedPreviewPath, 5)

	var sb strings.Builder
	sb.WriteString("import { cartTotals } from \"../lib/cart\";\n\nexport default function ProductPreview() {\n  return (\n    <ul>\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "      <li>Row %d</li>\n", i)
	}
	sb.WriteString("    </ul>\n  );\n}\n")

	res := v.ValidateGeneratedEdit(currentSource, response(sb.String()))
	if res.OK || res.Reason != models.ReasonNoImports {
		t.Fatalf("expected import rejection before size, got ok=%v reason=%q", res.OK, res.Reason)
	}
}

func TestSubscriptionCopyNotReflaggedWhenPreexisting(t *testing.T) {
	v := NewSourceValidator("", 0)
	existing := strings.Replace(currentSource, "Add to cart", "Subscribe monthly", 1)
	after := strings.Replace(existing, "Aurora Desk Lamp", "Aurora Desk Lamp Pro", 1)
	if res := v.ValidateGeneratedEdit(existing, response(after)); !res.OK {
		t.Fatalf("pre-existing copy should not block unrelated edit, got %q", res.Reason)
	}
}
