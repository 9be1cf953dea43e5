package patchtext

import (
	"strings"
	"testing"

	"github.com/previewlab/surgeon/common/models"
)

const beforeSource = `export default function ProductPreview() {
  return (
    <section aria-label="Product preview" className="rounded-xl border p-6">
      <h2>Linen resort shirt</h2>
      <p>Lightweight linen for warm weekends.</p>
      <button>Add to cart</button>
    </section>
  );
}
`

func defaultEngine() *Engine {
	return NewEngine(AllowedPreviewPath, DefaultMaxChangedLines)
}

func TestCreateApplyRoundTrip(t *testing.T) {
	e := defaultEngine()

	cases := []struct {
		name  string
		after string
	}{
		{
			name:  "single line replaced",
			after: strings.Replace(beforeSource, "<h2>Linen resort shirt</h2>", "<h2>Linen resort shirt, spring edit</h2>", 1),
		},
		{
			name:  "line inserted",
			after: strings.Replace(beforeSource, "      <button>Add to cart</button>\n", "      <button>Add to cart</button>\n      <button>Buy now</button>\n", 1),
		},
		{
			name:  "line removed",
			after: strings.Replace(beforeSource, "      <p>Lightweight linen for warm weekends.</p>\n", "", 1),
		},
		{
			name:  "after loses trailing newline",
			after: strings.TrimSuffix(strings.Replace(beforeSource, "Add to cart", "Buy today", 1), "\n"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patch := e.CreatePatch(beforeSource, tc.after)
			if res := e.ValidatePatch(patch); !res.OK {
				t.Fatalf("generated patch rejected: %s", res.Reason)
			}

			got, res := e.ApplyPatch(beforeSource, patch)
			if !res.OK {
				t.Fatalf("apply failed: %s", res.Reason)
			}
			if got != tc.after {
				t.Fatalf("round trip mismatch\npatch:\n%s\ngot:\n%q\nwant:\n%q", patch, got, tc.after)
			}
		})
	}
}

func TestCreatePatchIsDeterministic(t *testing.T) {
	e := defaultEngine()
	after := strings.Replace(beforeSource, "Add to cart", "Buy now", 1)

	first := e.CreatePatch(beforeSource, after)
	second := e.CreatePatch(beforeSource, after)
	if first != second {
		t.Fatalf("same inputs produced different patches")
	}
	if !strings.HasPrefix(first, "--- "+AllowedPreviewPath+"\tbefore\n+++ "+AllowedPreviewPath+"\tafter\n") {
		t.Fatalf("unexpected file headers:\n%s", first)
	}
}

func TestApplyPatchRejectsStaleSource(t *testing.T) {
	e := defaultEngine()
	after := strings.Replace(beforeSource, "Add to cart", "Buy now", 1)
	patch := e.CreatePatch(beforeSource, after)

	drifted := strings.Replace(beforeSource, "Linen resort shirt", "Wool winter coat", 1)
	_, res := e.ApplyPatch(drifted, patch)
	if res.OK {
		t.Fatalf("expected stale rejection")
	}
	if res.Reason != models.ReasonPatchStale {
		t.Fatalf("reason = %q, want %q", res.Reason, models.ReasonPatchStale)
	}
}

func TestApplyPatchRejectsGarbage(t *testing.T) {
	e := defaultEngine()
	if _, res := e.ApplyPatch(beforeSource, "not a diff at all"); res.OK {
		t.Fatalf("expected rejection of non-diff input")
	}
}

func TestCountChangedLines(t *testing.T) {
	if n := CountChangedLines(beforeSource, beforeSource); n != 0 {
		t.Fatalf("identical sources counted %d changed lines", n)
	}

	after := strings.Replace(beforeSource, "Add to cart", "Buy now", 1)
	// One replaced line counts on both sides.
	if n := CountChangedLines(beforeSource, after); n != 2 {
		t.Fatalf("replaced line counted as %d, want 2", n)
	}

	inserted := strings.Replace(beforeSource, "      <button>Add to cart</button>\n", "      <button>Add to cart</button>\n      <button>Buy now</button>\n", 1)
	if n := CountChangedLines(beforeSource, inserted); n != 1 {
		t.Fatalf("inserted line counted as %d, want 1", n)
	}
}

func TestValidatePatchRejections(t *testing.T) {
	e := defaultEngine()

	wrongFile := "--- src/lib/cart.ts\tbefore\n" +
		"+++ src/lib/cart.ts\tafter\n" +
		"@@ -1,1 +1,1 @@\n-a\n+b\n"

	creates := "--- /dev/null\n" +
		"+++ " + AllowedPreviewPath + "\n" +
		"@@ -0,0 +1,1 @@\n+hello\n"

	cases := []struct {
		name   string
		patch  string
		reason string
	}{
		{"empty", "   \n", models.ReasonPatchEmpty},
		{"binary", "Binary files a and b differ\n", models.ReasonPatchBinary},
		{"wrong file", wrongFile, models.ReasonForbiddenFile},
		{"creates file", creates, models.ReasonPatchCreatesOrDeletes},
		{
			"no hunks",
			"--- " + AllowedPreviewPath + "\tbefore\n+++ " + AllowedPreviewPath + "\tafter\n",
			models.ReasonPatchNoHunks,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.ValidatePatch(tc.patch)
			if res.OK {
				t.Fatalf("patch accepted")
			}
			if res.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", res.Reason, tc.reason)
			}
		})
	}
}

func TestValidatePatchSizeCeiling(t *testing.T) {
	e := NewEngine(AllowedPreviewPath, 2)

	atLimit := beforeSource + "// extra 1\n// extra 2\n"
	overLimit := beforeSource + "// extra 1\n// extra 2\n// extra 3\n"

	if res := e.ValidatePatch(defaultEngine().CreatePatch(beforeSource, atLimit)); !res.OK {
		t.Fatalf("patch at the ceiling rejected: %s", res.Reason)
	}

	res := e.ValidatePatch(defaultEngine().CreatePatch(beforeSource, overLimit))
	if res.OK {
		t.Fatalf("oversized patch accepted")
	}
	if res.Reason != models.ReasonPatchTooLarge {
		t.Fatalf("reason = %q, want %q", res.Reason, models.ReasonPatchTooLarge)
	}
}
