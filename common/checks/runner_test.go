package checks

import (
	"strings"
	"testing"

	"github.com/previewlab/surgeon/common/models"
)

const styledSource = `export default function ProductPreview() {
  return (
    <section aria-label="Product preview" className="rounded-[2rem] border bg-white shadow">
      <h2 className="text-2xl">Coastal Linen Camp Shirt</h2>
      <button className="rounded-full bg-black text-white">Add to bag</button>
    </section>
  );
}
`

const strippedSource = `export default function ProductPreview() {
  return (
    <div>
      <p>Coastal Linen Camp Shirt</p>
    </div>
  );
}
`

func TestRunPassesStyledComponent(t *testing.T) {
	r, err := NewRunner(nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	status, output := r.Run(styledSource)
	if status != models.TestPassed {
		t.Fatalf("status = %s, output = %q", status, output)
	}
	want := "4 checks passed: component compiled, preview landmark preserved, action controls present, styled structure preserved."
	if output != want {
		t.Errorf("output = %q, want %q", output, want)
	}
}

func TestRunReportsEveryFailure(t *testing.T) {
	r, err := NewRunner(nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	status, output := r.Run(strippedSource)
	if status != models.TestFailed {
		t.Fatalf("status = %s", status)
	}
	lines := strings.Split(output, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 failure lines, got %d: %q", len(lines), output)
	}
	for _, want := range []string{"aria label", "action button", "styled UI structure"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %q", want, output)
		}
	}
}

func TestRunSurfacesEvaluationErrors(t *testing.T) {
	r, err := NewRunner(nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	status, output := r.Run("export default function ProductPreview() { return <p>{broken}</p>; }")
	if status != models.TestFailed {
		t.Fatalf("status = %s", status)
	}
	if !strings.Contains(output, "could not be evaluated") {
		t.Errorf("output = %q", output)
	}
}

func TestRunCustomBattery(t *testing.T) {
	r, err := NewRunner([]Check{
		{
			Name:       "headline present",
			Expression: `texts.exists(text, text.contains("Camp Shirt"))`,
			Failure:    "Editable preview should keep the product headline.",
		},
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	status, output := r.Run(styledSource)
	if status != models.TestPassed {
		t.Fatalf("status = %s, output = %q", status, output)
	}
	if output != "2 checks passed: component compiled, headline present." {
		t.Errorf("output = %q", output)
	}
	if r.CacheSize() != 1 {
		t.Errorf("cache size = %d", r.CacheSize())
	}
}
