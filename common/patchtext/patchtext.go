package patchtext

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/previewlab/surgeon/common/models"
)

// AllowedPreviewPath is the single file a patch may touch, on both sides
const AllowedPreviewPath = "src/demo/EditableProductPreview.tsx"

// DefaultMaxChangedLines is the reference changed-line ceiling. The same
// ceiling is enforced on the unified patch here and on the full-source line
// diff in the static validator, so neither representation can be used to
// sneak past the other.
const DefaultMaxChangedLines = 320

const (
	beforeLabel     = "before"
	afterLabel      = "after"
	noNewlineMarker = `\ No newline at end of file`
	contextLines    = 3
)

// Engine creates, validates and applies unified text diffs for the one
// allowed component file
type Engine struct {
	path            string
	maxChangedLines int
}

// NewEngine creates a diff engine for path with the given changed-line ceiling
func NewEngine(path string, maxChangedLines int) *Engine {
	if path == "" {
		path = AllowedPreviewPath
	}
	if maxChangedLines <= 0 {
		maxChangedLines = DefaultMaxChangedLines
	}
	return &Engine{path: path, maxChangedLines: maxChangedLines}
}

// Path returns the single allowed file path
func (e *Engine) Path() string {
	return e.path
}

// MaxChangedLines returns the changed-line ceiling
func (e *Engine) MaxChangedLines() int {
	return e.maxChangedLines
}

// splitLines splits s into lines without terminators and reports whether s
// ended with a newline. An empty string has no lines.
func splitLines(s string) ([]string, bool) {
	if s == "" {
		return nil, true
	}
	endsNL := strings.HasSuffix(s, "\n")
	trimmed := strings.TrimSuffix(s, "\n")
	return strings.Split(trimmed, "\n"), endsNL
}

// joinLines is the inverse of splitLines
func joinLines(lines []string, endsNL bool) string {
	if len(lines) == 0 {
		return ""
	}
	out := strings.Join(lines, "\n")
	if endsNL {
		out += "\n"
	}
	return out
}

// formatRange renders one side of a hunk header in unified style
func formatRange(start, length int) string {
	beginning := start + 1
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}

// CreatePatch produces a unified diff between two full-file versions of the
// allowed path, with fixed "before"/"after" revision labels. It is a pure
// function: the same inputs always produce byte-identical patch text.
// Missing trailing newlines are encoded with the standard no-newline marker
// so ApplyPatch can reproduce the after text byte for byte.
func (e *Engine) CreatePatch(before, after string) string {
	aLines, aNL := splitLines(before)
	bLines, bNL := splitLines(after)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\t%s\n", e.path, beforeLabel)
	fmt.Fprintf(&sb, "+++ %s\t%s\n", e.path, afterLabel)

	matcher := difflib.NewMatcher(aLines, bLines)
	for _, group := range matcher.GetGroupedOpCodes(contextLines) {
		first, last := group[0], group[len(group)-1]
		fmt.Fprintf(&sb, "@@ -%s +%s @@\n",
			formatRange(first.I1, last.I2-first.I1),
			formatRange(first.J1, last.J2-first.J1))

		for _, op := range group {
			switch op.Tag {
			case 'e':
				for i := op.I1; i < op.I2; i++ {
					writeLine(&sb, ' ', aLines[i])
					e.writeMarkers(&sb, i, op.J1+(i-op.I1), aLines, bLines, aNL, bNL)
				}
			case 'r', 'd':
				for i := op.I1; i < op.I2; i++ {
					writeLine(&sb, '-', aLines[i])
					if i == len(aLines)-1 && !aNL {
						sb.WriteString(noNewlineMarker + "\n")
					}
				}
				if op.Tag == 'd' {
					continue
				}
				fallthrough
			case 'i':
				for j := op.J1; j < op.J2; j++ {
					writeLine(&sb, '+', bLines[j])
					if j == len(bLines)-1 && !bNL {
						sb.WriteString(noNewlineMarker + "\n")
					}
				}
			}
		}
	}

	return sb.String()
}

func writeLine(sb *strings.Builder, prefix byte, text string) {
	sb.WriteByte(prefix)
	sb.WriteString(text)
	sb.WriteByte('\n')
}

// writeMarkers emits the no-newline marker after a context line when it is
// the final unterminated line on either side
func (e *Engine) writeMarkers(sb *strings.Builder, ai, bi int, aLines, bLines []string, aNL, bNL bool) {
	lastA := ai == len(aLines)-1 && !aNL
	lastB := bi == len(bLines)-1 && !bNL
	if lastA || lastB {
		sb.WriteString(noNewlineMarker + "\n")
	}
}

// CountChangedLines returns the number of added plus removed lines between
// two full sources, measured on the full line diff. The static validator
// checks this against the same ceiling the patch validator enforces.
func CountChangedLines(before, after string) int {
	aLines, _ := splitLines(before)
	bLines, _ := splitLines(after)

	count := 0
	matcher := difflib.NewMatcher(aLines, bLines)
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		count += (op.I2 - op.I1) + (op.J2 - op.J1)
	}
	return count
}

// ApplyPatch replays a unified diff against a full source. Any context
// mismatch, malformed hunk, or out-of-range offset fails with the single
// stable stale-patch reason; the orchestrator's replay feature depends on
// that exact string.
func (e *Engine) ApplyPatch(source, patchText string) (string, models.ValidationResult) {
	hunks, err := parseHunks(patchText)
	if err != nil || len(hunks) == 0 {
		return "", models.Invalid(models.ReasonPatchStale)
	}

	srcLines, srcNL := splitLines(source)

	var out []string
	srcIdx := 0
	tailFromHunk := false
	newSideNoNL := false

	for _, h := range hunks {
		pos := h.origStart - 1
		if h.origCount == 0 {
			// Insertion point is after the named line
			pos = h.origStart
		}
		if pos < srcIdx || pos > len(srcLines) {
			return "", models.Invalid(models.ReasonPatchStale)
		}
		out = append(out, srcLines[srcIdx:pos]...)
		srcIdx = pos

		prev := byte(0)
		for _, line := range h.body {
			prefix, text := splitPatchLine(line)
			switch prefix {
			case ' ':
				if srcIdx >= len(srcLines) || srcLines[srcIdx] != text {
					return "", models.Invalid(models.ReasonPatchStale)
				}
				out = append(out, text)
				srcIdx++
				newSideNoNL = false
			case '-':
				if srcIdx >= len(srcLines) || srcLines[srcIdx] != text {
					return "", models.Invalid(models.ReasonPatchStale)
				}
				srcIdx++
			case '+':
				out = append(out, text)
				newSideNoNL = false
			case '\\':
				if prev == ' ' || prev == '+' {
					newSideNoNL = true
				}
				continue
			default:
				return "", models.Invalid(models.ReasonPatchStale)
			}
			prev = prefix
		}
		tailFromHunk = srcIdx >= len(srcLines)
	}

	endsNL := srcNL
	if tailFromHunk {
		endsNL = !newSideNoNL
	} else {
		out = append(out, srcLines[srcIdx:]...)
	}

	return joinLines(out, endsNL), models.Valid()
}

// splitPatchLine separates the unified-diff prefix from the line content.
// A bare empty line counts as empty context, which some diff emitters
// produce instead of a single space.
func splitPatchLine(line string) (byte, string) {
	if line == "" {
		return ' ', ""
	}
	return line[0], line[1:]
}
