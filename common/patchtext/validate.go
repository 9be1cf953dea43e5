package patchtext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/previewlab/surgeon/common/models"
	"github.com/sourcegraph/go-diff/diff"
)

var (
	binaryPattern = regexp.MustCompile(`(?i)GIT binary patch|Binary files`)
	hunkHeader    = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

// hunk is the minimal parsed form ApplyPatch needs
type hunk struct {
	origStart int
	origCount int
	newStart  int
	newCount  int
	body      []string
}

// parseHunks extracts hunks from a unified diff, ignoring file headers
func parseHunks(patchText string) ([]hunk, error) {
	var hunks []hunk
	var current *hunk

	lines := strings.Split(patchText, "\n")
	// A trailing newline leaves one empty split element that belongs to no hunk
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for _, line := range lines {
		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			if current != nil {
				hunks = append(hunks, *current)
			}
			current = &hunk{
				origStart: atoiDefault(m[1], 0),
				origCount: atoiDefault(m[2], 1),
				newStart:  atoiDefault(m[3], 0),
				newCount:  atoiDefault(m[4], 1),
			}
			continue
		}

		if current == nil {
			continue
		}

		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			return nil, fmt.Errorf("file header inside hunk body")
		}

		current.body = append(current.body, line)
	}

	if current != nil {
		hunks = append(hunks, *current)
	}

	return hunks, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// ValidatePatch rejects any patch that is empty, binary, malformed, touches
// anything besides the single allowed file, creates or deletes files, has no
// hunks, or changes more lines than the ceiling allows.
func (e *Engine) ValidatePatch(patchText string) models.ValidationResult {
	if strings.TrimSpace(patchText) == "" {
		return models.Invalid(models.ReasonPatchEmpty)
	}

	if binaryPattern.MatchString(patchText) {
		return models.Invalid(models.ReasonPatchBinary)
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(stripHeaderLabels(patchText)))
	if err != nil {
		// A header-only diff with zero hunks is shaped correctly but
		// carries no change; report it as hunkless rather than malformed
		if hasFileHeaders(patchText) && !strings.Contains(patchText, "@@ -") {
			return models.Invalid(models.ReasonPatchNoHunks)
		}
		return models.Invalid(models.ReasonPatchMalformed)
	}

	if len(fileDiffs) != 1 {
		return models.Invalid(models.ReasonForbiddenFile)
	}

	fd := fileDiffs[0]
	origName := stripLabel(fd.OrigName)
	newName := stripLabel(fd.NewName)

	if origName == "/dev/null" || newName == "/dev/null" {
		return models.Invalid(models.ReasonPatchCreatesOrDeletes)
	}

	if origName != e.path || newName != e.path {
		return models.Invalid(models.ReasonForbiddenFile)
	}

	if len(fd.Hunks) == 0 {
		return models.Invalid(models.ReasonPatchNoHunks)
	}

	changed := 0
	for _, h := range fd.Hunks {
		for _, line := range strings.Split(string(h.Body), "\n") {
			if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
				changed++
			}
		}
	}

	if changed > e.maxChangedLines {
		return models.Invalid(models.ReasonPatchTooLarge)
	}

	return models.Valid()
}

// stripHeaderLabels removes the tab-separated revision label from --- and
// +++ lines. go-diff insists the field after the tab is a timestamp, so the
// fixed "before"/"after" labels CreatePatch emits would fail its parse.
func stripHeaderLabels(patchText string) string {
	lines := strings.Split(patchText, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			if tab := strings.IndexByte(line, '\t'); tab >= 0 {
				lines[i] = line[:tab]
			}
		}
	}
	return strings.Join(lines, "\n")
}

func hasFileHeaders(patchText string) bool {
	return strings.Contains(patchText, "--- ") && strings.Contains(patchText, "+++ ")
}

// stripLabel drops a tab-separated revision label from a diff file name
func stripLabel(name string) string {
	if i := strings.IndexByte(name, '\t'); i >= 0 {
		return name[:i]
	}
	return name
}
