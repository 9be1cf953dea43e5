package models

import (
	"time"

	"github.com/google/uuid"
)

// RevisionStatus is the terminal-or-pending status of one change attempt
type RevisionStatus string

const (
	StatusPending RevisionStatus = "pending"
	StatusApplied RevisionStatus = "applied"
	StatusBlocked RevisionStatus = "blocked"
	StatusFailed  RevisionStatus = "failed"
)

// IsTerminal reports whether the status can no longer change
func (s RevisionStatus) IsTerminal() bool {
	return s == StatusApplied || s == StatusBlocked || s == StatusFailed
}

// RunStage tracks monotonic pipeline progress; frozen at the point of
// failure or block
type RunStage string

const (
	StageGenerating RunStage = "generating"
	StageValidating RunStage = "validating"
	StageTesting    RunStage = "testing"
	StageApplying   RunStage = "applying"
	StageComplete   RunStage = "complete"
)

// TestStatus is the behavioral test outcome for a revision
type TestStatus string

const (
	TestNotRun TestStatus = "not_run"
	TestPassed TestStatus = "passed"
	TestFailed TestStatus = "failed"
)

// Revision is an immutable-once-terminal record of one change attempt.
// Maps to: revision table
type Revision struct {
	ID        uuid.UUID `db:"revision_id" json:"revision_id"`
	ProjectID string    `db:"project_id" json:"project_id"`

	// Inputs
	Prompt    string  `db:"prompt" json:"prompt"`
	PresetKey *string `db:"preset_key" json:"preset_key,omitempty"`

	// Artifacts
	Summary      []string `db:"summary" json:"summary"`
	PatchText    string   `db:"patch_text" json:"patch_text"`
	SourceBefore string   `db:"source_before" json:"source_before"`
	SourceAfter  *string  `db:"source_after" json:"source_after,omitempty"`

	// Derived judgments
	BlockedReason *string    `db:"blocked_reason" json:"blocked_reason,omitempty"`
	TestStatus    TestStatus `db:"test_status" json:"test_status"`
	TestOutput    string     `db:"test_output" json:"test_output"`

	Status   RevisionStatus `db:"status" json:"status"`
	RunStage RunStage       `db:"run_stage" json:"run_stage"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RevisionSnapshot is the polling view of a revision exposed to callers
type RevisionSnapshot struct {
	RevisionID    uuid.UUID      `json:"revision_id"`
	Status        RevisionStatus `json:"status"`
	RunStage      RunStage       `json:"run_stage"`
	Prompt        string         `json:"prompt"`
	Summary       []string       `json:"summary"`
	PatchText     string         `json:"patch_text"`
	BlockedReason *string        `json:"blocked_reason,omitempty"`
	TestStatus    TestStatus     `json:"test_status"`
	TestOutput    string         `json:"test_output"`
	SourceAfter   *string        `json:"source_after,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Snapshot projects a revision into its polling view
func (r *Revision) Snapshot() *RevisionSnapshot {
	return &RevisionSnapshot{
		RevisionID:    r.ID,
		Status:        r.Status,
		RunStage:      r.RunStage,
		Prompt:        r.Prompt,
		Summary:       r.Summary,
		PatchText:     r.PatchText,
		BlockedReason: r.BlockedReason,
		TestStatus:    r.TestStatus,
		TestOutput:    r.TestOutput,
		SourceAfter:   r.SourceAfter,
		CreatedAt:     r.CreatedAt,
	}
}
