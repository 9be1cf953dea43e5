package models

import "time"

// Project owns exactly one mutable active source (the currently served
// component text) and one immutable baseline source (the pristine seed).
// ActiveSource changes only through the orchestrator's promotion step.
// Maps to: project table
type Project struct {
	ID          string  `db:"project_id" json:"project_id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`

	BaselineSource string `db:"baseline_source" json:"baseline_source"`
	ActiveSource   string `db:"active_source" json:"active_source"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
