package models

import "time"

// Action is the tiering step selected for a single run.
type Action string

const (
	ActionNone             Action = "none"
	ActionMigrate          Action = "migrate"
	ActionClean            Action = "clean"
	ActionCleanThenMigrate Action = "clean_then_migrate"
)

// RunReport describes one orchestrator run. It lives in memory only.
type RunReport struct {
	ID         string           `json:"id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Backup     VolumeUsage      `json:"backup"`
	Archive    VolumeUsage      `json:"archive"`
	Action     Action           `json:"action"`
	Canceled   bool             `json:"canceled,omitempty"`
	Transfer   *TransferOutcome `json:"transfer,omitempty"`
	Clean      *CleanOutcome    `json:"clean,omitempty"`
}
