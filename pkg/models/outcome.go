package models

import "time"

// TransferOutcome aggregates the result of one migration walk.
type TransferOutcome struct {
	FilesAffected uint64        `json:"files_affected"`
	TotalBytes    uint64        `json:"total_bytes"`
	Duplicates    uint64        `json:"duplicates"`
	Failures      uint64        `json:"failures"`
	Elapsed       time.Duration `json:"elapsed"`
}

// ElapsedSeconds returns the walk duration in seconds.
func (o TransferOutcome) ElapsedSeconds() float64 {
	return o.Elapsed.Seconds()
}

// CleanOutcome aggregates the result of one retention walk.
type CleanOutcome struct {
	FilesAffected uint64        `json:"files_affected"`
	TotalBytes    uint64        `json:"total_bytes"`
	Skipped       uint64        `json:"skipped"`
	Failures      uint64        `json:"failures"`
	Elapsed       time.Duration `json:"elapsed"`
}

// ElapsedSeconds returns the walk duration in seconds.
func (o CleanOutcome) ElapsedSeconds() float64 {
	return o.Elapsed.Seconds()
}
