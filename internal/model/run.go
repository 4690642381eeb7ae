package model

import "time"

// RunStatus represents the state of a single input file's mapping run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one processed input file as recorded in the run ledger.
type Run struct {
	ID         string      `json:"id"`
	File       string      `json:"file"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// RunSummary holds the counts reported after a file has been mapped.
type RunSummary struct {
	Records         int      `json:"records"`
	Features        int      `json:"features"`
	Aggregated      int      `json:"aggregated"`
	Unresolved      int      `json:"unresolved"`
	MatchedCities   []string `json:"matched_cities"`
	UnmatchedCities []string `json:"unmatched_cities"`
	Total           float64  `json:"total"`
	OutputPath      string   `json:"output_path,omitempty"`
	DurationMS      int64    `json:"duration_ms"`
}
