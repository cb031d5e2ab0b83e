// Package history records completed runs in the SQLite database so past
// scans stay listable and reviewable after their terminal output is gone.
package history

import (
	"time"

	"github.com/ramaral11/slatescan/internal/runner"
)

// Run is one recorded scan run.
type Run struct {
	ID           string    `json:"id"`
	InputFolder  string    `json:"input_folder"`
	OutputFolder string    `json:"output_folder"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	TotalScanned int       `json:"total_scanned"`
	SlatesFound  int       `json:"slates_found"`
}

// Result is one recorded per-video outcome, the stored form of
// runner.Result.
type Result struct {
	RunID string `json:"run_id"`
	runner.Result
}
