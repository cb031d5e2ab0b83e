package api

import (
	"time"

	"github.com/ramaral11/slatescan/internal/history"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type RunResponse struct {
	ID           string `json:"id"`
	InputFolder  string `json:"input_folder"`
	OutputFolder string `json:"output_folder"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at"`
	TotalScanned int    `json:"total_scanned"`
	SlatesFound  int    `json:"slates_found"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type ResultResponse struct {
	VideoPath   string  `json:"video_path"`
	SlateFound  bool    `json:"slate_found"`
	Confidence  float64 `json:"confidence"`
	FrameNumber int     `json:"frame_number"`
	Timestamp   float64 `json:"timestamp,omitempty"`
	PNGFilename string  `json:"png_filename,omitempty"`
	Error       string  `json:"error,omitempty"`
}

type ResultsResponse struct {
	RunID   string           `json:"run_id"`
	Results []ResultResponse `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func RunToResponse(r *history.Run) RunResponse {
	return RunResponse{
		ID:           r.ID,
		InputFolder:  r.InputFolder,
		OutputFolder: r.OutputFolder,
		StartedAt:    r.StartedAt.Format(time.RFC3339),
		FinishedAt:   r.FinishedAt.Format(time.RFC3339),
		TotalScanned: r.TotalScanned,
		SlatesFound:  r.SlatesFound,
	}
}

func ResultToResponse(r *history.Result) ResultResponse {
	return ResultResponse{
		VideoPath:   r.VideoPath,
		SlateFound:  r.SlateFound,
		Confidence:  r.Confidence,
		FrameNumber: r.FrameNumber,
		Timestamp:   r.Timestamp,
		PNGFilename: r.PNGFilename,
		Error:       r.Error,
	}
}
