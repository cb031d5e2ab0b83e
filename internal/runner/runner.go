// Package runner fans a list of discovered videos out to parallel scan
// workers and collects one result per video. Workers share nothing except
// the dedup tracker; a failure inside one worker never aborts the run.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ramaral11/slatescan/internal/dedup"
	"github.com/ramaral11/slatescan/internal/discover"
	"github.com/ramaral11/slatescan/internal/export"
	"github.com/ramaral11/slatescan/internal/scanner"
	"github.com/ramaral11/slatescan/internal/video"
)

// Result is the per-video record produced exactly once per input path. Field
// names follow the metadata wire format.
type Result struct {
	VideoPath   string  `json:"video_path"`
	SlateFound  bool    `json:"slate_found"`
	Confidence  float64 `json:"confidence"`
	FrameNumber int     `json:"frame_number"`
	Timestamp   float64 `json:"timestamp,omitempty"`
	PNGFilename string  `json:"png_filename,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// OpenFunc opens one video for scanning. Production wires video.Open; tests
// wire fakes.
type OpenFunc func(ctx context.Context, path string) (video.Source, error)

// ProgressFunc observes each completed video, in completion order.
type ProgressFunc func(done, total int, r Result)

// Pool runs scans across a bounded number of workers.
type Pool struct {
	Open       OpenFunc
	Classifier scanner.Classifier
	Saver      export.Saver
	Tracker    *dedup.Tracker
	Logger     *slog.Logger

	Options      scanner.Options
	Workers      int           // <1 means runtime.NumCPU()
	VideoTimeout time.Duration // 0 disables the per-video deadline
	OnProgress   ProgressFunc
}

// Run scans every file and returns one Result per input, in completion
// order. Per-video failures (open errors, decoder crashes, worker panics)
// become error results; only context cancellation stops the run early, and
// even then every dispatched video yields a result.
func (p *Pool) Run(ctx context.Context, files []discover.File) []Result {
	workers := p.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		return nil
	}

	jobs := make(chan discover.File)
	results := make(chan Result, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				results <- p.processOne(ctx, f)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				// Abandon undispatched videos; in-flight ones finish.
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result, 0, len(files))
	for r := range results {
		out = append(out, r)
		if p.OnProgress != nil {
			p.OnProgress(len(out), len(files), r)
		}
	}
	return out
}

// processOne scans a single video. A panic anywhere below is converted into
// an error result at this boundary.
func (p *Pool) processOne(ctx context.Context, f discover.File) (res Result) {
	res = Result{VideoPath: f.RelPath, FrameNumber: -1}

	defer func() {
		if r := recover(); r != nil {
			res.SlateFound = false
			res.Error = fmt.Sprintf("worker panic: %v", r)
			if p.Logger != nil {
				p.Logger.Error("scan worker panicked", "video", f.RelPath, "panic", r)
			}
		}
	}()

	if p.VideoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.VideoTimeout)
		defer cancel()
	}

	src, err := p.Open(ctx, f.AbsPath)
	if err != nil {
		res.Error = fmt.Sprintf("failed to open video file: %v", err)
		if p.Logger != nil {
			p.Logger.Warn("cannot open video", "video", f.RelPath, "error", err)
		}
		return res
	}
	defer src.Close()

	cand, err := scanner.Scan(ctx, src, p.Classifier, p.Options, p.Logger)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if cand == nil {
		return res
	}

	res.SlateFound = true
	res.Confidence = cand.Confidence
	res.FrameNumber = cand.Index
	res.Timestamp = cand.Timestamp

	filename := export.Filename(f.AbsPath, cand.Index)
	if p.Tracker.ShouldPersist(f.Folder) {
		if err := p.Saver.Save(cand.Frame, filename); err != nil {
			res.Error = fmt.Sprintf("failed to save slate image: %v", err)
			if p.Logger != nil {
				p.Logger.Error("cannot save slate image", "video", f.RelPath, "error", err)
			}
		} else {
			res.PNGFilename = filename
		}
	}

	if p.Logger != nil {
		p.Logger.Info("slate found",
			"video", f.RelPath,
			"frame", cand.Index,
			"confidence", fmt.Sprintf("%.2f", cand.Confidence),
			"persisted", res.PNGFilename != "",
		)
	}
	return res
}
