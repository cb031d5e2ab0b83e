// Package scanner finds the best slate candidate within a single video. It
// drives a frame classifier over a bounded prefix of the stream using a
// two-phase strategy: a targeted probe at the empirically likely slate
// offset, then a fallback linear scan only when the probe misses.
package scanner

import (
	"context"
	"io"
	"log/slog"

	"github.com/ramaral11/slatescan/internal/slate"
	"github.com/ramaral11/slatescan/internal/video"
)

// Classifier scores a single frame. It is satisfied by *slate.Classifier;
// tests substitute scripted implementations.
type Classifier interface {
	Classify(f *video.Frame) slate.Result
}

// Options bound the scan of one video.
type Options struct {
	FramesToCheck int     // fallback scan budget
	Threshold     float64 // minimum confidence to accept a candidate
	TargetFrame   int     // probe frame index checked first
}

// Candidate is the best slate found in one video, frozen once the scan
// returns. Frame is a private copy, safe to hold after the source closes.
type Candidate struct {
	Frame      *video.Frame
	Index      int
	Confidence float64
	Timestamp  float64
}

// Scan searches src for a slate. The targeted probe is classified first; if
// it already meets the threshold it is accepted without reading any further
// frames. Otherwise the scanner seeks back to frame 0 and folds the
// classifier over at most min(FramesToCheck, 2*frame_rate, total_frames)
// frames, keeping the highest-confidence slate (ties keep the earlier
// frame). A read failure mid-scan ends the scan with whatever best candidate
// exists so far.
//
// Scan returns (nil, nil) when no candidate reaches the threshold. The only
// errors returned are context cancellation.
func Scan(ctx context.Context, src video.Source, cls Classifier, opts Options, logger *slog.Logger) (*Candidate, error) {
	md := src.Metadata()

	best, probed := probe(src, cls, opts, md, logger)
	if best != nil && best.Confidence >= opts.Threshold {
		return best, nil
	}

	limit := fallbackLimit(opts.FramesToCheck, md)
	// The probe frame already consumed one read from inside the fallback
	// window; shrink the budget so the total stays within the scan bound.
	if probed && opts.TargetFrame < limit {
		limit--
	}
	if limit > 0 {
		if err := src.Seek(0); err != nil {
			if logger != nil {
				logger.Debug("seek to start failed, keeping probe result", "error", err)
			}
			return accept(best, opts.Threshold), nil
		}

		for i := 0; i < limit; i++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			f, err := src.ReadFrame()
			if err != nil {
				if err != io.EOF && logger != nil {
					logger.Warn("decode interrupted, keeping best candidate so far",
						"frame", i, "error", err)
				}
				break
			}

			res := cls.Classify(f)
			if !res.IsSlate {
				continue
			}
			if best == nil || res.Confidence > best.Confidence {
				best = newCandidate(f, res.Confidence, md.FrameRate)
			}
		}
	}

	return accept(best, opts.Threshold), nil
}

// probe classifies the single targeted frame. A slate result seeds the
// running best even when it is below the threshold, so the fallback fold
// competes against it. The second return reports whether a frame was
// actually read.
func probe(src video.Source, cls Classifier, opts Options, md video.Metadata, logger *slog.Logger) (*Candidate, bool) {
	target := opts.TargetFrame
	if md.FrameCount != video.FrameCountUnknown && target > md.FrameCount-1 {
		target = md.FrameCount - 1
	}
	if target < 0 {
		target = 0
	}

	if err := src.Seek(target); err != nil {
		if logger != nil {
			logger.Debug("probe seek failed", "frame", target, "error", err)
		}
		return nil, false
	}
	f, err := src.ReadFrame()
	if err != nil {
		if logger != nil {
			logger.Debug("probe read failed", "frame", target, "error", err)
		}
		return nil, false
	}

	res := cls.Classify(f)
	if !res.IsSlate {
		return nil, true
	}
	return newCandidate(f, res.Confidence, md.FrameRate), true
}

// fallbackLimit is min(framesToCheck, 2*frame_rate, total_frames), ignoring
// the bounds the source could not report.
func fallbackLimit(framesToCheck int, md video.Metadata) int {
	limit := framesToCheck
	if md.FrameRate > 0 {
		if twoSeconds := int(md.FrameRate * 2); twoSeconds < limit {
			limit = twoSeconds
		}
	}
	if md.FrameCount != video.FrameCountUnknown && md.FrameCount < limit {
		limit = md.FrameCount
	}
	return limit
}

func newCandidate(f *video.Frame, confidence, frameRate float64) *Candidate {
	ts := 0.0
	if frameRate > 0 {
		ts = float64(f.Index) / frameRate
	}
	return &Candidate{
		Frame:      f.Clone(),
		Index:      f.Index,
		Confidence: confidence,
		Timestamp:  ts,
	}
}

func accept(best *Candidate, threshold float64) *Candidate {
	if best == nil || best.Confidence < threshold {
		return nil
	}
	return best
}
