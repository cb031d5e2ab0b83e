package video

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// probeOutput mirrors the subset of `ffprobe -show_streams -show_format`
// JSON output the scanner needs.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
	Duration   string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// Probe runs ffprobe against the first video stream of path and derives
// stream metadata. Frame count falls back to duration*fps when the container
// does not carry nb_frames (MPEG-TS and friends usually do not).
func Probe(ctx context.Context, ffprobeBin, path string) (Metadata, error) {
	cmd := exec.CommandContext(ctx, ffprobeBin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames,duration",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return Metadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probed.Streams) == 0 {
		return Metadata{}, fmt.Errorf("no video stream in %s", path)
	}

	s := probed.Streams[0]
	md := Metadata{Width: s.Width, Height: s.Height}
	if md.Width <= 0 || md.Height <= 0 {
		return Metadata{}, fmt.Errorf("invalid dimensions %dx%d in %s", s.Width, s.Height, path)
	}

	md.FrameRate = parseFrameRate(s.RFrameRate)
	if md.FrameRate <= 0 {
		// The reference scanner assumed 30 fps when the container was silent.
		md.FrameRate = 30
	}

	md.Duration = parseProbeFloat(s.Duration)
	if md.Duration <= 0 {
		md.Duration = parseProbeFloat(probed.Format.Duration)
	}

	md.FrameCount = parseProbeInt(s.NbFrames)
	if md.FrameCount <= 0 {
		if md.Duration > 0 {
			md.FrameCount = int(math.Ceil(md.Duration * md.FrameRate))
		} else {
			md.FrameCount = FrameCountUnknown
		}
	}

	return md, nil
}

// parseFrameRate parses ffprobe's rational frame rate ("30000/1001").
func parseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseProbeFloat(s)
	}
	n := parseProbeFloat(num)
	d := parseProbeFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseProbeFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseProbeInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
