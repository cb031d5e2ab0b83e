package video

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

const maxStderrBytes = 8 * 1024 // tail of decoder stderr kept for diagnostics

// FFmpegSource decodes frames by piping rawvideo rgb24 output from an ffmpeg
// subprocess. Seeking restarts the subprocess with a frame-exact select
// filter, so a seek is cheap only relative to decoding the skipped frames.
type FFmpegSource struct {
	ctx    context.Context
	path   string
	md     Metadata
	logger *slog.Logger

	ffmpegBin string
	frameSize int

	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer

	next int // index of the frame the next ReadFrame returns
	buf  []byte
}

// OpenOptions selects the decoder binaries. Zero values mean "find them on
// PATH".
type OpenOptions struct {
	FFmpegBin  string
	FFprobeBin string
}

// Open probes path and prepares an FFmpegSource positioned at frame 0. Any
// probe failure is reported as ErrOpenFailed so callers can classify it.
func Open(ctx context.Context, path string, opts OpenOptions, logger *slog.Logger) (*FFmpegSource, error) {
	ffmpegBin := opts.FFmpegBin
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	ffprobeBin := opts.FFprobeBin
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}

	md, err := Probe(ctx, ffprobeBin, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	s := &FFmpegSource{
		ctx:       ctx,
		path:      path,
		md:        md,
		logger:    logger,
		ffmpegBin: ffmpegBin,
		frameSize: md.Width * md.Height * 3,
	}
	s.buf = make([]byte, s.frameSize)
	return s, nil
}

func (s *FFmpegSource) Metadata() Metadata { return s.md }

// Seek positions the stream at the given frame index by restarting the
// decoder pipe with a select filter.
func (s *FFmpegSource) Seek(frame int) error {
	if frame < 0 {
		frame = 0
	}
	if err := s.stopPipe(); err != nil && s.logger != nil {
		s.logger.Debug("decoder pipe did not stop cleanly", "path", s.path, "error", err)
	}
	return s.startPipe(frame)
}

// ReadFrame returns the next decoded frame. The pixel buffer is reused
// between calls; clone the frame to retain it.
func (s *FFmpegSource) ReadFrame() (*Frame, error) {
	if s.cmd == nil {
		if err := s.startPipe(s.next); err != nil {
			return nil, err
		}
	}

	if _, err := io.ReadFull(s.stdout, s.buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame %d of %s: %w (ffmpeg: %s)", s.next, s.path, err, s.stderr.String())
	}

	f := &Frame{Index: s.next, Width: s.md.Width, Height: s.md.Height, Pix: s.buf}
	s.next++
	return f, nil
}

func (s *FFmpegSource) Close() error {
	return s.stopPipe()
}

func (s *FFmpegSource) startPipe(from int) error {
	args := []string{"-v", "error", "-i", s.path}
	if from > 0 {
		// select is frame-exact; -ss would snap to the nearest keyframe.
		args = append(args, "-vf", fmt.Sprintf("select=gte(n\\,%d)", from), "-vsync", "0")
	}
	args = append(args, "-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1")

	cmd := exec.CommandContext(s.ctx, s.ffmpegBin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decoder stdout pipe: %w", err)
	}
	stderr := &tailBuffer{limit: maxStderrBytes}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start decoder for %s: %w", s.path, err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.stderr = stderr
	s.next = from
	return nil
}

func (s *FFmpegSource) stopPipe() error {
	if s.cmd == nil {
		return nil
	}
	cmd := s.cmd
	s.cmd = nil

	if s.stdout != nil {
		s.stdout.Close()
	}
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
	// Wait reaps the process; the error is expected after Kill.
	cmd.Wait()
	return nil
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, p...)
	if len(b.data) > b.limit {
		b.data = b.data[len(b.data)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}
