package video

import "errors"

// FrameCountUnknown marks a source whose container does not report a frame
// count and whose duration could not be probed.
const FrameCountUnknown = -1

// Metadata describes an opened video stream.
type Metadata struct {
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int // FrameCountUnknown when the container does not say
	Duration   float64
}

// Source is an opened, seekable supply of decoded frames. A Source is owned
// by exactly one scan; Close must be called when the scan finishes or fails.
type Source interface {
	Metadata() Metadata

	// Seek positions the source at the given frame index. The next
	// ReadFrame returns that frame.
	Seek(frame int) error

	// ReadFrame returns the next decoded frame, advancing the position by
	// one. It returns io.EOF once the stream is exhausted. The returned
	// Frame is only valid until the next ReadFrame; use Clone to retain it.
	ReadFrame() (*Frame, error)

	Close() error
}

// ErrOpenFailed wraps any failure to open or probe a video file. Callers use
// it to distinguish "could not decode at all" from "no slate found".
var ErrOpenFailed = errors.New("open video failed")
