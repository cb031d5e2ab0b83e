// Package video provides access to decoded video frames through an
// ffmpeg/ffprobe subprocess pipeline. Callers see a seekable Source of
// fixed-size RGB frames; everything about containers and codecs stays
// behind the subprocess boundary.
package video

// Frame is an immutable decoded frame: a packed RGB pixel buffer plus the
// frame's ordinal index within its source video.
//
// Pix holds Width*Height*3 bytes in row-major RGB order. A Frame is never
// mutated after it is produced; the scanner retains at most one Frame per
// video (the current best candidate) and discards the rest.
type Frame struct {
	Index  int
	Width  int
	Height int
	Pix    []byte
}

// Clone returns a deep copy of the frame. ReadFrame implementations are
// allowed to reuse their pixel buffer, so a caller that keeps a frame past
// the next read must clone it first.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Index: f.Index, Width: f.Width, Height: f.Height, Pix: pix}
}
