// Package export persists slate frames as PNG files with deterministic,
// collision-resistant names.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/ramaral11/slatescan/internal/video"
)

// Saver writes frames to an output directory. The runner depends on this
// interface so tests can count writes without touching disk.
type Saver interface {
	Save(f *video.Frame, filename string) error
}

// Filename derives the stable output name for a detection: a short hash of
// the absolute source path plus the zero-padded frame index. Reruns over the
// same input produce identical names.
func Filename(videoPath string, frameIndex int) string {
	sum := sha256.Sum256([]byte(videoPath))
	return fmt.Sprintf("slate_%s_%04d.png", hex.EncodeToString(sum[:])[:8], frameIndex)
}

// PNGSaver encodes frames into an output directory.
type PNGSaver struct {
	dir string
}

func NewPNGSaver(dir string) *PNGSaver {
	return &PNGSaver{dir: dir}
}

// Save writes the frame to <dir>/<filename> via a temp file and rename so a
// crash never leaves a truncated image behind.
func (s *PNGSaver) Save(f *video.Frame, filename string) error {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			src := (y*f.Width + x) * 3
			dst := y*img.Stride + x*4
			img.Pix[dst] = f.Pix[src]
			img.Pix[dst+1] = f.Pix[src+1]
			img.Pix[dst+2] = f.Pix[src+2]
			img.Pix[dst+3] = 0xff
		}
	}

	target := filepath.Join(s.dir, filename)
	tmp, err := os.CreateTemp(s.dir, filename+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp image: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename temp image: %w", err)
	}
	return nil
}
