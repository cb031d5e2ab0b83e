// Package slate implements the slate-frame heuristic: a slate is a mostly
// black frame carrying sparse white text, scored from pixel statistics alone.
// Classification is deterministic and has no side effects.
package slate

import (
	"github.com/ramaral11/slatescan/internal/video"
)

// Result is the outcome of classifying a single frame. The component ratios
// are exposed for logging and tests; Confidence is always within [0,1].
type Result struct {
	IsSlate    bool
	Confidence float64
	BlackRatio float64
	WhiteRatio float64
	EdgeRatio  float64
}

// Thresholds are the tunable parameters of the structural gate. Two
// historical variants exist; Default is the canonical lenient one, Strict is
// kept for callers that want the tighter gate.
type Thresholds struct {
	BlackRatioMin float64 // frame must be at least this fraction near-black
	WhiteRatioMin float64 // exclusive lower bound on white coverage
	WhiteRatioMax float64 // exclusive upper bound on white coverage
	EdgeThreshold int     // Sobel L1 gradient magnitude counted as an edge
}

// Default returns the canonical gate parameters.
func Default() Thresholds {
	return Thresholds{
		BlackRatioMin: 0.5,
		WhiteRatioMin: 0.005,
		WhiteRatioMax: 0.4,
		EdgeThreshold: 128,
	}
}

// Strict returns the historical tighter gate variant.
func Strict() Thresholds {
	return Thresholds{
		BlackRatioMin: 0.7,
		WhiteRatioMin: 0.01,
		WhiteRatioMax: 0.3,
		EdgeThreshold: 128,
	}
}

// Luminance bands of the heuristic. A pixel is "near black" when its
// luminance falls in [0, blackBandMax) and "white" at whiteMin and above.
const (
	blackBandMax = 30
	whiteMin     = 200
)

// Confidence term weights: black dominance, distance of white coverage from
// the 10% optimum, and edge density as a proxy for text strokes.
const (
	blackWeight      = 0.4
	whiteWeight      = 0.4
	edgeWeight       = 0.2
	whiteOptimum     = 0.1
	whitePenaltySlop = 5.0
)

// Classifier scores frames against a fixed set of thresholds.
type Classifier struct {
	t Thresholds
}

func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{t: t}
}

// Classify scores a frame. The structural gate requires black dominance and
// a white coverage inside the configured band; frames failing the gate score
// zero. Gate-passing frames are scored by black ratio, proximity of white
// coverage to the optimum, and Sobel edge density. The white term can go
// negative before clamping, which legitimately zeroes confidence for
// off-target coverage even when the gate passed.
func (c *Classifier) Classify(f *video.Frame) Result {
	total := f.Width * f.Height
	if total == 0 || len(f.Pix) < total*3 {
		return Result{}
	}

	lum := luminancePlane(f)

	var blackCount, whiteCount int
	for _, v := range lum {
		if v < blackBandMax {
			blackCount++
		}
		if v >= whiteMin {
			whiteCount++
		}
	}

	res := Result{
		BlackRatio: float64(blackCount) / float64(total),
		WhiteRatio: float64(whiteCount) / float64(total),
	}

	if res.BlackRatio <= c.t.BlackRatioMin ||
		res.WhiteRatio <= c.t.WhiteRatioMin ||
		res.WhiteRatio >= c.t.WhiteRatioMax {
		return res
	}

	res.IsSlate = true
	res.EdgeRatio = edgeRatio(lum, f.Width, f.Height, c.t.EdgeThreshold)

	conf := res.BlackRatio*blackWeight +
		(1-whitePenaltySlop*abs(res.WhiteRatio-whiteOptimum))*whiteWeight +
		res.EdgeRatio*edgeWeight
	res.Confidence = clamp01(conf)
	return res
}

// luminancePlane converts packed RGB to 8-bit luminance using the integer
// BT.601 approximation (77R + 150G + 29B) / 256.
func luminancePlane(f *video.Frame) []uint8 {
	total := f.Width * f.Height
	lum := make([]uint8, total)
	for i := 0; i < total; i++ {
		r := int(f.Pix[i*3])
		g := int(f.Pix[i*3+1])
		b := int(f.Pix[i*3+2])
		lum[i] = uint8((77*r + 150*g + 29*b) >> 8)
	}
	return lum
}

// edgeRatio counts pixels whose Sobel L1 gradient magnitude exceeds the
// threshold. Border pixels are never edges.
func edgeRatio(lum []uint8, w, h, threshold int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	edges := 0
	for y := 1; y < h-1; y++ {
		row := y * w
		for x := 1; x < w-1; x++ {
			i := row + x
			gx := int(lum[i-w+1]) + 2*int(lum[i+1]) + int(lum[i+w+1]) -
				int(lum[i-w-1]) - 2*int(lum[i-1]) - int(lum[i+w-1])
			gy := int(lum[i+w-1]) + 2*int(lum[i+w]) + int(lum[i+w+1]) -
				int(lum[i-w-1]) - 2*int(lum[i-w]) - int(lum[i-w+1])
			if abs64(gx)+abs64(gy) > threshold {
				edges++
			}
		}
	}
	return float64(edges) / float64(w*h)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func abs64(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
