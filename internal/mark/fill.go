package mark

import (
	"image"

	"github.com/ironsheep/omr-grader/internal/imaging"
)

// Binarization parameters of the fill-ratio strategy. The neighbourhood of
// each box is at least fillBlock pixels and grows with the box.
const (
	fillBlock = 31
	fillC     = 5
)

// FillRatio marks the option with the greatest share of ink pixels. It pairs
// with explicit templates whose boxes hug the bubbles.
type FillRatio struct {
	// Threshold is the minimum ink fraction of a marked bubble.
	Threshold float64 `json:"fill_threshold"`

	// MinMargin is the minimum lead of the winner over the runner-up.
	MinMargin float64 `json:"min_margin"`
}

// DefaultFillRatio returns a threshold of 0.45 and a margin of 0.12.
func DefaultFillRatio() FillRatio {
	return FillRatio{Threshold: 0.45, MinMargin: 0.12}
}

// Name implements Strategy.
func (FillRatio) Name() string { return "fill" }

// Measure returns the ink fraction of every rectangle under an inverted
// adaptive mean threshold of the equalized image. Each rectangle is compared
// against a neighbourhood about twice its size, so a fully filled box keeps
// reading as ink at any scan resolution. Empty rectangles read as unmarked.
func (FillRatio) Measure(eq *image.Gray, rois [][]image.Rectangle) Signals {
	it := imaging.NewIntegral(eq)
	out := make(Signals, len(rois))
	for i, q := range rois {
		out[i] = make([]float64, len(q))
		for j, r := range q {
			if frac, ok := it.InkFraction(r, blockFor(r), fillC); ok {
				out[i][j] = frac
			}
		}
	}
	return out
}

// blockFor returns the odd neighbourhood size used for r.
func blockFor(r image.Rectangle) int {
	side := r.Dx()
	if r.Dy() > side {
		side = r.Dy()
	}
	if b := 2*side + 1; b > fillBlock {
		return b
	}
	return fillBlock
}

// Decide implements Strategy. The first option with the highest ratio is
// accepted when it reaches Threshold and leads the best of the others by at
// least MinMargin. A question with a single option is compared against 0.
func (f FillRatio) Decide(s Signals) []int {
	out := make([]int, len(s))
	for i, q := range s {
		out[i] = f.decide(q)
	}
	return out
}

func (f FillRatio) decide(vals []float64) int {
	if len(vals) == 0 {
		return -1
	}
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	second := 0.0
	for i, v := range vals {
		if i != best && v > second {
			second = v
		}
	}
	if vals[best] >= f.Threshold && vals[best]-second >= f.MinMargin {
		return best
	}
	return -1
}
