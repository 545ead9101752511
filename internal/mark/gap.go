package mark

import (
	"image"
	"sort"

	"github.com/ironsheep/omr-grader/internal/imaging"
)

// IntensityGap marks the darkest option per question, using thresholds
// placed in the widest gap of the intensity distribution. It needs no
// tuning per sheet and pairs with the synthetic grid.
type IntensityGap struct {
	GlobalLooseness int     `json:"global_looseness"`
	GlobalMinJump   float64 `json:"global_min_jump"`
	GlobalDefault   float64 `json:"global_default"`
	LocalLooseness  int     `json:"local_looseness"`
	LocalMinJump    float64 `json:"local_min_jump"`

	// Margin is the minimum intensity difference between the darkest and
	// the second darkest candidate. Closer pairs are ambiguous.
	Margin float64 `json:"margin"`
}

// DefaultIntensityGap returns the pool-wide (3, 6, 160) and per-question
// (1, 4) threshold passes with an ambiguity margin of 6.
func DefaultIntensityGap() IntensityGap {
	return IntensityGap{
		GlobalLooseness: 3,
		GlobalMinJump:   6,
		GlobalDefault:   160,
		LocalLooseness:  1,
		LocalMinJump:    4,
		Margin:          6,
	}
}

// Name implements Strategy.
func (IntensityGap) Name() string { return "gap" }

// Measure returns the mean equalized intensity of every option rectangle.
// Empty rectangles read as white.
func (IntensityGap) Measure(eq *image.Gray, rois [][]image.Rectangle) Signals {
	out := make(Signals, len(rois))
	for i, q := range rois {
		out[i] = make([]float64, len(q))
		for j, r := range q {
			out[i][j] = imaging.RegionMean(eq, r, 255)
		}
	}
	return out
}

// Decide implements Strategy. A global threshold is computed over every
// option of the sheet and used as the fallback of each question's own
// threshold. Among the options at or below the local threshold the darkest
// wins, unless the runner-up is within Margin.
func (g IntensityGap) Decide(s Signals) []int {
	var pool []float64
	for _, q := range s {
		pool = append(pool, q...)
	}
	global := largestGapThreshold(pool, g.GlobalLooseness, g.GlobalMinJump, g.GlobalDefault)

	out := make([]int, len(s))
	for i, q := range s {
		local := largestGapThreshold(q, g.LocalLooseness, g.LocalMinJump, global)
		out[i] = darkest(q, local, g.Margin)
	}
	return out
}

// darkest returns the index of the lowest value at or below thr, or -1 when
// none qualifies or the next lowest qualifying value is within margin.
func darkest(vals []float64, thr, margin float64) int {
	best, second := -1, -1
	for i, v := range vals {
		if v > thr {
			continue
		}
		switch {
		case best < 0 || v < vals[best]:
			best, second = i, best
		case second < 0 || v < vals[second]:
			second = i
		}
	}
	if best < 0 {
		return -1
	}
	if second >= 0 && vals[second]-vals[best] < margin {
		return -1
	}
	return best
}

// largestGapThreshold sorts vals and looks for the widest jump
// vs[i+span]-vs[i-span] over the interior positions, where
// span = max(1, (looseness+1)/2). Only jumps larger than minJump count. The
// threshold is the midpoint of the widest such jump, or def if there is
// none.
func largestGapThreshold(vals []float64, looseness int, minJump, def float64) float64 {
	if len(vals) == 0 {
		return def
	}
	vs := append([]float64(nil), vals...)
	sort.Float64s(vs)

	span := (looseness + 1) / 2
	if span < 1 {
		span = 1
	}

	maxJump, thr := minJump, def
	for i := span; i < len(vs)-span; i++ {
		if jump := vs[i+span] - vs[i-span]; jump > maxJump {
			maxJump = jump
			thr = vs[i-span] + jump/2
		}
	}
	return thr
}
