// Package align estimates a small translation that registers template
// option boxes onto the bubbles of a rectified sheet.
//
// The estimate is a calibration value. It is never applied implicitly:
// callers fold it into the template.Adjustment they pass to mark detection.
package align

import (
	"image"
	"math/rand"
	"sort"

	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/template"
)

// Options controls the offset search.
type Options struct {
	// SearchRatio is the half-width of the search window as a fraction of
	// the image size.
	SearchRatio float64 `json:"search_ratio"`

	// Steps is the number of evenly spaced horizontal candidates across
	// [-SearchRatio, SearchRatio].
	Steps int `json:"steps"`

	// YSteps is the number of vertical candidates. 1 keeps the vertical
	// offset at zero.
	YSteps int `json:"y_steps"`

	// MaxBoxes caps the number of option boxes sampled from the template.
	MaxBoxes int `json:"max_boxes"`

	// Seed makes the subsample reproducible when the template has more
	// than MaxBoxes options.
	Seed int64 `json:"seed"`
}

// DefaultOptions returns a ±2% horizontal search in 21 steps over at most
// 200 boxes.
func DefaultOptions() Options {
	return Options{
		SearchRatio: 0.02,
		Steps:       21,
		YSteps:      1,
		MaxBoxes:    200,
		Seed:        42,
	}
}

// Result is the outcome of an offset search.
type Result struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`

	// Score is the mean edge response of the winning candidate, 0..255.
	// It is -1 when no candidate had a non-empty box.
	Score float64 `json:"score"`

	// Boxes is the number of option boxes sampled.
	Boxes int `json:"boxes"`
}

// Adjustment returns the result as an offset-only template adjustment.
func (r Result) Adjustment() template.Adjustment {
	a := template.Identity()
	a.OffsetX = r.OffsetX
	a.OffsetY = r.OffsetY
	return a
}

// EstimateOffset returns the normalized (dx, dy) that best aligns tpl to
// img. See Estimate.
func EstimateOffset(img image.Image, tpl *template.Template, opts Options) (dx, dy float64) {
	r := Estimate(img, tpl, opts)
	return r.OffsetX, r.OffsetY
}

// Estimate searches for the translation that maximizes the mean vertical
// edge response inside the template's option boxes.
//
// The image is contrast-equalized with CLAHE (clip 2.0, 8x8 tiles) and
// reduced to a vertical edge map. Every candidate shift moves each sampled
// box, clamps it to [0, 1] and maps it to pixels; empty rectangles are left
// out of the average. The first candidate with the strictly highest average
// wins. A template without options yields a zero offset.
func Estimate(img image.Image, tpl *template.Template, opts Options) Result {
	boxes := sample(tpl, opts.MaxBoxes, opts.Seed)
	res := Result{Score: -1, Boxes: len(boxes)}
	if len(boxes) == 0 {
		return res
	}

	edges := imaging.VerticalEdges(imaging.CLAHE(imaging.Gray(img), 2.0, 8, 8))
	w, h := edges.Bounds().Dx(), edges.Bounds().Dy()

	for _, dx := range linspace(opts.SearchRatio, opts.Steps) {
		for _, dy := range linspace(opts.SearchRatio, opts.YSteps) {
			var sum float64
			var n int
			for _, b := range boxes {
				r := b.Shift(dx, dy).Rect(w, h)
				if r.Empty() {
					continue
				}
				sum += imaging.RegionMean(edges, r, 0)
				n++
			}
			if n == 0 {
				continue
			}
			if score := sum / float64(n); score > res.Score {
				res.Score, res.OffsetX, res.OffsetY = score, dx, dy
			}
		}
	}
	return res
}

// sample returns at most max option boxes of tpl in template order. Larger
// templates are subsampled with a seeded generator.
func sample(tpl *template.Template, max int, seed int64) []template.Box {
	if tpl == nil {
		return nil
	}
	boxes := tpl.Boxes()
	if max <= 0 || len(boxes) <= max {
		return boxes
	}

	idx := rand.New(rand.NewSource(seed)).Perm(len(boxes))[:max]
	sort.Ints(idx)
	out := make([]template.Box, max)
	for i, j := range idx {
		out[i] = boxes[j]
	}
	return out
}

// linspace returns n evenly spaced values over [-r, r]. With n <= 1 the
// only candidate is 0.
func linspace(r float64, n int) []float64 {
	if n <= 1 {
		return []float64{0}
	}
	out := make([]float64, n)
	step := 2 * r / float64(n-1)
	for i := range out {
		out[i] = -r + float64(i)*step
	}
	out[n-1] = r
	return out
}
