package align

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/omr-grader/internal/template"
)

// lineSheet returns a white w x h image with 2px dark vertical lines at xs.
func lineSheet(w, h int, xs ...int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
		for _, lx := range xs {
			img.Set(lx, y, color.Black)
			img.Set(lx+1, y, color.Black)
		}
	}
	return img
}

// lineTemplate places a 4px box starting at x-1-shift for every line x, so
// the boxes only straddle the lines after moving right by shift pixels.
func lineTemplate(w int, shift int, xs ...int) *template.Template {
	tpl := &template.Template{}
	for i, lx := range xs {
		x0 := float64(lx-1-shift) / float64(w)
		x1 := float64(lx+3-shift) / float64(w)
		tpl.Questions = append(tpl.Questions, template.Question{
			Index:   i + 1,
			Options: []template.Option{{Label: "a", Box: template.Box{x0, 0.2, x1, 0.8}}},
		})
	}
	return tpl
}

func TestEstimateOffset_FindsHorizontalShift(t *testing.T) {
	xs := []int{100, 180, 260, 340}
	img := lineSheet(500, 200, xs...)
	tpl := lineTemplate(500, 5, xs...)

	dx, dy := EstimateOffset(img, tpl, DefaultOptions())
	assert.InDelta(t, 0.01, dx, 0.0025)
	assert.Equal(t, 0.0, dy)
}

func TestEstimateOffset_NegativeShift(t *testing.T) {
	xs := []int{120, 220, 320}
	img := lineSheet(500, 200, xs...)
	tpl := lineTemplate(500, -7, xs...)

	dx, _ := EstimateOffset(img, tpl, DefaultOptions())
	assert.InDelta(t, -0.014, dx, 0.0025)
}

func TestEstimateOffset_NoOptions(t *testing.T) {
	img := lineSheet(100, 100, 50)

	dx, dy := EstimateOffset(img, &template.Template{}, DefaultOptions())
	assert.Equal(t, 0.0, dx)
	assert.Equal(t, 0.0, dy)

	dx, dy = EstimateOffset(img, nil, DefaultOptions())
	assert.Equal(t, 0.0, dx)
	assert.Equal(t, 0.0, dy)
}

func TestEstimate_SubsampleIsReproducible(t *testing.T) {
	tpl := &template.Template{}
	for q := 1; q <= 100; q++ {
		var opts []template.Option
		for j, label := range []string{"a", "b", "c"} {
			x := 0.1 + 0.2*float64(j)
			y := 0.005 + 0.009*float64(q)
			opts = append(opts, template.Option{Label: label, Box: template.Box{x, y, x + 0.05, y + 0.006}})
		}
		tpl.Questions = append(tpl.Questions, template.Question{Index: q, Options: opts})
	}
	img := lineSheet(300, 300, 40, 100, 160)

	first := Estimate(img, tpl, DefaultOptions())
	second := Estimate(img, tpl, DefaultOptions())
	assert.Equal(t, 200, first.Boxes)
	assert.Equal(t, first, second)
}

func TestSample(t *testing.T) {
	tpl := &template.Template{}
	for q := 1; q <= 10; q++ {
		tpl.Questions = append(tpl.Questions, template.Question{
			Index:   q,
			Options: []template.Option{{Label: "a", Box: template.Box{float64(q) / 100, 0, 0.5, 0.5}}},
		})
	}

	assert.Len(t, sample(tpl, 200, 42), 10)

	picked := sample(tpl, 4, 42)
	require.Len(t, picked, 4)
	for i := 1; i < len(picked); i++ {
		assert.Less(t, picked[i-1][0], picked[i][0], "subsample keeps template order")
	}
	assert.Equal(t, picked, sample(tpl, 4, 42))
}

func TestLinspace(t *testing.T) {
	xs := linspace(0.02, 21)
	require.Len(t, xs, 21)
	assert.Equal(t, -0.02, xs[0])
	assert.Equal(t, 0.02, xs[20])
	assert.InDelta(t, 0.0, xs[10], 1e-12)
	assert.InDelta(t, 0.002, xs[11]-xs[10], 1e-12)

	assert.Equal(t, []float64{0}, linspace(0.02, 1))
	assert.Equal(t, []float64{0}, linspace(0.02, 0))
}

func TestResult_Adjustment(t *testing.T) {
	a := Result{OffsetX: 0.01}.Adjustment()
	assert.Equal(t, template.Adjustment{ScaleX: 1, ScaleY: 1, OffsetX: 0.01}, a)
}
