package grader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/omr-grader/internal/answerkey"
	"github.com/ironsheep/omr-grader/internal/sheet"
	"github.com/ironsheep/omr-grader/internal/template"
)

func page(w, h int, dark ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 220
	}
	for _, r := range dark {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: 30})
			}
		}
	}
	return img
}

func twoByTwo() *template.Template {
	return &template.Template{Questions: []template.Question{
		{Index: 1, Options: []template.Option{
			{Label: "a", Box: template.Box{0.1, 0.1, 0.2, 0.2}},
			{Label: "b", Box: template.Box{0.4, 0.1, 0.5, 0.2}},
		}},
		{Index: 2, Options: []template.Option{
			{Label: "a", Box: template.Box{0.1, 0.6, 0.2, 0.7}},
			{Label: "b", Box: template.Box{0.4, 0.6, 0.5, 0.7}},
		}},
	}}
}

func newGrader() *Grader {
	return New(sheet.Default(), zerolog.Nop())
}

// direct skips orientation and rectification so that template boxes land on
// known pixels.
func direct(tpl *template.Template) Options {
	opts := DefaultOptions()
	opts.Template = tpl
	opts.SkipOrientation = true
	opts.SkipRectify = true
	return opts
}

func TestGrade_UnsupportedVersionFirst(t *testing.T) {
	opts := DefaultOptions()
	opts.Version = "Z"

	_, err := newGrader().Grade(context.Background(), nil, nil, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sheet.ErrUnsupportedVersion))
}

func TestGrade_EmptyImage(t *testing.T) {
	_, err := newGrader().Grade(context.Background(), image.NewGray(image.Rect(0, 0, 0, 0)), nil, DefaultOptions())
	assert.True(t, errors.Is(err, ErrEmptyImage))
}

func TestGrade_TemplateUsesFill(t *testing.T) {
	img := page(200, 200, image.Rect(20, 20, 40, 40))
	key := answerkey.Key{1: "a", 2: "b"}

	opts := direct(twoByTwo())
	opts.Overlay = true
	res, err := newGrader().Grade(context.Background(), img, key, opts)
	require.NoError(t, err)

	assert.Equal(t, "fill", res.Strategy)
	assert.Equal(t, []string{"a", ""}, res.Answers)
	assert.Equal(t, template.Identity(), res.Adjustment)
	require.NotNil(t, res.Report)
	assert.Equal(t, 1, res.Report.Total)
	python, _ := res.Report.Subject("Python")
	assert.Equal(t, 1, python)
	require.Len(t, res.Columns, 5)
	assert.Equal(t, "1 - a", res.Columns[0].Cells[0])
	require.NotNil(t, res.Overlay)
	assert.Equal(t, img.Bounds(), res.Overlay.Bounds())
}

func TestGrade_ExplicitStrategy(t *testing.T) {
	img := page(200, 200, image.Rect(20, 20, 40, 40))
	opts := direct(twoByTwo())
	opts.Strategy = StrategyGap

	res, err := newGrader().Grade(context.Background(), img, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "gap", res.Strategy)
	assert.Equal(t, []string{"a", ""}, res.Answers)
	assert.Nil(t, res.Report)
	assert.Nil(t, res.Overlay)

	opts.Strategy = "nope"
	_, err = newGrader().Grade(context.Background(), img, nil, opts)
	assert.Error(t, err)
}

func TestGrade_SyntheticGridUsesGap(t *testing.T) {
	res, err := newGrader().Grade(context.Background(), page(160, 200), nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "gap", res.Strategy)
	assert.Equal(t, 0, res.Rotation)
	assert.False(t, res.Rectified)
	require.Len(t, res.Answers, 100)
	for _, a := range res.Answers {
		assert.Equal(t, "", a)
	}
}

func TestGrade_Align(t *testing.T) {
	img := page(200, 200, image.Rect(20, 20, 40, 40))
	opts := direct(twoByTwo())
	opts.Align = true

	res, err := newGrader().Grade(context.Background(), img, nil, opts)
	require.NoError(t, err)
	require.NotNil(t, res.Alignment)
	assert.Equal(t, 4, res.Alignment.Boxes)
	assert.InDelta(t, 0, res.Alignment.OffsetY, 0)
	assert.Equal(t, res.Alignment.OffsetX, res.Adjustment.OffsetX)
	assert.LessOrEqual(t, res.Adjustment.OffsetX, 0.02)
	assert.GreaterOrEqual(t, res.Adjustment.OffsetX, -0.02)
}

func TestGrade_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newGrader().Grade(ctx, page(20, 20), nil, DefaultOptions())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGrade_DoesNotMutateInput(t *testing.T) {
	img := page(120, 90, image.Rect(10, 10, 30, 30))
	before := append([]uint8(nil), img.Pix...)
	_, err := newGrader().Grade(context.Background(), img, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, before, img.Pix)
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestBatch_OrderAndPerItemErrors(t *testing.T) {
	dir := t.TempDir()
	marked := page(200, 200, image.Rect(20, 20, 40, 40))
	good := writePNG(t, dir, "good.png", marked)
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))

	items := []Item{
		{Path: good},
		{Path: bad},
		{ID: "in-memory", Image: page(200, 200, image.Rect(80, 20, 100, 40))},
		{Path: filepath.Join(dir, "missing.png")},
		{Image: image.NewGray(image.Rect(0, 0, 0, 0))},
	}

	res, err := newGrader().Batch(context.Background(), items, answerkey.Key{1: "a"}, direct(twoByTwo()), BatchOptions{Workers: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, res.Items, 5)

	assert.Equal(t, "good.png", res.Items[0].ID)
	require.NoError(t, res.Items[0].Err)
	assert.Equal(t, []string{"a", ""}, res.Items[0].Result.Answers)
	assert.Equal(t, 1, res.Items[0].Result.Report.Total)

	assert.Equal(t, "bad.png", res.Items[1].ID)
	assert.Error(t, res.Items[1].Err)
	assert.Nil(t, res.Items[1].Result)
	assert.True(t, strings.Contains(res.Items[1].Error, "decode"))

	assert.Equal(t, "in-memory", res.Items[2].ID)
	require.NoError(t, res.Items[2].Err)
	assert.Equal(t, []string{"b", ""}, res.Items[2].Result.Answers)

	assert.Equal(t, "missing.png", res.Items[3].ID)
	assert.Error(t, res.Items[3].Err)

	assert.Equal(t, "5", res.Items[4].ID)
	assert.True(t, errors.Is(res.Items[4].Err, ErrEmptyImage))

	assert.Equal(t, 3, res.Failed())
}

func TestBatch_Cap(t *testing.T) {
	items := make([]Item, 5)
	for i := range items {
		items[i] = Item{Image: page(40, 40)}
	}
	res, err := newGrader().Batch(context.Background(), items, nil, direct(twoByTwo()), BatchOptions{Workers: 2, MaxBatch: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, 0, res.Failed())
}

func TestBatch_UnsupportedVersion(t *testing.T) {
	opts := DefaultOptions()
	opts.Version = "E"
	_, err := newGrader().Batch(context.Background(), []Item{{Image: page(10, 10)}}, nil, opts, BatchOptions{})
	assert.True(t, errors.Is(err, sheet.ErrUnsupportedVersion))
}

func TestBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := make([]Item, 10)
	for i := range items {
		items[i] = Item{Image: page(40, 40)}
	}
	res, err := newGrader().Batch(ctx, items, nil, direct(twoByTwo()), BatchOptions{Workers: 2})
	require.NoError(t, err)
	require.Len(t, res.Items, 10)
	for _, it := range res.Items {
		assert.True(t, errors.Is(it.Err, context.Canceled), it.ID)
	}
}

func TestBatch_Empty(t *testing.T) {
	res, err := newGrader().Batch(context.Background(), nil, nil, DefaultOptions(), BatchOptions{Workers: 4})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}
