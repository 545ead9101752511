package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGray_CopiesGrayInput(t *testing.T) {
	src := grayWithRect(8, 6, image.Rect(2, 2, 4, 4), 17)
	sub := src.SubImage(image.Rect(2, 2, 6, 5)).(*image.Gray)

	g := Gray(sub)
	assert.Equal(t, image.Rect(0, 0, 4, 3), g.Bounds())
	assert.Equal(t, uint8(17), g.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), g.GrayAt(3, 2).Y)

	g.Pix[0] = 99
	assert.Equal(t, uint8(17), src.GrayAt(2, 2).Y, "Gray must not alias its input")
}

func TestGray_ColorInput(t *testing.T) {
	g := Gray(solid(5, 5, color.White))
	assert.Equal(t, image.Rect(0, 0, 5, 5), g.Bounds())
	for _, v := range g.Pix {
		assert.GreaterOrEqual(t, v, uint8(254))
	}
	g = Gray(solid(5, 5, color.Black))
	for _, v := range g.Pix {
		assert.Equal(t, uint8(0), v)
	}
}

func TestRegionMeanAndFraction(t *testing.T) {
	g := grayWithRect(10, 10, image.Rect(0, 0, 5, 10), 0)

	assert.Equal(t, 0.0, RegionMean(g, image.Rect(0, 0, 5, 5), 255))
	assert.Equal(t, 127.5, RegionMean(g, image.Rect(3, 0, 7, 10), 255))
	assert.Equal(t, 255.0, RegionMean(g, image.Rect(4, 4, 4, 9), 255), "empty region falls back")
	assert.Equal(t, 255.0, RegionMean(g, image.Rect(20, 20, 30, 30), 255), "outside region falls back")

	assert.Equal(t, 0.5, RegionFraction(g, image.Rect(3, 0, 7, 10), 0))
	assert.Equal(t, 0.0, RegionFraction(g, image.Rectangle{}, 0))
}

func TestCLAHE_Uniform(t *testing.T) {
	g := grayWithRect(64, 64, image.Rectangle{}, 0)
	for i := range g.Pix {
		g.Pix[i] = 100
	}
	out := CLAHE(g, 2.0, 8, 8)
	first := out.Pix[0]
	for _, v := range out.Pix {
		require.Equal(t, first, v)
	}
}

func TestCLAHE_KeepsBinaryExtremes(t *testing.T) {
	g := grayWithRect(200, 200, image.Rect(40, 40, 60, 60), 0)
	out := CLAHE(g, 2.0, 8, 8)

	assert.Equal(t, g.Bounds(), out.Bounds())
	assert.Equal(t, uint8(255), out.GrayAt(150, 150).Y)
	assert.LessOrEqual(t, out.GrayAt(50, 50).Y, uint8(3))
}

func TestCLAHE_TinyImage(t *testing.T) {
	g := grayWithRect(3, 2, image.Rect(0, 0, 1, 1), 0)
	out := CLAHE(g, 2.0, 8, 8)
	assert.Equal(t, image.Rect(0, 0, 3, 2), out.Bounds())
}

func TestAdaptiveMean(t *testing.T) {
	g := grayWithRect(60, 60, image.Rect(20, 20, 40, 40), 0)
	bin := AdaptiveMean(g, 31, 5)

	assert.Equal(t, uint8(255), bin.GrayAt(5, 5).Y)
	assert.Equal(t, uint8(0), bin.GrayAt(30, 30).Y)
	assert.Equal(t, uint8(0), bin.GrayAt(20, 20).Y)

	inv := Invert(bin)
	assert.Equal(t, uint8(255), inv.GrayAt(30, 30).Y)
	assert.Equal(t, uint8(0), inv.GrayAt(5, 5).Y)
}

func TestIntegral_Mean(t *testing.T) {
	g := grayWithRect(10, 10, image.Rect(0, 0, 5, 10), 0)
	it := NewIntegral(g)

	assert.Equal(t, 0.0, it.Mean(1, 5, 3))
	assert.Equal(t, 255.0, it.Mean(8, 5, 3))
	assert.InDelta(t, 127.5, it.Mean(4, 5, 10), 0.01)
	// Clipped at the corner to a 2 x 2 window.
	assert.Equal(t, 0.0, it.Mean(0, 0, 3))
}

func TestInkFraction_SolidBlockAtAnySize(t *testing.T) {
	for _, side := range []int{20, 80, 160} {
		dark := image.Rect(side, side, 2*side, 2*side)
		g := grayWithRect(10*side, 10*side, dark, 0)
		it := NewIntegral(g)
		block := 2*side + 1

		frac, ok := it.InkFraction(dark, block, 5)
		require.True(t, ok)
		assert.Equal(t, 1.0, frac, "side %d", side)

		light := image.Rect(5*side, 5*side, 6*side, 6*side)
		frac, ok = it.InkFraction(light, block, 5)
		require.True(t, ok)
		assert.Equal(t, 0.0, frac, "side %d", side)
	}
}

func TestInkFraction_Empty(t *testing.T) {
	it := NewIntegral(grayWithRect(20, 20, image.Rectangle{}, 0))
	_, ok := it.InkFraction(image.Rect(30, 30, 40, 40), 31, 5)
	assert.False(t, ok)
	_, ok = it.InkFraction(image.Rect(5, 5, 5, 9), 31, 5)
	assert.False(t, ok)
}

func TestRotate_QuarterTurns(t *testing.T) {
	src := quadrants(40, 20)
	red := color.NRGBA{255, 0, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}

	r90 := Rotate(src, 90)
	require.Equal(t, image.Rect(0, 0, 20, 40), r90.Bounds())
	assert.Equal(t, blue, r90.NRGBAAt(0, 0), "clockwise turn brings bottom-left to top-left")
	assert.Equal(t, red, r90.NRGBAAt(19, 0))

	back := Rotate(r90, 270)
	assert.Equal(t, ToNRGBA(src).Pix, back.Pix)

	assert.Equal(t, Rotate(src, -90).Pix, Rotate(src, 270).Pix)
	assert.Equal(t, ToNRGBA(src).Pix, Rotate(src, 360).Pix)
}

func TestRotate_PositiveAngleIsClockwise(t *testing.T) {
	// A dot right of the centre (20, 20) moves down and to the right.
	src := grayWithRect(41, 41, image.Rect(29, 19, 32, 22), 0)
	out := Rotate(src, 45)

	assert.Equal(t, uint8(0), out.NRGBAAt(27, 27).R)
	assert.Equal(t, uint8(255), out.NRGBAAt(27, 13).R, "counter-clockwise position stays white")
}

func TestRotate_ArbitraryAngleReplicatesBorder(t *testing.T) {
	src := solid(30, 20, color.RGBA{10, 200, 30, 255})
	out := Rotate(src, 33)

	require.Equal(t, image.Rect(0, 0, 30, 20), out.Bounds())
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			require.Equal(t, color.NRGBA{10, 200, 30, 255}, out.NRGBAAt(x, y))
		}
	}
}

func TestRotate_DoesNotMutateInput(t *testing.T) {
	src := quadrants(10, 10)
	before := append([]uint8(nil), src.Pix...)
	_ = Rotate(src, 90)
	_ = Rotate(src, 12.5)
	assert.Equal(t, before, src.Pix)
}

func TestQuadToQuad_MapsCorners(t *testing.T) {
	from := [4]Point{{0, 0}, {99, 0}, {99, 49}, {0, 49}}
	to := [4]Point{{12, 8}, {180, 20}, {170, 140}, {5, 120}}

	m, ok := QuadToQuad(from, to)
	require.True(t, ok)
	for i := range from {
		p, ok := m.Apply(from[i])
		require.True(t, ok)
		assert.InDelta(t, to[i].X, p.X, 1e-6)
		assert.InDelta(t, to[i].Y, p.Y, 1e-6)
	}
}

func TestQuadToQuad_Degenerate(t *testing.T) {
	from := [4]Point{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	to := [4]Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	_, ok := QuadToQuad(from, to)
	assert.False(t, ok)
}

func TestWarpPerspective_Identity(t *testing.T) {
	src := quadrants(16, 12)
	id := Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

	out := WarpPerspective(src, id, 16, 12)
	assert.Equal(t, ToNRGBA(src).Pix, out.Pix)
}

func TestWarpPerspective_OutsideIsBlack(t *testing.T) {
	src := solid(10, 10, color.White)
	shift := Homography{1, 0, 100, 0, 1, 0, 0, 0, 1}

	out := WarpPerspective(src, shift, 5, 5)
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(2, 2))
}
