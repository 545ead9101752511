package detection

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// binaryImage returns a w x h binary image with every rectangle in rects set
// to 255.
func binaryImage(w, h int, rects ...image.Rectangle) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				g.Pix[y*w+x] = 255
			}
		}
	}
	return g
}

func TestFindContours_Empty(t *testing.T) {
	assert.Empty(t, FindContours(binaryImage(20, 20), 1))
	assert.Empty(t, FindContours(image.NewGray(image.Rectangle{}), 1))
}

func TestFindContours_FilledRectangle(t *testing.T) {
	contours := FindContours(binaryImage(10, 10, image.Rect(1, 1, 4, 4)), 1)
	require.Len(t, contours, 1)

	c := contours[0]
	assert.Equal(t, 9, c.Pixels)
	assert.Equal(t, image.Rect(1, 1, 4, 4), c.Bounds)
	assert.Equal(t, []Point{
		{1, 1}, {2, 1}, {3, 1}, {3, 2}, {3, 3}, {2, 3}, {1, 3}, {1, 2},
	}, c.Points)
	assert.Equal(t, 4.0, c.Area())
}

func TestFindContours_SortedByAreaAndFiltered(t *testing.T) {
	bin := binaryImage(60, 40,
		image.Rect(2, 2, 8, 8),     // 6x6
		image.Rect(20, 5, 50, 35),  // 30x30
		image.Rect(55, 35, 56, 36), // single pixel
	)

	contours := FindContours(bin, 2)
	require.Len(t, contours, 2)
	assert.Equal(t, image.Rect(20, 5, 50, 35), contours[0].Bounds)
	assert.Equal(t, image.Rect(2, 2, 8, 8), contours[1].Bounds)
	assert.Equal(t, 29.0*29.0, contours[0].Area())
}

func TestFindContours_DiagonalConnectivity(t *testing.T) {
	bin := binaryImage(10, 10, image.Rect(2, 2, 3, 3), image.Rect(3, 3, 4, 4))
	contours := FindContours(bin, 1)
	require.Len(t, contours, 1)
	assert.Equal(t, 2, contours[0].Pixels)
}

func TestFindContours_Ring(t *testing.T) {
	// A hollow frame is one component; only its outer boundary is traced.
	bin := binaryImage(50, 50,
		image.Rect(5, 5, 45, 8), image.Rect(5, 42, 45, 45),
		image.Rect(5, 5, 8, 45), image.Rect(42, 5, 45, 45),
	)
	contours := FindContours(bin, 1)
	require.Len(t, contours, 1)
	assert.Equal(t, 39.0*39.0, contours[0].Area())
}

func TestFindContours_SubImageOffsets(t *testing.T) {
	bin := binaryImage(20, 20, image.Rect(10, 10, 13, 13))
	sub := bin.SubImage(image.Rect(5, 5, 20, 20)).(*image.Gray)

	contours := FindContours(sub, 1)
	require.Len(t, contours, 1)
	assert.Equal(t, image.Rect(10, 10, 13, 13), contours[0].Bounds)
	assert.Equal(t, Point{10, 10}, contours[0].Points[0])
}

func TestArcLength(t *testing.T) {
	square := []Point{{0, 0}, {4, 0}, {4, 3}, {0, 3}}
	assert.Equal(t, 14.0, ArcLength(square, true))
	assert.Equal(t, 11.0, ArcLength(square, false))
	assert.Equal(t, 0.0, ArcLength(square[:1], true))

	diag := []Point{{0, 0}, {3, 4}}
	assert.InDelta(t, 10.0, ArcLength(diag, true), 1e-9)
}

func TestArea(t *testing.T) {
	assert.Equal(t, 12.0, Area([]Point{{0, 0}, {4, 0}, {4, 3}, {0, 3}}))
	assert.Equal(t, 12.0, Area([]Point{{0, 3}, {4, 3}, {4, 0}, {0, 0}}), "orientation does not matter")
	assert.Equal(t, 0.0, Area([]Point{{0, 0}, {1, 1}}))
	assert.False(t, math.IsNaN(Area(nil)))
}
