package preprocess

import (
	"image"
	"math"

	"github.com/ironsheep/omr-grader/internal/detection"
	"github.com/ironsheep/omr-grader/internal/imaging"
)

// Rectifier parameters.
const (
	blurRadius     = 2    // 5x5 pre-blur
	thresholdBlock = 31   // adaptive threshold neighbourhood
	thresholdC     = 5    // adaptive threshold offset
	approxFraction = 0.02 // polygon tolerance relative to perimeter
)

// Quad is the located sheet outline in source pixel coordinates.
type Quad struct {
	TopLeft     imaging.Point `json:"top_left"`
	TopRight    imaging.Point `json:"top_right"`
	BottomRight imaging.Point `json:"bottom_right"`
	BottomLeft  imaging.Point `json:"bottom_left"`
}

// FindSheet locates the four corners of the sheet outline in img.
//
// The image is blurred, binarized against its local mean, inverted so that
// dark strokes become foreground, and reduced to the largest external
// contour. ok is false when there is no contour or the contour does not
// simplify to exactly four vertices.
func FindSheet(img image.Image) (Quad, bool) {
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return Quad{}, false
	}

	gray := imaging.Blur(imaging.Gray(img), blurRadius)
	bin := imaging.Invert(imaging.AdaptiveMean(gray, thresholdBlock, thresholdC))

	contours := detection.FindContours(bin, 1)
	if len(contours) == 0 {
		return Quad{}, false
	}

	pts := contours[0].Points
	approx := detection.ApproxPolygon(pts, approxFraction*detection.ArcLength(pts, true))
	if len(approx) != 4 {
		return Quad{}, false
	}

	c := detection.OrderCorners([4]detection.Point{approx[0], approx[1], approx[2], approx[3]})
	// Contours are in Gray's zero-origin space.
	toPoint := func(p detection.Point) imaging.Point {
		return imaging.Point{X: float64(p.X + b.Min.X), Y: float64(p.Y + b.Min.Y)}
	}
	return Quad{
		TopLeft:     toPoint(c.TopLeft),
		TopRight:    toPoint(c.TopRight),
		BottomRight: toPoint(c.BottomRight),
		BottomLeft:  toPoint(c.BottomLeft),
	}, true
}

// RectifyPerspective warps the sheet outline found by FindSheet onto an
// axis-aligned rectangle.
//
// The output width is the longer of the top and bottom edges, the height
// the longer of the left and right edges. The original pixels are sampled
// bilinearly, never the thresholded ones. On any failure a copy of img is
// returned with ok false; the call never fails outright.
func RectifyPerspective(img image.Image) (out *image.NRGBA, ok bool) {
	q, found := FindSheet(img)
	if !found {
		return imaging.ToNRGBA(img), false
	}

	w := int(math.Max(distance(q.BottomRight, q.BottomLeft), distance(q.TopRight, q.TopLeft)))
	h := int(math.Max(distance(q.TopRight, q.BottomRight), distance(q.TopLeft, q.BottomLeft)))
	if w < 2 || h < 2 {
		return imaging.ToNRGBA(img), false
	}

	dst := [4]imaging.Point{
		{X: 0, Y: 0},
		{X: float64(w - 1), Y: 0},
		{X: float64(w - 1), Y: float64(h - 1)},
		{X: 0, Y: float64(h - 1)},
	}
	src := [4]imaging.Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}

	// The warp samples backwards, so map the output rectangle onto the source.
	inv, valid := imaging.QuadToQuad(dst, src)
	if !valid {
		return imaging.ToNRGBA(img), false
	}
	// Sampling happens in the source's zero-origin copy.
	b := img.Bounds()
	shift := imaging.Homography{1, 0, -float64(b.Min.X), 0, 1, -float64(b.Min.Y), 0, 0, 1}
	return imaging.WarpPerspective(img, shift.Mul(inv), w, h), true
}

func distance(a, b imaging.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
