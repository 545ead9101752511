package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Rotate returns a copy of img rotated clockwise by degrees.
//
// Multiples of 90 are exact pixel permutations (width and height swap for
// 90 and 270). Any other angle rotates about the centre (w/2, h/2) with
// bilinear sampling into an image of the same size; pixels that fall
// outside the source take the nearest edge pixel.
//
// Positive angles turn clockwise on screen. This is the opposite sense of
// OpenCV's getRotationMatrix2D, where positive angles turn counter-clockwise.
func Rotate(img image.Image, degrees float64) *image.NRGBA {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	// imaging's quarter turns are counter-clockwise.
	switch d {
	case 0:
		return imaging.Clone(img)
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return rotateReplicate(ToNRGBA(img), d)
}

func rotateReplicate(src *image.NRGBA, degrees float64) *image.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	theta := degrees * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	cx, cy := float64(w/2), float64(h/2)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			// Inverse of a clockwise turn in y-down coordinates.
			sx := cx + cos*dx + sin*dy
			sy := cy - sin*dx + cos*dy
			dst.SetNRGBA(x, y, bilinear(src, sx, sy, true))
		}
	}
	return dst
}

// bilinear samples src at (fx, fy). With replicate set, coordinates outside
// the image clamp to the border; otherwise they return opaque black.
func bilinear(src *image.NRGBA, fx, fy float64, replicate bool) color.NRGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if !replicate && (fx < 0 || fy < 0 || fx > float64(w-1) || fy > float64(h-1)) {
		return color.NRGBA{A: 255}
	}
	fx = math.Max(0, math.Min(fx, float64(w-1)))
	fy = math.Max(0, math.Min(fy, float64(h-1)))

	x0, y0 := int(fx), int(fy)
	x1, y1 := clamp(x0+1, 0, w-1), clamp(y0+1, 0, h-1)
	ax, ay := fx-float64(x0), fy-float64(y0)

	p00 := src.Pix[src.PixOffset(x0, y0):]
	p10 := src.Pix[src.PixOffset(x1, y0):]
	p01 := src.Pix[src.PixOffset(x0, y1):]
	p11 := src.Pix[src.PixOffset(x1, y1):]

	var c [4]uint8
	for i := 0; i < 4; i++ {
		top := float64(p00[i])*(1-ax) + float64(p10[i])*ax
		bot := float64(p01[i])*(1-ax) + float64(p11[i])*ax
		c[i] = uint8(math.Min(255, math.Round(top*(1-ay)+bot*ay)))
	}
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}
