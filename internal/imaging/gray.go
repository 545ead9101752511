package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// Gray converts img to 8-bit grayscale with bounds starting at (0, 0).
//
// Color input goes through bild's luminance conversion. Gray input is copied
// unchanged so that repeated conversions are lossless.
func Gray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			src := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src[:b.Dx()])
		}
		return out
	}
	if b.Empty() {
		return image.NewGray(image.Rectangle{})
	}
	return redChannel(effect.Grayscale(ToNRGBA(img)))
}

// ToNRGBA returns an owned NRGBA copy of img with bounds starting at (0, 0).
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// RegionMean returns the mean intensity of g inside r.
//
// r is clipped to the image first. When nothing is left, empty is returned,
// which lets callers pick a value that reads as "no mark".
func RegionMean(g *image.Gray, r image.Rectangle, empty float64) float64 {
	r = r.Intersect(g.Bounds())
	if r.Empty() {
		return empty
	}
	var sum int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := g.Pix[g.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			sum += int(row[x])
		}
	}
	return float64(sum) / float64(r.Dx()*r.Dy())
}

// RegionFraction returns the fraction of non-zero pixels of a binary image
// inside r, or empty when the clipped rectangle has no area.
func RegionFraction(bin *image.Gray, r image.Rectangle, empty float64) float64 {
	r = r.Intersect(bin.Bounds())
	if r.Empty() {
		return empty
	}
	var on int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := bin.Pix[bin.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			if row[x] != 0 {
				on++
			}
		}
	}
	return float64(on) / float64(r.Dx()*r.Dy())
}

// Invert returns 255 - v for every pixel.
func Invert(g *image.Gray) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, g.Bounds().Dx(), g.Bounds().Dy()))
	b := g.Bounds()
	for y := 0; y < b.Dy(); y++ {
		src := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = 255 - src[x]
		}
	}
	return out
}
