package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
)

// Blur applies a separable Gaussian blur with bild. The kernel spans
// 2*radius+1 pixels and edge pixels are extended.
func Blur(src *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return Gray(src)
	}
	return redChannel(blur.Gaussian(src, radius))
}

// Integral is a summed-area table over a gray image. Window means read from
// it cost the same for every window size.
type Integral struct {
	src  *image.Gray
	w, h int
	sum  []int64
}

// NewIntegral builds the summed-area table of src.
func NewIntegral(src *image.Gray) *Integral {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	// sum[(y+1)*(w+1)+(x+1)] holds the sum of src over [0,x] x [0,y].
	stride := w + 1
	sum := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		var acc int64
		for x := 0; x < w; x++ {
			acc += int64(row[x])
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + acc
		}
	}
	return &Integral{src: src, w: w, h: h, sum: sum}
}

// Mean returns the mean of the block x block window centred on (x, y),
// clipped to the image. Coordinates are relative to the image origin.
func (it *Integral) Mean(x, y, block int) float64 {
	half := block / 2
	x0, x1 := clamp(x-half, 0, it.w-1), clamp(x+half, 0, it.w-1)+1
	y0, y1 := clamp(y-half, 0, it.h-1), clamp(y+half, 0, it.h-1)+1
	stride := it.w + 1
	s := it.sum[y1*stride+x1] - it.sum[y0*stride+x1] - it.sum[y1*stride+x0] + it.sum[y0*stride+x0]
	return float64(s) / float64((x1-x0)*(y1-y0))
}

// AdaptiveMean binarizes src against the mean of a block x block
// neighbourhood: a pixel becomes 255 when it is brighter than mean - c and 0
// otherwise. Near the borders the window is clipped to the image.
func AdaptiveMean(src *image.Gray, block int, c float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	it := NewIntegral(src)
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			if float64(row[x]) > it.Mean(x, y, block)-c {
				dst[x] = 255
			}
		}
	}
	return out
}

// InkFraction returns the share of pixels inside r that are at or below the
// mean of their block x block neighbourhood minus c. The neighbourhood
// extends past r into the page, so a uniformly dark r on a light page reads
// as ink as long as block is about twice the size of r.
//
// r is in image coordinates and clipped to the image. ok is false when
// nothing is left.
func (it *Integral) InkFraction(r image.Rectangle, block int, c float64) (frac float64, ok bool) {
	b := it.src.Bounds()
	r = r.Intersect(b)
	if r.Empty() {
		return 0, false
	}
	var on int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := it.src.Pix[it.src.PixOffset(r.Min.X, y):]
		for i := 0; i < r.Dx(); i++ {
			if float64(row[i]) <= it.Mean(r.Min.X+i-b.Min.X, y-b.Min.Y, block)-c {
				on++
			}
		}
	}
	return float64(on) / float64(r.Dx()*r.Dy()), true
}

// redChannel extracts the R channel of an opaque gray-valued RGBA image.
func redChannel(rgba *image.RGBA) *image.Gray {
	b := rgba.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[x*4]
		}
	}
	return out
}
