package imaging

import (
	"image"
	"math"
)

// CLAHE applies contrast-limited adaptive histogram equalization.
//
// The image is split into tilesX x tilesY tiles. Each tile gets its own
// equalization table built from a histogram whose bins are capped at
// clipLimit times the average bin height; the clipped excess is spread back
// over all bins. Output pixels blend the tables of the four nearest tile
// centres bilinearly, which removes seams between tiles.
//
// Parameters:
//   - src: grayscale input, any bounds.
//   - clipLimit: contrast cap relative to a flat histogram. 2.0 is typical.
//   - tilesX, tilesY: tile grid. Reduced to the image size for tiny images.
//
// The result has bounds starting at (0, 0).
func CLAHE(src *image.Gray, clipLimit float64, tilesX, tilesY int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	tilesX = clamp(tilesX, 1, w)
	tilesY = clamp(tilesY, 1, h)

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		y0, y1 := ty*h/tilesY, (ty+1)*h/tilesY
		for tx := 0; tx < tilesX; tx++ {
			x0, x1 := tx*w/tilesX, (tx+1)*w/tilesX
			tile := image.Rect(b.Min.X+x0, b.Min.Y+y0, b.Min.X+x1, b.Min.Y+y1)
			luts[ty*tilesX+tx] = tileLUT(src, tile, clipLimit)
		}
	}

	tw := float64(w) / float64(tilesX)
	th := float64(h) / float64(tilesY)

	// Horizontal neighbours and weights only depend on x.
	xl := make([]int, w)
	xr := make([]int, w)
	xa := make([]float64, w)
	for x := 0; x < w; x++ {
		f := float64(x)/tw - 0.5
		t1 := int(math.Floor(f))
		xa[x] = f - float64(t1)
		xl[x] = clamp(t1, 0, tilesX-1)
		xr[x] = clamp(t1+1, 0, tilesX-1)
	}

	for y := 0; y < h; y++ {
		f := float64(y)/th - 0.5
		t1 := int(math.Floor(f))
		ya := f - float64(t1)
		top := clamp(t1, 0, tilesY-1) * tilesX
		bot := clamp(t1+1, 0, tilesY-1) * tilesX

		in := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			v := in[x]
			lt := float64(luts[top+xl[x]][v])
			rt := float64(luts[top+xr[x]][v])
			lb := float64(luts[bot+xl[x]][v])
			rb := float64(luts[bot+xr[x]][v])
			res := (lt*(1-xa[x])+rt*xa[x])*(1-ya) + (lb*(1-xa[x])+rb*xa[x])*ya
			out[x] = uint8(math.Min(255, math.Round(res)))
		}
	}
	return dst
}

// tileLUT builds the clipped equalization table of one tile.
func tileLUT(src *image.Gray, r image.Rectangle, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := src.Pix[src.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			hist[row[x]]++
		}
	}

	n := r.Dx() * r.Dy()
	var lut [256]uint8
	if n == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	if clipLimit > 0 {
		limit := int(clipLimit * float64(n) / 256)
		if limit < 1 {
			limit = 1
		}
		clipped := 0
		for i := range hist {
			if hist[i] > limit {
				clipped += hist[i] - limit
				hist[i] = limit
			}
		}
		batch := clipped / 256
		residual := clipped - batch*256
		for i := range hist {
			hist[i] += batch
		}
		if residual > 0 {
			step := 256 / residual
			if step < 1 {
				step = 1
			}
			for i := 0; i < 256 && residual > 0; i += step {
				hist[i]++
				residual--
			}
		}
	}

	scale := 255.0 / float64(n)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(math.Min(255, math.Round(float64(sum)*scale)))
	}
	return lut
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
