package imaging

import (
	"image"
	"math"
)

// Canny returns a binary edge map of src: 255 on edges, 0 elsewhere.
//
// Parameters:
//   - src: grayscale input with values 0..255.
//   - low: gradients above this value are kept when connected to a strong edge.
//   - high: gradients above this value are always edges.
//
// Thresholds apply to the L1 Sobel magnitude |Gx| + |Gy| on the raw 0..255
// scale, so typical values are in the tens to hundreds (60/180 for sheet
// orientation).
//
// # Algorithm
//
//  1. Gradient computation: 3x3 Sobel operators for X and Y
//  2. Non-maximum suppression: keep only local maxima along the gradient
//     direction, thinning edges to one pixel
//  3. Hysteresis: strong pixels seed an 8-connected flood that accepts
//     every weak pixel it reaches
func Canny(src *image.Gray, low, high float64) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w < 3 || h < 3 {
		return out
	}

	gx, gy := sobel(src)
	mag := make([]float64, w*h)
	for i := range mag {
		mag[i] = math.Abs(gx[i]) + math.Abs(gy[i])
	}

	// Non-maximum suppression
	nms := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}

			angle := math.Atan2(gy[i], gx[i])
			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1, n2 = mag[i-1], mag[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1, n2 = mag[i-w-1], mag[i+w+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1, n2 = mag[i-w], mag[i+w]
			default:
				n1, n2 = mag[i-w+1], mag[i+w-1]
			}

			if m >= n1 && m >= n2 {
				nms[i] = m
			}
		}
	}

	// Hysteresis
	stack := make([]int, 0, 256)
	for i, m := range nms {
		if m > high {
			out.Pix[i] = 255
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if out.Pix[j] == 0 && nms[j] > low {
					out.Pix[j] = 255
					stack = append(stack, j)
				}
			}
		}
	}

	return out
}

// SobelX returns the signed horizontal 3x3 Sobel response of src as a
// row-major slice of Dx()*Dy() values. Borders replicate the edge pixels.
func SobelX(src *image.Gray) []float64 {
	gx, _ := sobel(src)
	return gx
}

// MeanAbs returns the mean absolute value of vals, 0 for an empty slice.
func MeanAbs(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += math.Abs(v)
	}
	return sum / float64(len(vals))
}

// VerticalEdges returns |SobelX| scaled so that the strongest response maps
// to 255. Vertical strokes such as bubble borders light up; horizontal ones
// do not. A flat image yields all zeros.
func VerticalEdges(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	gx := SobelX(src)

	var peak float64
	for i, v := range gx {
		gx[i] = math.Abs(v)
		if gx[i] > peak {
			peak = gx[i]
		}
	}
	scale := 255.0 / (peak + 1e-6)
	for i, v := range gx {
		out.Pix[i] = uint8(v * scale)
	}
	return out
}

// sobel computes both 3x3 Sobel gradients with replicated borders.
func sobel(src *image.Gray) (gx, gy []float64) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	gx = make([]float64, w*h)
	gy = make([]float64, w*h)
	if w == 0 || h == 0 {
		return gx, gy
	}

	at := func(x, y int) float64 {
		x = clamp(x, 0, w-1)
		y = clamp(y, 0, h-1)
		return float64(src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tl, t, tr := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			l, r := at(x-1, y), at(x+1, y)
			bl, bm, br := at(x-1, y+1), at(x, y+1), at(x+1, y+1)

			gx[y*w+x] = (tr + 2*r + br) - (tl + 2*l + bl)
			gy[y*w+x] = (bl + 2*bm + br) - (tl + 2*t + tr)
		}
	}
	return gx, gy
}
