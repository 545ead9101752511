package imaging

import (
	"image"
	"math"
)

// Point is a sub-pixel image position.
type Point struct {
	X, Y float64
}

// Homography is a row-major 3x3 projective transform:
//
//	x' = (h0*x + h1*y + h2) / (h6*x + h7*y + h8)
//	y' = (h3*x + h4*y + h5) / (h6*x + h7*y + h8)
type Homography [9]float64

// Apply maps p. ok is false when p lands on the line at infinity.
func (m Homography) Apply(p Point) (Point, bool) {
	d := m[6]*p.X + m[7]*p.Y + m[8]
	if math.Abs(d) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (m[0]*p.X + m[1]*p.Y + m[2]) / d,
		Y: (m[3]*p.X + m[4]*p.Y + m[5]) / d,
	}, true
}

// Mul returns m·n, the transform that applies n first and then m.
func (m Homography) Mul(n Homography) Homography {
	var r Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = m[i*3]*n[j] + m[i*3+1]*n[3+j] + m[i*3+2]*n[6+j]
		}
	}
	return r
}

// Adjugate returns the adjugate of m. For a projective transform it is the
// inverse up to scale, which is all that matters once the result is
// dehomogenized.
func (m Homography) Adjugate() Homography {
	return Homography{
		m[4]*m[8] - m[5]*m[7], m[2]*m[7] - m[1]*m[8], m[1]*m[5] - m[2]*m[4],
		m[5]*m[6] - m[3]*m[8], m[0]*m[8] - m[2]*m[6], m[2]*m[3] - m[0]*m[5],
		m[3]*m[7] - m[4]*m[6], m[1]*m[6] - m[0]*m[7], m[0]*m[4] - m[1]*m[3],
	}
}

// squareToQuad maps the unit square (0,0) (1,0) (1,1) (0,1) onto q.
func squareToQuad(q [4]Point) (Homography, bool) {
	dx3 := q[0].X - q[1].X + q[2].X - q[3].X
	dy3 := q[0].Y - q[1].Y + q[2].Y - q[3].Y

	if dx3 == 0 && dy3 == 0 {
		return Homography{
			q[1].X - q[0].X, q[2].X - q[1].X, q[0].X,
			q[1].Y - q[0].Y, q[2].Y - q[1].Y, q[0].Y,
			0, 0, 1,
		}, true
	}

	dx1, dx2 := q[1].X-q[2].X, q[3].X-q[2].X
	dy1, dy2 := q[1].Y-q[2].Y, q[3].Y-q[2].Y
	den := dx1*dy2 - dx2*dy1
	if math.Abs(den) < 1e-12 {
		return Homography{}, false
	}
	g := (dx3*dy2 - dx2*dy3) / den
	h := (dx1*dy3 - dx3*dy1) / den

	return Homography{
		q[1].X - q[0].X + g*q[1].X, q[3].X - q[0].X + h*q[3].X, q[0].X,
		q[1].Y - q[0].Y + g*q[1].Y, q[3].Y - q[0].Y + h*q[3].Y, q[0].Y,
		g, h, 1,
	}, true
}

// QuadToQuad returns the homography taking the corners of from onto the
// corners of to, in order. ok is false for degenerate quadrilaterals.
func QuadToQuad(from, to [4]Point) (Homography, bool) {
	sFrom, ok := squareToQuad(from)
	if !ok {
		return Homography{}, false
	}
	sTo, ok := squareToQuad(to)
	if !ok {
		return Homography{}, false
	}
	adj := sFrom.Adjugate()
	if adj == (Homography{}) {
		return Homography{}, false
	}
	return sTo.Mul(adj), true
}

// WarpPerspective renders a w x h image whose pixel (x, y) is sampled
// bilinearly from img at inv(x, y). inv maps output coordinates back into
// the source; samples outside the source are black.
func WarpPerspective(img image.Image, inv Homography, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	src := ToNRGBA(img)
	if src.Bounds().Empty() {
		return dst
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p, ok := inv.Apply(Point{float64(x), float64(y)})
			if !ok {
				continue
			}
			dst.SetNRGBA(x, y, bilinear(src, p.X, p.Y, false))
		}
	}
	return dst
}
