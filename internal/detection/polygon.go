package detection

import "math"

// ApproxPolygon simplifies the closed polygon pts so that no dropped point
// lies farther than epsilon from the result.
//
// The polygon is split at the vertex farthest from pts[0] and both halves go
// through Douglas-Peucker. Vertices left nearly collinear with their
// neighbours are then removed, so a traced rectangle collapses to its four
// corners regardless of where tracing started.
func ApproxPolygon(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n < 3 {
		return append([]Point(nil), pts...)
	}

	far, farDist := 0, 0.0
	for i := 1; i < n; i++ {
		if d := dist(pts[0], pts[i]); d > farDist {
			far, farDist = i, d
		}
	}
	if far == 0 {
		return []Point{pts[0]}
	}

	keep := make([]bool, n)
	keep[0], keep[far] = true, true

	// Second half wraps around to pts[0].
	ring := make([]Point, 0, n-far+1)
	ring = append(ring, pts[far:]...)
	ring = append(ring, pts[0])

	douglasPeucker(pts[:far+1], epsilon, keep[:far+1])
	tail := make([]bool, len(ring))
	douglasPeucker(ring, epsilon, tail)
	for i := 1; i < len(ring)-1; i++ {
		if tail[i] {
			keep[far+i] = true
		}
	}

	var out []Point
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return dropCollinear(out, epsilon)
}

// douglasPeucker marks in keep the vertices of the open chain pts that
// survive simplification. The endpoints are always kept.
func douglasPeucker(pts []Point, epsilon float64, keep []bool) {
	if len(pts) < 2 {
		return
	}
	keep[0], keep[len(pts)-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, len(pts) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.hi-s.lo < 2 {
			continue
		}

		idx, maxD := -1, epsilon
		for i := s.lo + 1; i < s.hi; i++ {
			if d := segmentDistance(pts[i], pts[s.lo], pts[s.hi]); d > maxD {
				idx, maxD = i, d
			}
		}
		if idx < 0 {
			continue
		}
		keep[idx] = true
		stack = append(stack, span{s.lo, idx}, span{idx, s.hi})
	}
}

// dropCollinear repeatedly removes vertices of the closed polygon pts that
// lie within epsilon of the segment joining their neighbours.
func dropCollinear(pts []Point, epsilon float64) []Point {
	for len(pts) > 3 {
		removed := false
		for i := range pts {
			prev := pts[(i+len(pts)-1)%len(pts)]
			next := pts[(i+1)%len(pts)]
			if segmentDistance(pts[i], prev, next) <= epsilon {
				pts = append(pts[:i:i], pts[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
	return pts
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(p, a, b Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, a)
	}
	t := (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	px, py := float64(a.X)+t*dx, float64(a.Y)+t*dy
	return math.Hypot(float64(p.X)-px, float64(p.Y)-py)
}

// Corners holds the four labelled vertices of a quadrilateral.
type Corners struct {
	TopLeft, TopRight, BottomRight, BottomLeft Point
}

// OrderCorners labels four vertices by their coordinate sums and
// differences: top-left has the smallest x+y, bottom-right the largest,
// top-right the smallest y-x and bottom-left the largest y-x. The first
// vertex wins ties.
func OrderCorners(q [4]Point) Corners {
	var c Corners
	minSum, maxSum := math.MaxInt, math.MinInt
	minDiff, maxDiff := math.MaxInt, math.MinInt
	for _, p := range q {
		s, d := p.X+p.Y, p.Y-p.X
		if s < minSum {
			minSum, c.TopLeft = s, p
		}
		if s > maxSum {
			maxSum, c.BottomRight = s, p
		}
		if d < minDiff {
			minDiff, c.TopRight = d, p
		}
		if d > maxDiff {
			maxDiff, c.BottomLeft = d, p
		}
	}
	return c
}
