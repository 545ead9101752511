package detection

import (
	"image"
	"math"
	"sort"
)

// Point is a pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Contour is the outer boundary of one connected foreground component.
type Contour struct {
	// Points is the traced boundary in clockwise order, starting at the
	// component's first pixel in raster order. The polygon is implicitly
	// closed.
	Points []Point

	// Bounds is the bounding box of the component in pixel coordinates.
	Bounds image.Rectangle

	// Pixels is the number of pixels in the component.
	Pixels int
}

// Area returns the polygon area enclosed by the boundary.
func (c Contour) Area() float64 {
	return Area(c.Points)
}

// FindContours returns the outer boundaries of all 8-connected foreground
// components of bin with at least minPixels pixels, largest area first.
//
// Holes are not traced, and components are not tested for nesting: a blob
// inside the hole of another blob is returned as its own contour.
func FindContours(bin *image.Gray, minPixels int) []Contour {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := bin.Pix[bin.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			fg[y*w+x] = row[x] != 0
		}
	}

	labels := make([]int32, w*h)
	var contours []Contour
	next := int32(0)

	for i := range fg {
		if !fg[i] || labels[i] != 0 {
			continue
		}
		next++
		pixels, bounds := floodFill(fg, labels, i, next, w, h)
		if pixels < minPixels {
			continue
		}
		start := Point{X: i % w, Y: i / w}
		contours = append(contours, Contour{
			Points: traceBoundary(labels, next, start, w, h, pixels),
			Bounds: bounds.Add(b.Min),
			Pixels: pixels,
		})
	}

	for i := range contours {
		for j := range contours[i].Points {
			contours[i].Points[j].X += b.Min.X
			contours[i].Points[j].Y += b.Min.Y
		}
	}

	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].Area() > contours[j].Area()
	})
	return contours
}

// floodFill labels the component containing start with label.
//
// Uses an explicit stack rather than recursion so that page-sized blobs
// cannot overflow the goroutine stack.
func floodFill(fg []bool, labels []int32, start int, label int32, w, h int) (int, image.Rectangle) {
	stack := []int{start}
	labels[start] = label
	count := 0
	minX, minY, maxX, maxY := w, h, -1, -1

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count++

		x, y := i%w, i/w
		minX, maxX = minInt(minX, x), maxInt(maxX, x)
		minY, maxY = minInt(minY, y), maxInt(maxY, y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if fg[j] && labels[j] == 0 {
					labels[j] = label
					stack = append(stack, j)
				}
			}
		}
	}
	return count, image.Rect(minX, minY, maxX+1, maxY+1)
}

// moore lists the 8 neighbour offsets clockwise, starting west.
var moore = [8]Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

func mooreIndex(dx, dy int) int {
	for i, d := range moore {
		if d.X == dx && d.Y == dy {
			return i
		}
	}
	return 0
}

// traceBoundary walks the outer boundary of the component labelled label.
//
// start must be the first pixel of the component in raster order, so its
// west neighbour is known to be background. Tracing stops once start is
// re-entered in the same way it was first left.
func traceBoundary(labels []int32, label int32, start Point, w, h, pixels int) []Point {
	inside := func(p Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == label
	}

	// step finds the next boundary pixel clockwise from the backtrack
	// direction and returns it with its own backtrack direction.
	step := func(cur Point, back int) (Point, int, bool) {
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			n := Point{cur.X + moore[d].X, cur.Y + moore[d].Y}
			if inside(n) {
				prev := moore[(d+7)%8]
				prevPt := Point{cur.X + prev.X, cur.Y + prev.Y}
				return n, mooreIndex(prevPt.X-n.X, prevPt.Y-n.Y), true
			}
		}
		return cur, back, false
	}

	first, back, ok := step(start, 0)
	if !ok {
		return []Point{start}
	}

	points := []Point{start}
	cur := first
	// Every boundary pixel is visited at most four times.
	for guard := 4*pixels + 8; guard > 0; guard-- {
		if cur == start {
			if n, _, _ := step(cur, back); n == first {
				break
			}
		}
		points = append(points, cur)
		cur, back, _ = step(cur, back)
	}
	return points
}

// Area returns the absolute shoelace area of the closed polygon pts.
func Area(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum int
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

// ArcLength returns the perimeter of pts, including the closing edge when
// closed is set.
func ArcLength(pts []Point, closed bool) float64 {
	if len(pts) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(pts); i++ {
		total += dist(pts[i-1], pts[i])
	}
	if closed {
		total += dist(pts[len(pts)-1], pts[0])
	}
	return total
}

func dist(a, b Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
