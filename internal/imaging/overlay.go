package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
)

// Overlay colours for marked and unmarked options.
var (
	SelectedColor   = colorful.Color{R: 0, G: 200.0 / 255, B: 0}
	UnselectedColor = colorful.Color{R: 200.0 / 255, G: 50.0 / 255, B: 50.0 / 255}
)

// Outline draws a 1px border onto dst in c along r.Min and r.Max, so the
// row r.Max.Y and column r.Max.X are painted too. Parts outside dst are
// skipped; an empty r draws nothing.
func Outline(dst draw.Image, r image.Rectangle, c color.Color) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	b := dst.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(b) {
			dst.Set(x, y, c)
		}
	}
	for x := r.Min.X; x <= r.Max.X; x++ {
		set(x, r.Min.Y)
		set(x, r.Max.Y)
	}
	for y := r.Min.Y; y <= r.Max.Y; y++ {
		set(r.Min.X, y)
		set(r.Max.X, y)
	}
}

// HexColor returns the "#rrggbb" form of c.
func HexColor(c color.Color) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}

// ParseHexColor parses a "#rrggbb" or "#rgb" colour.
func ParseHexColor(s string) (colorful.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}
