package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Guides draws normalized guide lines over a copy of img.
//
// Lines are placed every step of the image width and height (step 0.05 puts
// one every 5%), optionally labelled with their percentage. Template authors
// read option boxes straight off these guides, since templates are written in
// normalized coordinates rather than pixels.
func Guides(img image.Image, step float64, showLabels bool, c color.Color) *image.NRGBA {
	result := ToNRGBA(img)
	w, h := result.Bounds().Dx(), result.Bounds().Dy()
	if step <= 0 || step >= 1 || w == 0 || h == 0 {
		return result
	}

	n := int(math.Floor(1/step + 1e-9))
	for i := 1; i <= n; i++ {
		f := float64(i) * step
		if f >= 1 {
			break
		}
		x := int(f * float64(w))
		y := int(f * float64(h))
		for yy := 0; yy < h; yy++ {
			result.Set(x, yy, c)
		}
		for xx := 0; xx < w; xx++ {
			result.Set(xx, y, c)
		}

		if showLabels {
			pct := fmt.Sprintf("%d", int(math.Round(f*100)))
			Label(result, x+2, 2, pct, color.White, color.NRGBA{0, 0, 0, 180})
			Label(result, 2, y+2, pct, color.White, color.NRGBA{0, 0, 0, 180})
		}
	}
	return result
}

// glyphs is a 3x5 pixel font for digits and a few separators.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'-': {"000", "000", "111", "000", "000"},
	'.': {"000", "000", "000", "000", "010"},
}

// Label draws text at (x, y) in the built-in pixel font on a filled
// background box. Unknown runes leave a blank cell; pixels outside dst are
// skipped.
func Label(dst draw.Image, x, y int, text string, fg, bg color.Color) {
	bounds := dst.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	set := func(px, py int, c color.Color) {
		if image.Pt(px, py).In(bounds) {
			dst.Set(px, py, c)
		}
	}

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					set(cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
