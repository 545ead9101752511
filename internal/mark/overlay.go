package mark

import (
	"image"
	"image/color"
	"strconv"

	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/template"
)

// Overlay draws every adjusted option rectangle of tpl on a copy of img:
// green when the option is the recorded answer of its question, red
// otherwise. With labels set, each question number is printed left of its
// first option. answers is indexed like the sorted questions; missing
// entries count as blank.
func Overlay(img image.Image, tpl *template.Template, answers []string, adj template.Adjustment, labels bool) *image.NRGBA {
	out := imaging.ToNRGBA(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	qs := tpl.Sorted()
	rois := ROIs(tpl, adj, w, h)

	for i, q := range qs {
		selected := Blank
		if i < len(answers) {
			selected = answers[i]
		}
		for j, opt := range q.Options {
			c := imaging.UnselectedColor
			if selected != Blank && opt.Label == selected {
				c = imaging.SelectedColor
			}
			imaging.Outline(out, rois[i][j], c)
		}
		if labels && len(rois[i]) > 0 {
			text := strconv.Itoa(q.Index)
			r := rois[i][0]
			imaging.Label(out, r.Min.X-len(text)*4-3, r.Min.Y, text, color.Black, color.White)
		}
	}
	return out
}
