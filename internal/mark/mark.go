// Package mark decides which option of each question was marked.
//
// Two strategies share the same plumbing: the image is equalized with CLAHE,
// every option box is adjusted and mapped to pixels with the template
// package, the strategy measures one signal per option and then decides one
// label or blank per question. The overlay renderer maps boxes the same way,
// so what is drawn is exactly what was measured.
package mark

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/template"
)

// Blank is the answer recorded for unmarked and ambiguous questions.
const Blank = ""

// ErrUnknownStrategy is returned by ByName for an unrecognized strategy name.
var ErrUnknownStrategy = errors.New("unknown mark strategy")

// Signals holds one measurement per option, per question, in sorted
// question order and option declaration order.
type Signals [][]float64

// Strategy turns option rectangles into decisions.
type Strategy interface {
	// Name identifies the strategy in logs and reports.
	Name() string

	// Measure computes the per-option signal on the equalized image.
	Measure(eq *image.Gray, rois [][]image.Rectangle) Signals

	// Decide returns the chosen option index per question, or -1 for blank.
	Decide(s Signals) []int
}

// Result is a detection together with the signals it was decided from.
type Result struct {
	Strategy string   `json:"strategy"`
	Answers  []string `json:"answers"`
	Signals  Signals  `json:"signals"`
}

// ByName returns the strategy called name. "gap" is the intensity-gap
// strategy with defaults, "fill" is fill.
func ByName(name string, fill FillRatio) (Strategy, error) {
	switch name {
	case "gap":
		return DefaultIntensityGap(), nil
	case "fill":
		return fill, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Equalize returns the CLAHE-equalized grayscale image every strategy
// measures on.
func Equalize(img image.Image) *image.Gray {
	return imaging.CLAHE(imaging.Gray(img), 2.0, 8, 8)
}

// ROIs maps every option box of tpl, adjusted by adj, to a pixel rectangle
// of a w x h image. Questions come in sorted order.
func ROIs(tpl *template.Template, adj template.Adjustment, w, h int) [][]image.Rectangle {
	qs := tpl.Sorted()
	out := make([][]image.Rectangle, len(qs))
	for i, q := range qs {
		out[i] = make([]image.Rectangle, len(q.Options))
		for j, opt := range q.Options {
			out[i][j] = opt.Box.Adjust(adj).Rect(w, h)
		}
	}
	return out
}

// Detect runs s over img and returns one answer per sorted question.
func Detect(img image.Image, tpl *template.Template, adj template.Adjustment, s Strategy) []string {
	return Analyze(img, tpl, adj, s).Answers
}

// Analyze is Detect that also returns the measured signals.
func Analyze(img image.Image, tpl *template.Template, adj template.Adjustment, s Strategy) Result {
	eq := Equalize(img)
	rois := ROIs(tpl, adj, eq.Bounds().Dx(), eq.Bounds().Dy())
	signals := s.Measure(eq, rois)
	return Result{
		Strategy: s.Name(),
		Answers:  Labels(tpl, s.Decide(signals)),
		Signals:  signals,
	}
}

// Labels converts option indexes from Decide into labels of tpl's sorted
// questions. Negative or out-of-range indexes become Blank.
func Labels(tpl *template.Template, choice []int) []string {
	qs := tpl.Sorted()
	out := make([]string, len(qs))
	for i, q := range qs {
		if i < len(choice) && choice[i] >= 0 && choice[i] < len(q.Options) {
			out[i] = q.Options[choice[i]].Label
		}
	}
	return out
}
