package template

import "github.com/ironsheep/omr-grader/internal/sheet"

// Synthetic builds the evenly spaced fallback grid used when no template is
// supplied.
//
// Every subject of cfg is one block and every question of the subject one
// row, so question q lands in the block of the subject that scores it. With
// sheet.Default this is 100 questions of four options in five blocks.
func Synthetic(cfg sheet.Config) *Template {
	l := cfg.Layout
	t := &Template{Questions: make([]Question, 0, cfg.Questions())}

	for block, subj := range cfg.Subjects {
		for q := subj.First; q <= subj.Last; q++ {
			row := q - subj.First
			top := l.BlockTop + float64(block)*l.BlockHeight + float64(row)*l.RowPitch
			bottom := top + l.RowHeight

			opts := make([]Option, 0, len(cfg.Options))
			x0 := l.LeftMargin
			for _, label := range cfg.Options {
				x1 := x0 + l.OptionWidth
				opts = append(opts, Option{Label: label, Box: Box{x0, top, x1, bottom}})
				x0 = x1 + l.OptionGap
			}
			t.Questions = append(t.Questions, Question{Index: q, Options: opts})
		}
	}

	t.sort()
	return t
}
