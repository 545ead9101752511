// Package grader runs the full grading pipeline on one sheet or a batch.
//
// A sheet is graded in a fixed order: the sheet version is validated, the
// image is turned upright, perspective is removed, the template is
// optionally re-aligned, marks are detected and, when a key is given, the
// answers are scored. Every stage owns its buffers; the input image is never
// modified.
package grader

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"

	"github.com/ironsheep/omr-grader/internal/align"
	"github.com/ironsheep/omr-grader/internal/answerkey"
	"github.com/ironsheep/omr-grader/internal/mark"
	"github.com/ironsheep/omr-grader/internal/preprocess"
	"github.com/ironsheep/omr-grader/internal/scoring"
	"github.com/ironsheep/omr-grader/internal/sheet"
	"github.com/ironsheep/omr-grader/internal/template"
)

// Strategy names accepted by Options.Strategy.
const (
	StrategyAuto = "auto"
	StrategyGap  = "gap"
	StrategyFill = "fill"
)

// Options controls how one sheet is graded.
type Options struct {
	// Version is the sheet version; it must be one of the config's versions.
	Version string

	// Template holds the option boxes. Nil uses the synthetic grid.
	Template *template.Template

	// Strategy selects the mark detector. Auto uses fill with an explicit
	// template and gap with the synthetic grid.
	Strategy string

	// Fill parameterizes the fill-ratio strategy.
	Fill mark.FillRatio

	// Adjust is applied to every box. The zero value means identity.
	Adjust template.Adjustment

	// Align estimates an offset and adds it to Adjust before detection.
	Align        bool
	AlignOptions align.Options

	SkipOrientation bool
	SkipRectify     bool

	// Overlay renders the detection onto the normalized image.
	Overlay bool
}

// DefaultOptions returns auto strategy selection on version A with default
// fill parameters.
func DefaultOptions() Options {
	return Options{
		Version:      "A",
		Strategy:     StrategyAuto,
		Fill:         mark.DefaultFillRatio(),
		Adjust:       template.Identity(),
		AlignOptions: align.DefaultOptions(),
	}
}

// Result is the outcome of grading one sheet.
type Result struct {
	Version    string              `json:"version"`
	Rotation   int                 `json:"rotation"`
	Rectified  bool                `json:"rectified"`
	Alignment  *align.Result       `json:"alignment,omitempty"`
	Adjustment template.Adjustment `json:"adjustment"`
	Strategy   string              `json:"strategy"`
	Answers    []string            `json:"answers"`
	Signals    mark.Signals        `json:"signals,omitempty"`
	Report     *scoring.Report     `json:"report,omitempty"`
	Columns    []scoring.Column    `json:"columns"`

	// Normalized is the upright, rectified image marks were read from.
	Normalized image.Image `json:"-"`

	// Overlay is set when Options.Overlay was requested.
	Overlay *image.NRGBA `json:"-"`
}

// Grader grades sheets of one exam form.
type Grader struct {
	cfg sheet.Config
	log zerolog.Logger
}

// New returns a Grader for cfg that logs to log.
func New(cfg sheet.Config, log zerolog.Logger) *Grader {
	return &Grader{cfg: cfg, log: log}
}

// Config returns the sheet configuration the grader was built with.
func (g *Grader) Config() sheet.Config {
	return g.cfg
}

// Grade grades img. key may be nil, in which case no report is produced.
//
// An unsupported version is rejected before any image work. A failed
// perspective rectification is not an error; grading continues on the
// upright image.
func (g *Grader) Grade(ctx context.Context, img image.Image, key answerkey.Key, opts Options) (*Result, error) {
	if err := g.cfg.ValidateVersion(opts.Version); err != nil {
		return nil, fmt.Errorf("failed to grade sheet: %w", err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to grade sheet: %w", ErrEmptyImage)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Version: opts.Version}

	cur := img
	if !opts.SkipOrientation {
		rotated, deg := preprocess.DetectOrientation(cur)
		cur, res.Rotation = rotated, deg
		g.log.Debug().Int("rotation", deg).Msg("orientation detected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !opts.SkipRectify {
		rectified, ok := preprocess.RectifyPerspective(cur)
		cur, res.Rectified = rectified, ok
		if !ok {
			g.log.Debug().Msg("no sheet outline found, using unrectified image")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tpl := opts.Template
	if tpl == nil {
		tpl = template.Synthetic(g.cfg)
	}

	adj := opts.Adjust
	if adj == (template.Adjustment{}) {
		adj = template.Identity()
	}
	if opts.Align {
		ar := align.Estimate(cur, tpl, opts.AlignOptions)
		adj.OffsetX += ar.OffsetX
		adj.OffsetY += ar.OffsetY
		res.Alignment = &ar
		g.log.Debug().
			Float64("offset_x", ar.OffsetX).
			Float64("offset_y", ar.OffsetY).
			Float64("score", ar.Score).
			Msg("alignment estimated")
	}
	res.Adjustment = adj

	strategy, err := g.strategy(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to grade sheet: %w", err)
	}

	det := mark.Analyze(cur, tpl, adj, strategy)
	res.Strategy = det.Strategy
	res.Answers = det.Answers
	res.Signals = det.Signals
	res.Columns = scoring.Columns(g.cfg, det.Answers)
	res.Normalized = cur

	if key != nil {
		r := scoring.Score(g.cfg, det.Answers, key)
		res.Report = &r
	}
	if opts.Overlay {
		res.Overlay = mark.Overlay(cur, tpl, det.Answers, adj, true)
	}
	return res, nil
}

func (g *Grader) strategy(opts Options) (mark.Strategy, error) {
	name := opts.Strategy
	if name == "" || name == StrategyAuto {
		name = StrategyGap
		if opts.Template != nil {
			name = StrategyFill
		}
	}
	fill := opts.Fill
	if fill == (mark.FillRatio{}) {
		fill = mark.DefaultFillRatio()
	}
	return mark.ByName(name, fill)
}
