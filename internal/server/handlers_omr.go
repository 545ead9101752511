package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/omr-grader/internal/align"
	"github.com/ironsheep/omr-grader/internal/answerkey"
	"github.com/ironsheep/omr-grader/internal/grader"
	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/mark"
	"github.com/ironsheep/omr-grader/internal/preprocess"
	"github.com/ironsheep/omr-grader/internal/report"
	"github.com/ironsheep/omr-grader/internal/template"
)

// === Preprocessing handlers ===

type orientationArgs struct {
	Path string `json:"path"`
}

// OrientationResult reports the chosen quarter turn and the score of every
// candidate, keyed by clockwise degrees.
type OrientationResult struct {
	Rotation int             `json:"rotation"`
	Scores   map[int]float64 `json:"scores"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
}

func (s *Server) handleDetectOrientation(args json.RawMessage) (interface{}, error) {
	var a orientationArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	upright, deg := preprocess.DetectOrientation(img)
	scores := preprocess.ScoreOrientations(img)
	res := &OrientationResult{
		Rotation: deg,
		Scores:   make(map[int]float64, len(scores)),
		Width:    upright.Bounds().Dx(),
		Height:   upright.Bounds().Dy(),
	}
	for i, d := range preprocess.Candidates {
		res.Scores[d] = scores[i]
	}
	return res, nil
}

type rectifyArgs struct {
	Path        string `json:"path"`
	ReturnImage bool   `json:"return_image"`
}

// RectifyResult describes a perspective rectification.
type RectifyResult struct {
	Rectified bool                  `json:"rectified"`
	Quad      *preprocess.Quad      `json:"quad,omitempty"`
	Width     int                   `json:"width"`
	Height    int                   `json:"height"`
	Image     *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleRectify(args json.RawMessage) (interface{}, error) {
	var a rectifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	out, ok := preprocess.RectifyPerspective(img)
	res := &RectifyResult{
		Rectified: ok,
		Width:     out.Bounds().Dx(),
		Height:    out.Bounds().Dy(),
	}
	if q, found := preprocess.FindSheet(img); found && ok {
		res.Quad = &q
	}
	if a.ReturnImage {
		if res.Image, err = imaging.EncodePNG(out); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type alignmentArgs struct {
	Path         string  `json:"path"`
	TemplatePath string  `json:"template_path"`
	SearchRatio  float64 `json:"search_ratio"`
	Steps        int     `json:"steps"`
	YSteps       int     `json:"y_steps"`
	MaxBoxes     int     `json:"max_boxes"`
	Normalize    bool    `json:"normalize"`
}

func (s *Server) handleEstimateAlignment(args json.RawMessage) (interface{}, error) {
	var a alignmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := align.DefaultOptions()
	if a.SearchRatio != 0 {
		opts.SearchRatio = a.SearchRatio
	}
	if a.Steps != 0 {
		opts.Steps = a.Steps
	}
	if a.YSteps != 0 {
		opts.YSteps = a.YSteps
	}
	if a.MaxBoxes != 0 {
		opts.MaxBoxes = a.MaxBoxes
	}

	tpl, err := s.loadTemplate(a.TemplatePath)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		tpl = template.Synthetic(s.sheet)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if a.Normalize {
		upright, _ := preprocess.DetectOrientation(img)
		rectified, _ := preprocess.RectifyPerspective(upright)
		img = rectified
	}
	res := align.Estimate(img, tpl, opts)
	return &res, nil
}

// === Template and key handlers ===

func (s *Server) handleSyntheticGrid(args json.RawMessage) (interface{}, error) {
	return template.Synthetic(s.sheet), nil
}

type parseKeyArgs struct {
	Path  string `json:"path"`
	Sheet string `json:"sheet"`
}

// KeyResult is a parsed answer key.
type KeyResult struct {
	Sheet  string         `json:"sheet,omitempty"`
	Sheets []string       `json:"sheets,omitempty"`
	Count  int            `json:"count"`
	Key    answerkey.Key  `json:"key"`
	Counts map[string]int `json:"per_subject"`
}

func (s *Server) handleParseKey(args json.RawMessage) (interface{}, error) {
	var a parseKeyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	key, used, err := answerkey.Load(a.Path, a.Sheet, s.sheet)
	if err != nil {
		return nil, err
	}

	res := &KeyResult{Sheet: used, Count: len(key), Key: key, Counts: map[string]int{}}
	for q := range key {
		if subj, _, ok := s.sheet.SubjectFor(q); ok {
			res.Counts[subj.Name]++
		}
	}
	if !isCSV(a.Path) {
		f, err := os.Open(a.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open key: %w", err)
		}
		defer f.Close()
		if res.Sheets, err = answerkey.SheetNames(f); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// === Grading handlers ===

// gradeArgs are the options shared by the single-sheet and batch tools.
type gradeArgs struct {
	Version         string  `json:"version"`
	TemplatePath    string  `json:"template_path"`
	KeyPath         string  `json:"key_path"`
	KeySheet        string  `json:"key_sheet"`
	Strategy        string  `json:"strategy"`
	FillThreshold   float64 `json:"fill_threshold"`
	MinMargin       float64 `json:"min_margin"`
	ScaleX          float64 `json:"scale_x"`
	ScaleY          float64 `json:"scale_y"`
	OffsetX         float64 `json:"offset_x"`
	OffsetY         float64 `json:"offset_y"`
	Align           bool    `json:"align"`
	SkipOrientation bool    `json:"skip_orientation"`
	SkipRectify     bool    `json:"skip_rectify"`
}

// options turns a into grader options, filling unset values from the
// server settings.
func (s *Server) options(a gradeArgs) (grader.Options, error) {
	opts := grader.DefaultOptions()
	if s.settings.SheetVersion != "" {
		opts.Version = s.settings.SheetVersion
	}
	if a.Version != "" {
		opts.Version = a.Version
	}
	if a.Strategy != "" {
		opts.Strategy = a.Strategy
	}
	opts.Fill = mark.FillRatio{Threshold: s.settings.FillThreshold, MinMargin: s.settings.MinMargin}
	if a.FillThreshold != 0 {
		opts.Fill.Threshold = a.FillThreshold
	}
	if a.MinMargin != 0 {
		opts.Fill.MinMargin = a.MinMargin
	}
	if a.ScaleX != 0 {
		opts.Adjust.ScaleX = a.ScaleX
	}
	if a.ScaleY != 0 {
		opts.Adjust.ScaleY = a.ScaleY
	}
	opts.Adjust.OffsetX = a.OffsetX
	opts.Adjust.OffsetY = a.OffsetY
	opts.Align = a.Align
	opts.SkipOrientation = a.SkipOrientation
	opts.SkipRectify = a.SkipRectify

	tpl, err := s.loadTemplate(a.TemplatePath)
	if err != nil {
		return opts, err
	}
	opts.Template = tpl
	return opts, nil
}

// loadKey loads the key named by a, if any, and returns it with the sheet
// it was read from.
func (s *Server) loadKey(a gradeArgs) (answerkey.Key, string, error) {
	if a.KeyPath == "" {
		return nil, "", nil
	}
	key, used, err := answerkey.Load(a.KeyPath, a.KeySheet, s.sheet)
	if err != nil {
		return nil, "", err
	}
	s.log.Debug().Str("key", a.KeyPath).Str("sheet", used).Int("answers", len(key)).Msg("key loaded")
	return key, used, nil
}

type gradeSheetArgs struct {
	gradeArgs
	Path    string `json:"path"`
	Overlay bool   `json:"overlay"`
}

// GradeSheetResult is a graded sheet with an optional encoded overlay.
type GradeSheetResult struct {
	*grader.Result
	OverlayImage *imaging.EncodedImage `json:"overlay,omitempty"`
}

func (s *Server) handleGradeSheet(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a gradeSheetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.options(a.gradeArgs)
	if err != nil {
		return nil, err
	}
	opts.Overlay = a.Overlay
	key, _, err := s.loadKey(a.gradeArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := s.grader.Grade(ctx, img, key, opts)
	if err != nil {
		return nil, err
	}
	out := &GradeSheetResult{Result: res}
	if res.Overlay != nil {
		if out.OverlayImage, err = imaging.EncodePNG(res.Overlay); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type gradeBatchArgs struct {
	gradeArgs
	Paths      []string `json:"paths"`
	Dir        string   `json:"dir"`
	OutputCSV  string   `json:"output_csv"`
	OutputXLSX string   `json:"output_xlsx"`
	OverlayDir string   `json:"overlay_dir"`
	LargeBatch bool     `json:"large_batch"`
}

// BatchSummary is the result of the batch tool: the summary rows plus the
// files written.
type BatchSummary struct {
	RunID   string     `json:"run_id"`
	Records [][]string `json:"records"`
	Failed  int        `json:"failed"`
	Skipped int        `json:"skipped"`
	Written []string   `json:"written,omitempty"`
}

func (s *Server) handleGradeBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a gradeBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	paths := a.Paths
	if a.Dir != "" {
		found, err := imaging.ImageFiles(a.Dir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images given: set paths or dir")
	}

	opts, err := s.options(a.gradeArgs)
	if err != nil {
		return nil, err
	}
	opts.Overlay = a.OverlayDir != ""
	key, used, err := s.loadKey(a.gradeArgs)
	if err != nil {
		return nil, err
	}

	items := make([]grader.Item, len(paths))
	for i, p := range paths {
		items[i] = grader.Item{Path: p}
	}
	res, err := s.grader.Batch(ctx, items, key, opts, grader.BatchOptions{
		Workers:  s.settings.Workers,
		MaxBatch: s.settings.MaxBatch,
	})
	if err != nil {
		return nil, err
	}

	set := opts.Version
	if used != "" {
		set = used
	}
	summary := report.NewSummary(s.sheet, set, res.Items)
	out := &BatchSummary{
		RunID:   res.RunID,
		Records: summary.Records(),
		Failed:  res.Failed(),
		Skipped: res.Skipped,
	}

	if a.OutputCSV != "" {
		if err := writeFile(a.OutputCSV, func(f *os.File) error { return report.WriteCSV(f, summary) }); err != nil {
			return nil, err
		}
		out.Written = append(out.Written, a.OutputCSV)
	}
	if a.OutputXLSX != "" {
		if err := writeFile(a.OutputXLSX, func(f *os.File) error { return report.WriteWorkbook(f, summary, a.LargeBatch) }); err != nil {
			return nil, err
		}
		out.Written = append(out.Written, a.OutputXLSX)
	}
	if a.OverlayDir != "" {
		for _, it := range res.Items {
			if it.Result == nil || it.Result.Overlay == nil {
				continue
			}
			p, err := report.WriteOverlay(a.OverlayDir, it.ID, it.Result.Overlay)
			if err != nil {
				return nil, err
			}
			out.Written = append(out.Written, p)
		}
	}
	return out, nil
}

func (s *Server) loadTemplate(path string) (*template.Template, error) {
	if path == "" {
		return nil, nil
	}
	return template.Load(path)
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
