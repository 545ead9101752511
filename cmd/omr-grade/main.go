// Command omr-grade grades a batch of scanned answer sheets and writes a
// summary CSV, a result workbook and overlay images.
//
// Usage:
//
//	omr-grade [flags] [image ...]
//
// Images come from the arguments and from -dir. Without -csv or -xlsx the
// summary CSV is written to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ironsheep/omr-grader/internal/answerkey"
	"github.com/ironsheep/omr-grader/internal/config"
	"github.com/ironsheep/omr-grader/internal/grader"
	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/logging"
	"github.com/ironsheep/omr-grader/internal/mark"
	"github.com/ironsheep/omr-grader/internal/report"
	"github.com/ironsheep/omr-grader/internal/sheet"
	"github.com/ironsheep/omr-grader/internal/template"
)

// Version information - set by ldflags during build
var Version = "dev"

type options struct {
	dir          string
	keyPath      string
	keySheet     string
	templatePath string
	version      string
	strategy     string
	fill         mark.FillRatio
	adjust       template.Adjustment
	align        bool
	skipOrient   bool
	skipRectify  bool
	workers      int
	maxBatch     int
	csvOut       string
	xlsxOut      string
	overlayDir   string
	largeBatch   bool
	logLevel     string
	showVersion  bool
	images       []string
}

func parseFlags(args []string, cfg config.Config, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("omr-grade", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.dir, "dir", "", "directory of PNG, JPEG or GIF sheets")
	fs.StringVar(&o.keyPath, "key", "", "answer key (.csv or .xlsx)")
	fs.StringVar(&o.keySheet, "sheet", "", "key workbook sheet; falls back to the first")
	fs.StringVar(&o.templatePath, "template", "", "template JSON; the synthetic grid when empty")
	fs.StringVar(&o.version, "version", cfg.SheetVersion, "sheet version")
	fs.StringVar(&o.strategy, "strategy", grader.StrategyAuto, "mark detector: auto, gap or fill")
	fs.Float64Var(&o.fill.Threshold, "fill-threshold", cfg.FillThreshold, "fill strategy ink threshold")
	fs.Float64Var(&o.fill.MinMargin, "min-margin", cfg.MinMargin, "fill strategy margin over the runner-up")
	fs.Float64Var(&o.adjust.ScaleX, "scale-x", 1, "horizontal box scale")
	fs.Float64Var(&o.adjust.ScaleY, "scale-y", 1, "vertical box scale")
	fs.Float64Var(&o.adjust.OffsetX, "offset-x", 0, "horizontal box offset (fraction of width)")
	fs.Float64Var(&o.adjust.OffsetY, "offset-y", 0, "vertical box offset (fraction of height)")
	fs.BoolVar(&o.align, "align", false, "estimate and apply a template offset")
	fs.BoolVar(&o.skipOrient, "skip-orientation", false, "do not try quarter turns")
	fs.BoolVar(&o.skipRectify, "skip-rectify", false, "do not remove perspective")
	fs.IntVar(&o.workers, "workers", cfg.Workers, "concurrent sheets")
	fs.IntVar(&o.maxBatch, "max-batch", cfg.MaxBatch, "sheets graded per run")
	fs.StringVar(&o.csvOut, "csv", "", "write the summary CSV here")
	fs.StringVar(&o.xlsxOut, "xlsx", "", "write the result workbook here")
	fs.StringVar(&o.overlayDir, "overlay-dir", "", "write <name>_overlay.png files here")
	fs.BoolVar(&o.largeBatch, "large-batch", false, "omit per-sheet Answers_ worksheets")
	fs.StringVar(&o.logLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.BoolVar(&o.showVersion, "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.images = fs.Args()
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], config.Load(), os.Stdout, os.Stderr))
}

// run grades the sheets named by args and returns the exit code: 0 on
// success, 1 when the run could not complete, 2 for bad usage.
func run(ctx context.Context, args []string, cfg config.Config, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return 2
	}
	if o.showVersion {
		fmt.Fprintf(stdout, "omr-grade %s\n", Version)
		return 0
	}

	log := logging.New(o.logLevel, stderr)
	if err := grade(ctx, o, sheet.Default(), log, stdout); err != nil {
		log.Error().Err(err).Msg("grading failed")
		return 1
	}
	return 0
}

func grade(ctx context.Context, o options, cfg sheet.Config, log zerolog.Logger, stdout io.Writer) error {
	paths := o.images
	if o.dir != "" {
		found, err := imaging.ImageFiles(o.dir)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images given: pass files or -dir")
	}

	opts := grader.DefaultOptions()
	opts.Version = o.version
	opts.Strategy = o.strategy
	opts.Fill = o.fill
	opts.Adjust = o.adjust
	opts.Align = o.align
	opts.SkipOrientation = o.skipOrient
	opts.SkipRectify = o.skipRectify
	opts.Overlay = o.overlayDir != ""
	if o.templatePath != "" {
		tpl, err := template.Load(o.templatePath)
		if err != nil {
			return err
		}
		opts.Template = tpl
	}

	var key answerkey.Key
	set := o.version
	if o.keyPath != "" {
		k, used, err := answerkey.Load(o.keyPath, o.keySheet, cfg)
		if err != nil {
			return err
		}
		key = k
		if used != "" {
			set = used
		}
		log.Info().Str("key", o.keyPath).Str("sheet", used).Int("answers", len(key)).Msg("key loaded")
	}

	items := make([]grader.Item, len(paths))
	for i, p := range paths {
		items[i] = grader.Item{Path: p}
	}
	res, err := grader.New(cfg, log).Batch(ctx, items, key, opts, grader.BatchOptions{
		Workers:  o.workers,
		MaxBatch: o.maxBatch,
	})
	if err != nil {
		return err
	}

	summary := report.NewSummary(cfg, set, res.Items)
	if o.csvOut == "" && o.xlsxOut == "" {
		if err := report.WriteCSV(stdout, summary); err != nil {
			return err
		}
	}
	if o.csvOut != "" {
		if err := create(o.csvOut, func(w io.Writer) error { return report.WriteCSV(w, summary) }); err != nil {
			return err
		}
	}
	if o.xlsxOut != "" {
		if err := create(o.xlsxOut, func(w io.Writer) error { return report.WriteWorkbook(w, summary, o.largeBatch) }); err != nil {
			return err
		}
	}
	if o.overlayDir != "" {
		if err := os.MkdirAll(o.overlayDir, 0o755); err != nil {
			return fmt.Errorf("failed to create overlay directory: %w", err)
		}
		for _, it := range res.Items {
			if it.Result == nil || it.Result.Overlay == nil {
				continue
			}
			if _, err := report.WriteOverlay(o.overlayDir, it.ID, it.Result.Overlay); err != nil {
				return err
			}
		}
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("graded", len(res.Items)-res.Failed()).
		Int("failed", res.Failed()).
		Int("skipped", res.Skipped).
		Msg("batch complete")
	return nil
}

func create(path string, write func(io.Writer) error) error {
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
