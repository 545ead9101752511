// Package report exports graded batches as a CSV summary, an XLSX workbook
// and overlay images.
package report

import (
	"encoding/csv"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/ironsheep/omr-grader/internal/grader"
	"github.com/ironsheep/omr-grader/internal/imaging"
	"github.com/ironsheep/omr-grader/internal/scoring"
	"github.com/ironsheep/omr-grader/internal/sheet"
)

// Row is one summary line.
type Row struct {
	Filename string
	Set      string

	// Scores holds one score per subject, or nil when the sheet was graded
	// without a key or failed.
	Scores []int
	Total  *int
	Error  string

	// Columns is the per-subject answer layout of a graded sheet.
	Columns []scoring.Column
}

// Summary is a batch ready for export.
type Summary struct {
	Subjects []string
	Rows     []Row
}

// NewSummary builds a summary of items. set labels every row; it is the key
// sheet when one was used, otherwise the sheet version.
func NewSummary(cfg sheet.Config, set string, items []grader.ItemResult) Summary {
	s := Summary{Subjects: cfg.SubjectNames()}
	for _, it := range items {
		row := Row{Filename: it.ID, Set: set, Error: it.Error}
		if r := it.Result; r != nil {
			row.Columns = r.Columns
			if r.Report != nil {
				for _, ss := range r.Report.PerSubject {
					row.Scores = append(row.Scores, ss.Score)
				}
				total := r.Report.Total
				row.Total = &total
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// Header returns filename, Set, the subject names, total and error.
func (s Summary) Header() []string {
	h := []string{"filename", "Set"}
	h = append(h, s.Subjects...)
	return append(h, "total", "error")
}

// values returns the cells of row in Header order. Missing scores are nil.
func (s Summary) values(row Row) []interface{} {
	out := []interface{}{row.Filename, row.Set}
	for i := range s.Subjects {
		if i < len(row.Scores) {
			out = append(out, row.Scores[i])
		} else {
			out = append(out, nil)
		}
	}
	if row.Total != nil {
		out = append(out, *row.Total)
	} else {
		out = append(out, nil)
	}
	return append(out, row.Error)
}

// Records returns the header followed by one string record per row.
func (s Summary) Records() [][]string {
	recs := [][]string{s.Header()}
	for _, row := range s.Rows {
		vals := s.values(row)
		rec := make([]string, len(vals))
		for i, v := range vals {
			switch v := v.(type) {
			case nil:
			case int:
				rec[i] = strconv.Itoa(v)
			default:
				rec[i] = fmt.Sprint(v)
			}
		}
		recs = append(recs, rec)
	}
	return recs
}

// WriteCSV writes the summary as CSV.
func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(s.Records()); err != nil {
		return fmt.Errorf("failed to write csv summary: %w", err)
	}
	return nil
}

// maxSafeName is the room left for the file name after "Answers_" in a
// 31-character worksheet name.
const maxSafeName = 23

// SheetName returns the detail worksheet name for file: "Answers_" plus the
// file's letters, digits, spaces, dots and underscores, shortened to fit
// Excel's limit. Names already in used get a numeric suffix; the result is
// recorded in used.
func SheetName(file string, used map[string]bool) string {
	var b strings.Builder
	for _, r := range file {
		if r == ' ' || r == '.' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	safe := truncate(strings.TrimRight(b.String(), " "), maxSafeName)

	name := "Answers_" + safe
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := "_" + strconv.Itoa(n)
		name = "Answers_" + truncate(safe, maxSafeName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

// WriteOverlay saves img as a PNG under dir, named after the sheet.
func WriteOverlay(dir, file string, img image.Image) (string, error) {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	path := filepath.Join(dir, base+"_overlay.png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create overlay: %w", err)
	}
	if err := imaging.WritePNG(f, img); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write overlay: %w", err)
	}
	return path, nil
}
