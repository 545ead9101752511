package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ironsheep/omr-grader/internal/scoring"
)

// SummarySheet is the name of the first worksheet of a result workbook.
const SummarySheet = "Summary"

// WriteWorkbook writes s as an XLSX workbook. The Summary sheet holds one
// row per sheet. Unless largeBatch is set, every graded sheet also gets an
// Answers_ worksheet with its per-subject answer columns.
func WriteWorkbook(w io.Writer, s Summary, largeBatch bool) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SummarySheet)
	if err := writeRows(f, SummarySheet, toCells(s.Header()), summaryRows(s)); err != nil {
		return err
	}

	if !largeBatch {
		used := map[string]bool{}
		for _, row := range s.Rows {
			if row.Columns == nil {
				continue
			}
			name := SheetName(row.Filename, used)
			if _, err := f.NewSheet(name); err != nil {
				return fmt.Errorf("failed to add sheet %q: %w", name, err)
			}
			header, rows := scoring.Rows(row.Columns)
			cells := make([][]interface{}, len(rows))
			for i, r := range rows {
				cells[i] = toCells(r)
			}
			if err := writeRows(f, name, toCells(header), cells); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func summaryRows(s Summary) [][]interface{} {
	out := make([][]interface{}, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = s.values(row)
	}
	return out
}

func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	all := append([][]interface{}{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toCells(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
