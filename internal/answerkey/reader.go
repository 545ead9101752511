package answerkey

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ironsheep/omr-grader/internal/sheet"
)

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("workbook has no sheets")

// ReadCSV reads a comma-separated key. The first record is the header.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to read csv key: %w", err)
	}
	return tableOf(records), nil
}

// ReadWorkbook reads an XLSX key. The requested sheet is used when the
// workbook has it, otherwise the first sheet. The name of the sheet actually
// read is returned alongside the table.
func ReadWorkbook(r io.Reader, sheetName string) (Table, string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	name, err := pickSheet(f.GetSheetList(), sheetName)
	if err != nil {
		return Table{}, "", err
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return Table{}, "", fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	return tableOf(rows), name, nil
}

// SheetNames lists the worksheets of an XLSX workbook in tab order.
func SheetNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// Load reads a key file, choosing the format from its extension: .csv is
// read with ReadCSV and everything else as a workbook. It returns the parsed
// key and the sheet used, which is empty for CSV.
func Load(path, sheetName string, cfg sheet.Config) (Key, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open key: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		t, err := ReadCSV(f)
		if err != nil {
			return nil, "", err
		}
		return Parse(cfg, t), "", nil
	}

	t, used, err := ReadWorkbook(f, sheetName)
	if err != nil {
		return nil, "", err
	}
	return Parse(cfg, t), used, nil
}

func pickSheet(names []string, want string) (string, error) {
	if len(names) == 0 {
		return "", ErrNoSheets
	}
	for _, n := range names {
		if n == want {
			return n, nil
		}
	}
	return names[0], nil
}

func tableOf(records [][]string) Table {
	if len(records) == 0 {
		return Table{}
	}
	return Table{Header: records[0], Rows: records[1:]}
}
