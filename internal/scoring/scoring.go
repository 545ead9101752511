// Package scoring compares detected answers with an answer key.
package scoring

import (
	"fmt"
	"strings"

	"github.com/ironsheep/omr-grader/internal/answerkey"
	"github.com/ironsheep/omr-grader/internal/sheet"
)

// MinRows is the minimum number of rows of every answer column.
const MinRows = 20

// SubjectScore is the number of correct answers within one subject.
type SubjectScore struct {
	Subject string `json:"subject"`
	Score   int    `json:"score"`
	Max     int    `json:"max"`
}

// Report is the score of one sheet.
type Report struct {
	PerSubject []SubjectScore `json:"per_subject"`
	Total      int            `json:"total"`
	TotalMax   int            `json:"total_max"`
}

// Subject returns the score of the named subject.
func (r Report) Subject(name string) (int, bool) {
	for _, s := range r.PerSubject {
		if s.Subject == name {
			return s.Score, true
		}
	}
	return 0, false
}

// Score counts the answers that match key. answers[i] is the answer to
// question i+1. Questions without a key entry, blank answers and questions
// outside every subject do not score. Every subject of cfg is present in the
// report, in partition order.
func Score(cfg sheet.Config, answers []string, key answerkey.Key) Report {
	r := Report{
		PerSubject: make([]SubjectScore, len(cfg.Subjects)),
		TotalMax:   cfg.TotalMax,
	}
	for i, s := range cfg.Subjects {
		r.PerSubject[i] = SubjectScore{Subject: s.Name, Max: cfg.PerSubjectMax}
	}

	for i, pred := range answers {
		q := i + 1
		want, ok := key[q]
		if !ok || pred == "" {
			continue
		}
		_, idx, ok := cfg.SubjectFor(q)
		if !ok {
			continue
		}
		if strings.EqualFold(pred, want) {
			r.PerSubject[idx].Score++
			r.Total++
		}
	}
	return r
}

// Column is one subject's answers formatted as "<q> - <label>".
type Column struct {
	Subject string   `json:"subject"`
	Cells   []string `json:"cells"`
}

// Columns lays answers out the way answer keys are written: one column per
// subject, padded with empty cells to at least MinRows rows. answers[i] is
// the answer to question i+1; questions outside every subject are dropped.
func Columns(cfg sheet.Config, answers []string) []Column {
	cols := make([]Column, len(cfg.Subjects))
	for i, s := range cfg.Subjects {
		cols[i].Subject = s.Name
	}
	for i, ans := range answers {
		q := i + 1
		_, idx, ok := cfg.SubjectFor(q)
		if !ok {
			continue
		}
		cols[idx].Cells = append(cols[idx].Cells, fmt.Sprintf("%d - %s", q, ans))
	}

	rows := MinRows
	for _, c := range cols {
		if len(c.Cells) > rows {
			rows = len(c.Cells)
		}
	}
	for i := range cols {
		for len(cols[i].Cells) < rows {
			cols[i].Cells = append(cols[i].Cells, "")
		}
	}
	return cols
}

// Rows transposes cols into a header row followed by data rows.
func Rows(cols []Column) (header []string, rows [][]string) {
	header = make([]string, len(cols))
	n := 0
	for i, c := range cols {
		header[i] = c.Subject
		if len(c.Cells) > n {
			n = len(c.Cells)
		}
	}
	rows = make([][]string, n)
	for r := range rows {
		rows[r] = make([]string, len(cols))
		for i, c := range cols {
			if r < len(c.Cells) {
				rows[r][i] = c.Cells[r]
			}
		}
	}
	return header, rows
}
