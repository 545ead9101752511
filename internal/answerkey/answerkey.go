// Package answerkey reads the correct answers of an exam from a table with
// one column per subject and cells such as "37 - c".
//
// Parsing is lenient. Columns whose header matches no subject, cells that do
// not look like an answer and questions outside the subject's range are
// skipped without error, so a hand-edited key never aborts a grading run.
package answerkey

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ironsheep/omr-grader/internal/sheet"
)

// cellPattern matches "<question> - <option>" with an ASCII hyphen or an en
// dash. Anything after the option letter is ignored.
var cellPattern = regexp.MustCompile(`^\s*(\d+)\s*[-–]\s*([a-dA-D])`)

// Key maps question numbers to the lowercase correct option. It is sparse:
// questions without an entry are not scored.
type Key map[int]string

// Table is a header row followed by data rows. Rows may be shorter than the
// header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the cells of column i; missing cells are skipped.
func (t Table) Column(i int) []string {
	var out []string
	for _, row := range t.Rows {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}

// Parse extracts a Key from t using the subjects of cfg.
//
// A subject's column is the header equal to its name, or else the first
// header whose normalized form (lowercase letters only) is one of its
// aliases. When a question appears more than once the last cell wins.
func Parse(cfg sheet.Config, t Table) Key {
	key := Key{}
	for _, s := range cfg.Subjects {
		col := matchColumn(t.Header, s)
		if col < 0 {
			continue
		}
		for _, cell := range t.Column(col) {
			q, opt, ok := ParseCell(cell)
			if ok && s.Contains(q) {
				key[q] = opt
			}
		}
	}
	return key
}

// ParseCell parses a single "<question> - <option>" cell.
func ParseCell(cell string) (q int, opt string, ok bool) {
	m := cellPattern.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return 0, "", false
	}
	q, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return q, strings.ToLower(m[2]), true
}

// matchColumn returns the index of the header that belongs to s, or -1.
func matchColumn(header []string, s sheet.Subject) int {
	for i, h := range header {
		if h == s.Name {
			return i
		}
	}

	aliases := map[string]bool{normalize(s.Name): true}
	for _, a := range s.Aliases {
		aliases[normalize(a)] = true
	}
	for i, h := range header {
		if aliases[normalize(h)] {
			return i
		}
	}
	return -1
}

// normalize lowercases s and drops everything that is not an ASCII letter.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r <= unicode.MaxASCII && unicode.IsLower(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
