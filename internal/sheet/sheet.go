// Package sheet holds the immutable description of the answer sheet that
// every grading stage shares.
//
// The subject partition, the option labels and the synthetic grid layout are
// kept in one Config value so that the fallback grid, the answer-key parser
// and the scoring engine can never disagree about which question belongs to
// which subject. Callers obtain a Config from Default and pass it explicitly;
// nothing in this module reads package-level state.
package sheet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedVersion is returned when a sheet version is not one of
// Config.Versions.
var ErrUnsupportedVersion = errors.New("unsupported sheet version")

// Subject is a named, contiguous block of question numbers.
type Subject struct {
	// Name is the display name, also the preferred answer-key column header.
	Name string `json:"name"`

	// First and Last are the inclusive question range of the subject.
	First int `json:"first"`
	Last  int `json:"last"`

	// Aliases are accepted column headers after normalization (lowercase
	// letters only). The normalized Name is always accepted.
	Aliases []string `json:"aliases,omitempty"`
}

// Contains reports whether question q falls into the subject's range.
func (s Subject) Contains(q int) bool {
	return q >= s.First && q <= s.Last
}

// Len returns the number of questions in the subject.
func (s Subject) Len() int {
	return s.Last - s.First + 1
}

// Layout holds the normalized geometry of the synthetic grid. Each subject
// occupies one vertically stacked block; each question one row of options.
type Layout struct {
	BlockTop    float64 `json:"block_top"`    // top margin of the first block
	BlockHeight float64 `json:"block_height"` // vertical distance between block tops
	RowPitch    float64 `json:"row_pitch"`    // vertical distance between rows in a block
	RowHeight   float64 `json:"row_height"`   // height of one option box
	LeftMargin  float64 `json:"left_margin"`  // x of the first option
	OptionWidth float64 `json:"option_width"` // width of one option box
	OptionGap   float64 `json:"option_gap"`   // horizontal gap between options
}

// Config describes one exam form.
type Config struct {
	Subjects      []Subject `json:"subjects"`
	Options       []string  `json:"options"`
	PerSubjectMax int       `json:"per_subject_max"`
	TotalMax      int       `json:"total_max"`
	Versions      []string  `json:"versions"`
	Layout        Layout    `json:"layout"`
}

// Default returns the 100-question, five-subject, four-option form.
//
// A fresh value is built on every call, so callers may not observe each
// other's modifications.
func Default() Config {
	return Config{
		Subjects: []Subject{
			{Name: "Python", First: 1, Last: 20, Aliases: []string{"python"}},
			{Name: "EDA", First: 21, Last: 40, Aliases: []string{"eda"}},
			{Name: "SQL", First: 41, Last: 60, Aliases: []string{"sql"}},
			{Name: "POWER BI", First: 61, Last: 80, Aliases: []string{"powerbi", "pbi"}},
			{Name: "Statistics", First: 81, Last: 100, Aliases: []string{
				"statistics", "stat", "stats", "statisitcs", "satisitcs", "statisics",
			}},
		},
		Options:       []string{"a", "b", "c", "d"},
		PerSubjectMax: 20,
		TotalMax:      100,
		Versions:      []string{"A", "B", "C", "D"},
		Layout: Layout{
			BlockTop:    0.08,
			BlockHeight: 0.18,
			RowPitch:    0.012,
			RowHeight:   0.012,
			LeftMargin:  0.10,
			OptionWidth: 0.12,
			OptionGap:   0.02,
		},
	}
}

// SubjectFor returns the subject owning question q and its position in
// Subjects. ok is false when q is outside every range.
func (c Config) SubjectFor(q int) (s Subject, index int, ok bool) {
	for i, sub := range c.Subjects {
		if sub.Contains(q) {
			return sub, i, true
		}
	}
	return Subject{}, -1, false
}

// Questions returns the number of questions covered by the subject partition.
func (c Config) Questions() int {
	n := 0
	for _, s := range c.Subjects {
		n += s.Len()
	}
	return n
}

// SubjectNames returns the subject names in partition order.
func (c Config) SubjectNames() []string {
	names := make([]string, len(c.Subjects))
	for i, s := range c.Subjects {
		names[i] = s.Name
	}
	return names
}

// HasVersion reports whether v is a known sheet version.
func (c Config) HasVersion(v string) bool {
	for _, known := range c.Versions {
		if known == v {
			return true
		}
	}
	return false
}

// ValidateVersion returns an error wrapping ErrUnsupportedVersion when v is
// not a known sheet version.
func (c Config) ValidateVersion(v string) error {
	if c.HasVersion(v) {
		return nil
	}
	return fmt.Errorf("%w %q: expected one of %s", ErrUnsupportedVersion, v, strings.Join(c.Versions, ", "))
}
