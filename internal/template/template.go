// Package template models the question and option geometry of an answer
// sheet.
//
// Geometry is declared in normalized coordinates: every option is a Box
// [x0, y0, x1, y1] with values in [0, 1] relative to the width and height of
// whatever image it is later mapped onto. Mapping to pixels always goes
// through Box.Adjust and Box.Rect so that the detectors, the alignment
// estimator and the overlay renderer agree on every rectangle.
//
// # JSON Format
//
//	{"questions": [{"index": 1, "options": {"a": [0.10, 0.08, 0.22, 0.092], ...}}, ...]}
//
// Option order inside each "options" object is preserved; it is the order in
// which ties are broken during mark detection.
package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"sort"
)

// ErrInvalidBox is returned for option boxes that are not four finite numbers.
var ErrInvalidBox = errors.New("invalid option box")

// Box is a normalized rectangle [x0, y0, x1, y1].
type Box [4]float64

// UnmarshalJSON accepts exactly four finite numbers.
func (b *Box) UnmarshalJSON(data []byte) error {
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBox, err)
	}
	if len(vals) != 4 {
		return fmt.Errorf("%w: want 4 coordinates, got %d", ErrInvalidBox, len(vals))
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBox)
		}
	}
	copy(b[:], vals)
	return nil
}

// Adjustment scales and offsets normalized boxes before pixel mapping.
// ScaleX/ScaleY are expected near 1.0 (±10%), offsets near 0 (±5%).
type Adjustment struct {
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Identity returns the adjustment that leaves boxes unchanged.
func Identity() Adjustment {
	return Adjustment{ScaleX: 1, ScaleY: 1}
}

// Adjust applies a to the box and clamps every coordinate to [0, 1].
func (b Box) Adjust(a Adjustment) Box {
	return Box{
		clamp(b[0]*a.ScaleX+a.OffsetX, 0, 1),
		clamp(b[1]*a.ScaleY+a.OffsetY, 0, 1),
		clamp(b[2]*a.ScaleX+a.OffsetX, 0, 1),
		clamp(b[3]*a.ScaleY+a.OffsetY, 0, 1),
	}
}

// Shift translates the box by (dx, dy) and clamps to [0, 1].
func (b Box) Shift(dx, dy float64) Box {
	return Box{
		clamp(b[0]+dx, 0, 1),
		clamp(b[1]+dy, 0, 1),
		clamp(b[2]+dx, 0, 1),
		clamp(b[3]+dy, 0, 1),
	}
}

// Rect maps the box onto a width x height pixel grid with origin (0, 0).
//
// The top-left corner is clamped to [0, w-1] x [0, h-1] and the bottom-right
// to [0, w] x [0, h], then truncated. The result never leaves the image and
// never has Max < Min; it may be empty.
func (b Box) Rect(w, h int) image.Rectangle {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	fw, fh := float64(w), float64(h)
	x0 := int(clamp(b[0]*fw, 0, fw-1))
	y0 := int(clamp(b[1]*fh, 0, fh-1))
	x1 := int(clamp(b[2]*fw, 0, fw))
	y1 := int(clamp(b[3]*fh, 0, fh))
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return image.Rectangle{Min: image.Pt(x0, y0), Max: image.Pt(x1, y1)}
}

// Option is one labelled answer bubble.
type Option struct {
	Label string
	Box   Box
}

// Question is a numbered row of options.
type Question struct {
	Index   int
	Options []Option
}

type questionJSON struct {
	Index   int             `json:"index"`
	Options json.RawMessage `json:"options"`
}

// UnmarshalJSON decodes a question while keeping option declaration order.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	opts, err := decodeOptions(raw.Options)
	if err != nil {
		return fmt.Errorf("question %d: %w", raw.Index, err)
	}
	q.Index = raw.Index
	q.Options = opts
	return nil
}

// MarshalJSON encodes the options as an object in declaration order.
func (q Question) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"index":%d,"options":{`, q.Index)
	for i, o := range q.Options {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, err := json.Marshal(o.Label)
		if err != nil {
			return nil, err
		}
		box, err := json.Marshal([4]float64(o.Box))
		if err != nil {
			return nil, err
		}
		buf.Write(label)
		buf.WriteByte(':')
		buf.Write(box)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func decodeOptions(raw json.RawMessage) ([]Option, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("options must be an object")
	}

	opts := make([]Option, 0, 4)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		label, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected option key %v", tok)
		}
		var box Box
		if err := dec.Decode(&box); err != nil {
			return nil, fmt.Errorf("option %q: %w", label, err)
		}
		opts = append(opts, Option{Label: label, Box: box})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Template is an ordered list of questions.
type Template struct {
	Questions []Question `json:"questions"`
}

// Parse decodes a template and sorts its questions by index.
func Parse(r io.Reader) (*Template, error) {
	var t Template
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	for _, q := range t.Questions {
		if q.Index <= 0 {
			return nil, fmt.Errorf("invalid question index %d: must be positive", q.Index)
		}
	}
	t.sort()
	return &t, nil
}

// Load reads and parses a template file.
func Load(path string) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (t *Template) sort() {
	sort.SliceStable(t.Questions, func(i, j int) bool {
		return t.Questions[i].Index < t.Questions[j].Index
	})
}

// Sorted returns the questions ordered by index without modifying t.
func (t *Template) Sorted() []Question {
	qs := make([]Question, len(t.Questions))
	copy(qs, t.Questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Index < qs[j].Index })
	return qs
}

// Boxes returns every option box in question, then option order.
func (t *Template) Boxes() []Box {
	var boxes []Box
	for _, q := range t.Sorted() {
		for _, o := range q.Options {
			boxes = append(boxes, o.Box)
		}
	}
	return boxes
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
