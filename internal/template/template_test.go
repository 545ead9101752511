package template

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/omr-grader/internal/sheet"
)

func TestParse_PreservesOptionOrderAndSortsQuestions(t *testing.T) {
	doc := `{"questions": [
		{"index": 2, "options": {"d": [0.5, 0.1, 0.6, 0.2], "a": [0.1, 0.1, 0.2, 0.2]}},
		{"index": 1, "options": {"b": [0.1, 0.3, 0.2, 0.4], "c": [0.3, 0.3, 0.4, 0.4]}}
	]}`

	tpl, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tpl.Questions, 2)

	assert.Equal(t, 1, tpl.Questions[0].Index)
	assert.Equal(t, 2, tpl.Questions[1].Index)

	labels := func(q Question) []string {
		var out []string
		for _, o := range q.Options {
			out = append(out, o.Label)
		}
		return out
	}
	assert.Equal(t, []string{"b", "c"}, labels(tpl.Questions[0]))
	assert.Equal(t, []string{"d", "a"}, labels(tpl.Questions[1]))
	assert.Equal(t, Box{0.5, 0.1, 0.6, 0.2}, tpl.Questions[1].Options[0].Box)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		box  bool
	}{
		{"three coordinates", `{"questions":[{"index":1,"options":{"a":[0.1,0.2,0.3]}}]}`, true},
		{"string coordinate", `{"questions":[{"index":1,"options":{"a":[0.1,"x",0.3,0.4]}}]}`, true},
		{"options array", `{"questions":[{"index":1,"options":[1,2]}]}`, false},
		{"non-positive index", `{"questions":[{"index":0,"options":{}}]}`, false},
		{"not json", `questions`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			if tt.box {
				assert.True(t, errors.Is(err, ErrInvalidBox), "got %v", err)
			}
		})
	}
}

func TestQuestion_MarshalRoundTripKeepsOrder(t *testing.T) {
	q := Question{Index: 7, Options: []Option{
		{Label: "c", Box: Box{0.3, 0.1, 0.4, 0.2}},
		{Label: "a", Box: Box{0.1, 0.1, 0.2, 0.2}},
	}}

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.True(t, strings.Index(string(data), `"c"`) < strings.Index(string(data), `"a"`))

	var back Question
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, q, back)
}

func TestBox_Rect(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		w, h int
		want [4]int
	}{
		{"interior", Box{0.1, 0.2, 0.5, 0.6}, 100, 50, [4]int{10, 10, 50, 30}},
		{"full", Box{0, 0, 1, 1}, 64, 32, [4]int{0, 0, 64, 32}},
		{"beyond edges", Box{-0.5, -1, 2, 3}, 10, 10, [4]int{0, 0, 10, 10}},
		{"inverted", Box{0.8, 0.8, 0.2, 0.2}, 10, 10, [4]int{8, 8, 8, 8}},
		{"right edge", Box{1, 1, 1, 1}, 10, 10, [4]int{9, 9, 10, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.box.Rect(tt.w, tt.h)
			assert.Equal(t, tt.want, [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y})
		})
	}
}

func TestBox_RectAlwaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		b := Box{
			rng.Float64()*3 - 1, rng.Float64()*3 - 1,
			rng.Float64()*3 - 1, rng.Float64()*3 - 1,
		}
		a := Adjustment{
			ScaleX: 0.9 + rng.Float64()*0.2, ScaleY: 0.9 + rng.Float64()*0.2,
			OffsetX: rng.Float64()*0.1 - 0.05, OffsetY: rng.Float64()*0.1 - 0.05,
		}
		w, h := 1+rng.Intn(300), 1+rng.Intn(300)

		r := b.Adjust(a).Rect(w, h)
		require.True(t, r.Min.X >= 0 && r.Min.X <= w-1, "x0=%d w=%d", r.Min.X, w)
		require.True(t, r.Min.Y >= 0 && r.Min.Y <= h-1, "y0=%d h=%d", r.Min.Y, h)
		require.True(t, r.Max.X >= r.Min.X && r.Max.X <= w, "x1=%d x0=%d w=%d", r.Max.X, r.Min.X, w)
		require.True(t, r.Max.Y >= r.Min.Y && r.Max.Y <= h, "y1=%d y0=%d h=%d", r.Max.Y, r.Min.Y, h)
	}
}

func TestBox_AdjustIdentity(t *testing.T) {
	b := Box{0.1, 0.2, 0.3, 0.4}
	assert.Equal(t, b, b.Adjust(Identity()))
	assert.Equal(t, Box{0.15, 0.2, 0.35, 0.4}, roundBox(b.Adjust(Adjustment{ScaleX: 1, ScaleY: 1, OffsetX: 0.05})))
}

func TestSynthetic_DefaultGrid(t *testing.T) {
	cfg := sheet.Default()
	tpl := Synthetic(cfg)

	require.Len(t, tpl.Questions, 100)
	for i, q := range tpl.Questions {
		assert.Equal(t, i+1, q.Index)
		require.Len(t, q.Options, 4)
		for j, o := range q.Options {
			assert.Equal(t, cfg.Options[j], o.Label)
			// The last rows of the final block run past the bottom edge and
			// only survive through clamping.
			r := o.Box.Rect(800, 1000)
			assert.True(t, r.Max.Y <= 1000 && r.Min.Y <= r.Max.Y, "question %d option %s: %v", q.Index, o.Label, r)
		}
	}

	// Question 21 opens the second block.
	assert.InDelta(t, 0.08+0.18, tpl.Questions[20].Options[0].Box[1], 1e-9)
	// Option b starts after a plus the gap.
	assert.InDelta(t, 0.10+0.12+0.02, tpl.Questions[0].Options[1].Box[0], 1e-9)
}

func TestSynthetic_Deterministic(t *testing.T) {
	a := Synthetic(sheet.Default())
	b := Synthetic(sheet.Default())
	assert.Equal(t, a, b)
}

func roundBox(b Box) Box {
	for i := range b {
		b[i] = float64(int(b[i]*1e6+0.5)) / 1e6
	}
	return b
}
