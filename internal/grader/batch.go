package grader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/omr-grader/internal/answerkey"
	"github.com/ironsheep/omr-grader/internal/imaging"
)

// MaxBatch is the default cap on the number of sheets graded per batch.
const MaxBatch = 500

// ErrEmptyImage is returned for a nil or zero-sized image.
var ErrEmptyImage = errors.New("empty image")

// Item is one sheet of a batch. Image is used when set, otherwise the image
// is decoded from Path by the worker that grades it.
type Item struct {
	ID    string
	Path  string
	Image image.Image
}

func (it Item) id(i int) string {
	switch {
	case it.ID != "":
		return it.ID
	case it.Path != "":
		return filepath.Base(it.Path)
	default:
		return strconv.Itoa(i + 1)
	}
}

// ItemResult is the outcome of one batch item. Exactly one of Result and
// Err is set.
type ItemResult struct {
	ID     string  `json:"id"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
	Err    error   `json:"-"`
}

// BatchOptions sizes the worker pool.
type BatchOptions struct {
	// Workers is the number of sheets graded concurrently. Values below 1
	// mean 1.
	Workers int

	// MaxBatch caps the number of items graded. Values below 1 mean
	// MaxBatch.
	MaxBatch int
}

// BatchResult holds the per-item results in submission order.
type BatchResult struct {
	RunID string       `json:"run_id"`
	Items []ItemResult `json:"items"`

	// Skipped counts the items beyond the cap that were not graded.
	Skipped int `json:"skipped"`
}

// Failed returns the number of items that ended in an error.
func (b *BatchResult) Failed() int {
	n := 0
	for _, it := range b.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// Batch grades items on a fixed pool of workers and returns their results
// in submission order.
//
// The version is validated once up front; an unsupported version fails the
// whole batch. After that items fail independently: a decode or grading
// error is recorded on the item and the rest of the batch continues. When
// ctx is cancelled no further items are dispatched and every undispatched
// item carries the context error.
func (g *Grader) Batch(ctx context.Context, items []Item, key answerkey.Key, opts Options, bo BatchOptions) (*BatchResult, error) {
	if err := g.cfg.ValidateVersion(opts.Version); err != nil {
		return nil, fmt.Errorf("failed to grade batch: %w", err)
	}

	limit := bo.MaxBatch
	if limit < 1 {
		limit = MaxBatch
	}
	res := &BatchResult{RunID: uuid.NewString()}
	if len(items) > limit {
		res.Skipped = len(items) - limit
		items = items[:limit]
	}
	workers := bo.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	log := g.log.With().Str("run_id", res.RunID).Logger()
	if res.Skipped > 0 {
		log.Warn().Int("skipped", res.Skipped).Int("limit", limit).Msg("batch truncated")
	}
	log.Info().Int("items", len(items)).Int("workers", workers).Msg("batch started")

	res.Items = make([]ItemResult, len(items))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res.Items[i] = g.gradeItem(ctx, i, items[i], key, opts)
				if err := res.Items[i].Err; err != nil {
					log.Warn().Err(err).Str("item", res.Items[i].ID).Msg("item failed")
				}
			}
		}()
	}

	next := 0
dispatch:
	for ; next < len(items); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(items); i++ {
		res.Items[i] = failed(items[i].id(i), ctx.Err())
	}

	log.Info().Int("failed", res.Failed()).Msg("batch finished")
	return res, nil
}

func (g *Grader) gradeItem(ctx context.Context, i int, it Item, key answerkey.Key, opts Options) ItemResult {
	id := it.id(i)
	img := it.Image
	if img == nil {
		decoded, _, err := imaging.Open(it.Path)
		if err != nil {
			return failed(id, err)
		}
		img = decoded
	}
	r, err := g.Grade(ctx, img, key, opts)
	if err != nil {
		return failed(id, err)
	}
	return ItemResult{ID: id, Result: r}
}

func failed(id string, err error) ItemResult {
	return ItemResult{ID: id, Error: err.Error(), Err: err}
}
