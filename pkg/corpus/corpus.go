// Package corpus owns the ordered collection of thumbnails used as mosaic
// tiles. It persists the collection as framed records and answers exhaustive
// nearest-thumbnail queries.
//
// Entries are addressed by index. Indices are stable: the corpus only ever
// appends, or is replaced as a whole by Restore. Once populated the corpus is
// read-only and FindClosest and At may be called from many goroutines. Add and
// Restore must not run concurrently with queries.
package corpus

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssargent/infinipic/pkg/metrics"
	"github.com/ssargent/infinipic/pkg/thumbnail"
)

// Errors
var (
	ErrEmptyCorpus     = errors.New("corpus is empty")
	ErrIndexOutOfRange = errors.New("corpus index out of range")
)

// Corpus is an ordered, append-only set of thumbnails
type Corpus struct {
	thumbnails []thumbnail.Thumbnail
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Corpus
type Option func(*Corpus)

// WithLogger sets the logger used for persistence events
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Corpus) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Corpus) {
		c.metrics = m
	}
}

// New creates an empty corpus
func New(opts ...Option) *Corpus {
	c := &Corpus{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add appends t and returns its index
func (c *Corpus) Add(t thumbnail.Thumbnail) int {
	c.thumbnails = append(c.thumbnails, t)
	return len(c.thumbnails) - 1
}

// Len returns the number of thumbnails
func (c *Corpus) Len() int {
	return len(c.thumbnails)
}

// At returns the thumbnail at index i. The result must not be modified.
func (c *Corpus) At(i int) (*thumbnail.Thumbnail, error) {
	if i < 0 || i >= len(c.thumbnails) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(c.thumbnails))
	}
	return &c.thumbnails[i], nil
}

// All iterates over the thumbnails in insertion order
func (c *Corpus) All() iter.Seq2[int, *thumbnail.Thumbnail] {
	return func(yield func(int, *thumbnail.Thumbnail) bool) {
		for i := range c.thumbnails {
			if !yield(i, &c.thumbnails[i]) {
				return
			}
		}
	}
}

// Match is the result of a nearest thumbnail search
type Match struct {
	Index int
	Score uint64
}

// FindClosest scans every thumbnail and returns the one with the smallest
// distance to query. Ties go to the earliest inserted thumbnail.
func (c *Corpus) FindClosest(query *thumbnail.Pixels) (Match, error) {
	if len(c.thumbnails) == 0 {
		return Match{}, ErrEmptyCorpus
	}
	start := time.Now()

	best := Match{Index: -1}
	for i := range c.thumbnails {
		score := thumbnail.Distance(query, &c.thumbnails[i].Pixels)
		if best.Index < 0 || score < best.Score {
			best = Match{Index: i, Score: score}
		}
	}

	c.metrics.ObserveFindClosest(time.Since(start))
	return best, nil
}
