// Package builder runs the corpus-building pass: enumerate candidate images,
// turn each into a thumbnail in parallel, and collect the accepted ones in
// enumeration order.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v2"
	"github.com/sourcegraph/conc/stream"

	"github.com/ssargent/infinipic/pkg/corpus"
	"github.com/ssargent/infinipic/pkg/imagesrc"
	"github.com/ssargent/infinipic/pkg/metrics"
	"github.com/ssargent/infinipic/pkg/thumbcache"
	"github.com/ssargent/infinipic/pkg/thumbnail"
)

// Enumerator yields candidate image paths. Errors yielded alongside an empty
// path are walk failures the enumeration continues past.
type Enumerator interface {
	Paths(ctx context.Context) iter.Seq2[string, error]
}

// ThumbnailSource turns an image file into a thumbnail
type ThumbnailSource interface {
	Thumbnail(path string) (thumbnail.Thumbnail, error)
}

// Config holds the collaborators of a Builder
type Config struct {
	Enumerator Enumerator
	Source     ThumbnailSource
	Cache      *thumbcache.Cache // optional
	Workers    int               // 0 means runtime.NumCPU()
	Progress   io.Writer         // optional progress bar output
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

// Stats summarises a build
type Stats struct {
	Candidates int
	Accepted   int
	Skipped    int // wrong aspect ratio
	Failed     int // unreadable or undecodable
	CacheHits  int
	Duration   time.Duration
}

// Builder produces a corpus from a set of candidate images
type Builder struct {
	config Config
}

// New creates a builder
func New(config Config) *Builder {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Source == nil {
		config.Source = imagesrc.NewSource()
	}
	return &Builder{config: config}
}

type outcome struct {
	thumbnail thumbnail.Thumbnail
	result    string
	cached    bool
	err       error
}

// Build enumerates and processes every candidate. Candidates are processed
// concurrently but added to the corpus in enumeration order, so the result
// does not depend on the number of workers.
func (b *Builder) Build(ctx context.Context, opts ...corpus.Option) (*corpus.Corpus, *Stats, error) {
	start := time.Now()
	log := b.config.Logger

	var paths []string
	for path, err := range b.config.Enumerator.Paths(ctx) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		if err != nil {
			log.Warn().Err(err).Msg("skipping unreadable directory entry")
			continue
		}
		paths = append(paths, path)
	}
	log.Info().Int("candidates", len(paths)).Msg("generating thumbnails")

	var bar *progressbar.ProgressBar
	if b.config.Progress != nil {
		bar = progressbar.NewOptions(len(paths), progressbar.OptionSetWriter(b.config.Progress))
	}

	c := corpus.New(opts...)
	stats := &Stats{Candidates: len(paths)}

	s := stream.New().WithMaxGoroutines(b.config.Workers)
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		s.Go(func() stream.Callback {
			o := b.process(ctx, path)
			return func() {
				b.record(c, stats, path, o)
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		})
	}
	s.Wait()

	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(b.config.Progress)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("accepted", stats.Accepted).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Int("cache_hits", stats.CacheHits).
		Dur("duration", stats.Duration).
		Msg("thumbnails generated")
	return c, stats, nil
}

// record runs on the stream's callback goroutine, one outcome at a time
func (b *Builder) record(c *corpus.Corpus, stats *Stats, path string, o outcome) {
	if o.cached {
		stats.CacheHits++
		b.config.Metrics.RecordThumbnail(metrics.ResultCached)
	}

	switch o.result {
	case metrics.ResultAccepted:
		c.Add(o.thumbnail)
		stats.Accepted++
	case metrics.ResultSkipped:
		stats.Skipped++
		b.config.Logger.Debug().Str("path", path).Msg("skipping image with wrong aspect ratio")
	case metrics.ResultFailed:
		stats.Failed++
		b.config.Logger.Warn().Err(o.err).Str("path", path).Msg("skipping unreadable image")
	}
	b.config.Metrics.RecordThumbnail(o.result)
}

func (b *Builder) process(ctx context.Context, path string) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{result: metrics.ResultFailed, err: err}
	}

	var key []byte
	if b.config.Cache != nil {
		if info, err := os.Stat(path); err == nil {
			key = thumbcache.Key(path, info)
			entry, ok, err := b.config.Cache.Get(key)
			if err != nil {
				b.config.Logger.Warn().Err(err).Str("path", path).Msg("thumbnail cache read failed")
			}
			if ok && entry.Rejected {
				return outcome{result: metrics.ResultSkipped, cached: true}
			}
			if ok {
				return outcome{thumbnail: entry.Thumbnail, result: metrics.ResultAccepted, cached: true}
			}
		}
	}

	t, err := b.config.Source.Thumbnail(path)
	switch {
	case errors.Is(err, imagesrc.ErrAspectMismatch):
		if key != nil {
			b.cachePut(path, func() error { return b.config.Cache.PutRejected(key) })
		}
		return outcome{result: metrics.ResultSkipped}
	case err != nil:
		return outcome{result: metrics.ResultFailed, err: err}
	}

	if key != nil {
		b.cachePut(path, func() error { return b.config.Cache.PutThumbnail(key, &t) })
	}
	return outcome{thumbnail: t, result: metrics.ResultAccepted}
}

func (b *Builder) cachePut(path string, put func() error) {
	if err := put(); err != nil {
		b.config.Logger.Warn().Err(err).Str("path", path).Msg("thumbnail cache write failed")
	}
}
