// Package di provides dependency injection container
package di

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ssargent/infinipic/pkg/api"
	"github.com/ssargent/infinipic/pkg/builder"
	"github.com/ssargent/infinipic/pkg/config"
	"github.com/ssargent/infinipic/pkg/corpus"
	"github.com/ssargent/infinipic/pkg/imagesrc"
	"github.com/ssargent/infinipic/pkg/metrics"
	"github.com/ssargent/infinipic/pkg/mosaic"
	"github.com/ssargent/infinipic/pkg/scanner"
	"github.com/ssargent/infinipic/pkg/thumbcache"
)

// Container holds all the dependencies for the application
type Container struct {
	config   *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// NewContainer creates a new dependency injection container. Metrics are
// registered on a private registry so containers never collide.
func NewContainer(cfg *config.Config, logger zerolog.Logger) *Container {
	registry := prometheus.NewRegistry()
	return &Container{
		config:   cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.New(registry),
	}
}

// Config returns the resolved configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() zerolog.Logger {
	return c.logger
}

// Metrics returns the application metrics
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Registry returns the registry the metrics are registered on
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Source creates an image source honouring the imaging settings
func (c *Container) Source() (*imagesrc.Source, error) {
	interp, err := imagesrc.ParseInterpolation(c.config.Imaging.Interpolation)
	if err != nil {
		return nil, err
	}
	return imagesrc.NewSource(
		imagesrc.WithInterpolation(interp),
		imagesrc.WithEXIFOrientation(c.config.Imaging.RespectEXIF),
	), nil
}

// Scanner creates the candidate enumerator for the image directory
func (c *Container) Scanner() *scanner.Scanner {
	return scanner.New(c.config.ImageDirectory, c.config.DirectoryBlacklist)
}

// OpenCache opens the thumbnail cache, or returns nil when it is disabled
func (c *Container) OpenCache() (*thumbcache.Cache, error) {
	if !c.config.Cache.Enabled {
		return nil, nil
	}
	return thumbcache.Open(c.config.Cache.Dir, c.logger)
}

// GenerateCorpus builds the corpus from the image directory and persists it
// to the thumbnail file
func (c *Container) GenerateCorpus(ctx context.Context, progress io.Writer) (*builder.Stats, error) {
	if c.config.ImageDirectory == "" {
		return nil, fmt.Errorf("image_directory must be set to generate thumbnails")
	}

	source, err := c.Source()
	if err != nil {
		return nil, err
	}
	cache, err := c.OpenCache()
	if err != nil {
		return nil, err
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("failed to close thumbnail cache")
			}
		}()
	}

	b := builder.New(builder.Config{
		Enumerator: c.Scanner(),
		Source:     source,
		Cache:      cache,
		Workers:    c.config.Workers,
		Progress:   progress,
		Logger:     c.logger,
		Metrics:    c.metrics,
	})
	built, stats, err := b.Build(ctx, c.corpusOptions()...)
	if err != nil {
		return nil, err
	}

	if err := built.Persist(c.config.ThumbnailFile); err != nil {
		return nil, err
	}
	return stats, nil
}

// RestoreCorpus loads the thumbnail file
func (c *Container) RestoreCorpus() (*corpus.Corpus, *corpus.RestoreResult, error) {
	restored := corpus.New(c.corpusOptions()...)
	result, err := restored.Restore(c.config.ThumbnailFile)
	if err != nil {
		return nil, nil, err
	}
	return restored, result, nil
}

// BuildMosaic loads the image at path at the grid's source size and
// synthesises it from restored
func (c *Container) BuildMosaic(ctx context.Context, restored *corpus.Corpus, path string) (*mosaic.Mosaic, error) {
	source, err := c.Source()
	if err != nil {
		return nil, err
	}

	width, height := c.config.Grid.SourceSize()
	src, err := source.Load(path, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return mosaic.Build(ctx, src, restored, mosaic.Options{
		Grid:    c.config.Grid,
		Workers: c.config.Workers,
		Logger:  &c.logger,
		Metrics: c.metrics,
	})
}

// NewServer creates the HTTP viewer over restored
func (c *Container) NewServer(restored *corpus.Corpus) (*api.Server, error) {
	source, err := c.Source()
	if err != nil {
		return nil, err
	}
	interp, _ := imagesrc.ParseInterpolation(c.config.Imaging.Interpolation)

	return api.NewServer(restored, api.ServerConfig{
		Bind:          c.config.Server.Bind,
		Port:          c.config.Server.Port,
		Grid:          c.config.Grid,
		Workers:       c.config.Workers,
		Scale:         c.config.Scale,
		Interpolation: interp,
	},
		api.WithLogger(c.logger),
		api.WithMetrics(c.metrics, c.registry),
		api.WithSource(source),
	), nil
}

func (c *Container) corpusOptions() []corpus.Option {
	return []corpus.Option{corpus.WithLogger(c.logger), corpus.WithMetrics(c.metrics)}
}
