// Package api serves a read-mostly HTTP viewer over a restored corpus and the
// mosaics synthesised from it.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ssargent/infinipic/pkg/corpus"
	"github.com/ssargent/infinipic/pkg/imagesrc"
	"github.com/ssargent/infinipic/pkg/metrics"
	"github.com/ssargent/infinipic/pkg/mosaic"
)

const (
	defaultMaxUploadSize = 64 << 20
	defaultMaxScale      = 8
)

// Server holds the viewer state
type Server struct {
	corpus   *corpus.Corpus
	source   *imagesrc.Source
	config   ServerConfig
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   zerolog.Logger

	mu      sync.RWMutex
	mosaics map[string]*mosaic.Mosaic
	order   []string
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request and event logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records request metrics on m and exposes gatherer on /metrics
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithSource sets the decoder used for uploaded images
func WithSource(source *imagesrc.Source) Option {
	return func(s *Server) {
		s.source = source
	}
}

// NewServer creates a viewer over c
func NewServer(c *corpus.Corpus, config ServerConfig, opts ...Option) *Server {
	if config.Grid == (mosaic.Grid{}) {
		config.Grid = mosaic.DefaultGrid
	}
	if config.Scale == 0 {
		config.Scale = 1
	}
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = defaultMaxUploadSize
	}
	if config.MaxScale <= 0 {
		config.MaxScale = defaultMaxScale
	}

	s := &Server{
		corpus:   c,
		config:   config,
		logger:   zerolog.Nop(),
		gatherer: prometheus.DefaultGatherer,
		mosaics:  make(map[string]*mosaic.Mosaic),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		s.source = imagesrc.NewSource(imagesrc.WithInterpolation(config.Interpolation))
	}
	return s
}

// Register makes m available to the viewer and returns its id
func (s *Server) Register(m *mosaic.Mosaic) string {
	id := m.ID().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mosaics[id]; !ok {
		s.order = append(s.order, id)
	}
	s.mosaics[id] = m
	return id
}

func (s *Server) lookup(id string) (*mosaic.Mosaic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mosaics[id]
	return m, ok
}

func (s *Server) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...)
}

// Router builds the HTTP handler with all routes configured
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.metrics.InstrumentHandler("GET", "/healthz", s.handleHealth))
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/corpus", s.metrics.InstrumentHandler("GET", "/api/v1/corpus", s.handleCorpus))
		r.Get("/corpus/{index}", s.metrics.InstrumentHandler("GET", "/api/v1/corpus/{index}", s.handleThumbnail))
		r.Get("/corpus/{index}/image.png", s.metrics.InstrumentHandler("GET", "/api/v1/corpus/{index}/image.png", s.handleThumbnailImage))

		r.Post("/mosaics", s.metrics.InstrumentHandler("POST", "/api/v1/mosaics", s.handleCreateMosaic))
		r.Get("/mosaics", s.metrics.InstrumentHandler("GET", "/api/v1/mosaics", s.handleListMosaics))
		r.Get("/mosaics/{id}", s.metrics.InstrumentHandler("GET", "/api/v1/mosaics/{id}", s.handleGetMosaic))
		r.Get("/mosaics/{id}/image.png", s.metrics.InstrumentHandler("GET", "/api/v1/mosaics/{id}/image.png", s.handleMosaicImage))
		r.Get("/mosaics/{id}/cells/{row}/{col}", s.metrics.InstrumentHandler("GET", "/api/v1/mosaics/{id}/cells/{row}/{col}", s.handleCell))
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Bind, strconv.Itoa(s.config.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Int("thumbnails", s.corpus.Len()).Msg("starting viewer")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("viewer stopped: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down viewer")
		return srv.Shutdown(shutdownCtx)
	}
}
