package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/infinipic/pkg/corpus"
	"github.com/ssargent/infinipic/pkg/imagesrc"
	"github.com/ssargent/infinipic/pkg/mosaic"
	"github.com/ssargent/infinipic/pkg/render"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, HealthResponse{
		Status:     "ok",
		Thumbnails: s.corpus.Len(),
		Mosaics:    len(s.ids()),
	}, http.StatusOK)
}

func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, CorpusResponse{Thumbnails: s.corpus.Len()}, http.StatusOK)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	index, ok := s.thumbnailIndex(w, r)
	if !ok {
		return
	}
	t, _ := s.corpus.At(index)
	sendJSON(w, ThumbnailResponse{Index: index, Name: t.DisplayName()}, http.StatusOK)
}

func (s *Server) handleThumbnailImage(w http.ResponseWriter, r *http.Request) {
	index, ok := s.thumbnailIndex(w, r)
	if !ok {
		return
	}
	t, _ := s.corpus.At(index)
	w.Header().Set("Content-Type", "image/png")
	if err := render.WritePNG(w, render.Thumbnail(t)); err != nil {
		s.logger.Error().Err(err).Int("index", index).Msg("failed to write thumbnail")
	}
}

// thumbnailIndex parses and range-checks the {index} parameter, writing the
// error response itself when it fails
func (s *Server) thumbnailIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		sendError(w, "Index must be an integer", http.StatusBadRequest)
		return 0, false
	}
	if _, err := s.corpus.At(index); err != nil {
		sendError(w, err.Error(), http.StatusNotFound)
		return 0, false
	}
	return index, true
}

func (s *Server) handleCreateMosaic(w http.ResponseWriter, r *http.Request) {
	if s.corpus.Len() == 0 {
		sendError(w, corpus.ErrEmptyCorpus.Error(), http.StatusConflict)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)
	width, height := s.config.Grid.SourceSize()
	src, err := s.source.Decode(body, width, height)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "Image too large", http.StatusRequestEntityTooLarge)
			return
		}
		if errors.Is(err, imagesrc.ErrTooLarge) {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		sendError(w, "Failed to decode image: "+err.Error(), http.StatusBadRequest)
		return
	}

	m, err := mosaic.Build(r.Context(), src, s.corpus, mosaic.Options{
		Grid:    s.config.Grid,
		Workers: s.config.Workers,
		Logger:  &s.logger,
		Metrics: s.metrics,
	})
	switch {
	case errors.Is(err, corpus.ErrEmptyCorpus):
		sendError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("failed to build mosaic")
		sendError(w, "Failed to build mosaic", http.StatusInternalServerError)
		return
	}

	s.Register(m)
	sendJSON(w, summarize(m), http.StatusCreated)
}

func (s *Server) handleListMosaics(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, MosaicList{Mosaics: s.ids()}, http.StatusOK)
}

func (s *Server) handleGetMosaic(w http.ResponseWriter, r *http.Request) {
	m, ok := s.mosaicParam(w, r)
	if !ok {
		return
	}
	sendJSON(w, summarize(m), http.StatusOK)
}

func (s *Server) handleMosaicImage(w http.ResponseWriter, r *http.Request) {
	m, ok := s.mosaicParam(w, r)
	if !ok {
		return
	}

	scale := s.config.Scale
	if raw := r.URL.Query().Get("scale"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			sendError(w, "Scale must be a number", http.StatusBadRequest)
			return
		}
		if v > s.config.MaxScale {
			sendError(w, fmt.Sprintf("Scale must not exceed %g", s.config.MaxScale), http.StatusBadRequest)
			return
		}
		scale = v
	}

	img, err := render.Render(m, scale, s.config.Interpolation)
	switch {
	case errors.Is(err, render.ErrScale), errors.Is(err, render.ErrOutputTooLarge):
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.logger.Error().Err(err).Str("mosaic", m.ID().String()).Msg("failed to render mosaic")
		sendError(w, "Failed to render mosaic", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := render.WritePNG(w, img); err != nil {
		s.logger.Error().Err(err).Str("mosaic", m.ID().String()).Msg("failed to write mosaic")
	}
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	m, ok := s.mosaicParam(w, r)
	if !ok {
		return
	}

	row, rowErr := strconv.Atoi(chi.URLParam(r, "row"))
	col, colErr := strconv.Atoi(chi.URLParam(r, "col"))
	if rowErr != nil || colErr != nil {
		sendError(w, "Row and column must be integers", http.StatusBadRequest)
		return
	}

	index, err := m.Index(row, col)
	if err != nil {
		sendError(w, err.Error(), http.StatusNotFound)
		return
	}
	score, _ := m.Score(row, col)
	t, _ := m.Cell(row, col)

	sendJSON(w, CellResponse{
		Row:   row,
		Col:   col,
		Index: index,
		Name:  t.DisplayName(),
		Score: score,
	}, http.StatusOK)
}

func (s *Server) mosaicParam(w http.ResponseWriter, r *http.Request) (*mosaic.Mosaic, bool) {
	id := chi.URLParam(r, "id")
	m, ok := s.lookup(id)
	if !ok {
		sendError(w, "Mosaic not found: "+id, http.StatusNotFound)
		return nil, false
	}
	return m, true
}
