package api

import (
	"time"

	"github.com/nfnt/resize"

	"github.com/ssargent/infinipic/pkg/mosaic"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports liveness and what the viewer holds
type HealthResponse struct {
	Status     string `json:"status"`
	Thumbnails int    `json:"thumbnails"`
	Mosaics    int    `json:"mosaics"`
}

// CorpusResponse describes the loaded corpus
type CorpusResponse struct {
	Thumbnails int `json:"thumbnails"`
}

// ThumbnailResponse describes one corpus entry
type ThumbnailResponse struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// MosaicSummary describes a synthesised mosaic
type MosaicSummary struct {
	ID         string    `json:"id"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	Distinct   int       `json:"distinct"`
	TotalScore uint64    `json:"total_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// MosaicList lists mosaic ids in registration order
type MosaicList struct {
	Mosaics []string `json:"mosaics"`
}

// CellResponse describes the thumbnail chosen for one grid cell
type CellResponse struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Index int    `json:"index"`
	Name  string `json:"name"`
	Score uint64 `json:"score"`
}

// ServerConfig holds configuration for the viewer
type ServerConfig struct {
	Bind          string
	Port          int
	Grid          mosaic.Grid
	Workers       int
	Scale         float64 // default scale for rendered mosaics
	MaxScale      float64 // largest ?scale= accepted, 0 means 8
	Interpolation resize.InterpolationFunction
	MaxUploadSize int64 // 0 means 64 MiB
}

func summarize(m *mosaic.Mosaic) MosaicSummary {
	grid := m.Grid()
	return MosaicSummary{
		ID:         m.ID().String(),
		Rows:       grid.Rows,
		Cols:       grid.Cols,
		Distinct:   m.Distinct(),
		TotalScore: m.TotalScore(),
		CreatedAt:  m.CreatedAt(),
	}
}
