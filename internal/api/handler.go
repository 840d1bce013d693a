package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"parking-sign-backend/internal/model"
	"parking-sign-backend/internal/store"
)

// Ingester stores a spot read from a sign photo.
type Ingester interface {
	Ingest(ctx context.Context, image []byte, lat, lng float64) (*model.ParkingSpot, error)
}

// SpotQuerier answers viewport queries.
type SpotQuerier interface {
	Query(ctx context.Context, bounds store.Bounds, filter string) ([]model.ParkingSpot, error)
}

// Options wires the services behind the handlers.
type Options struct {
	Ingester       Ingester
	Spots          SpotQuerier
	Webpush        *webpush.Options
	MaxUploadBytes int64
	// SpotCache is flushed after every stored spot.
	SpotCache *cache.Cache
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store          store.Store
	ingester       Ingester
	spots          SpotQuerier
	webpush        *webpush.Options
	maxUploadBytes int64
	spotCache      *cache.Cache
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 15 << 20
	}
	return &Handler{
		store:          s,
		ingester:       opts.Ingester,
		spots:          opts.Spots,
		webpush:        opts.Webpush,
		maxUploadBytes: opts.MaxUploadBytes,
		spotCache:      opts.SpotCache,
	}
}
