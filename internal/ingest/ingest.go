// Package ingest turns one located sign photo into a persisted parking spot.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"parking-sign-backend/internal/blob"
	"parking-sign-backend/internal/imagedata"
	"parking-sign-backend/internal/model"
	"parking-sign-backend/internal/rules"
	"parking-sign-backend/internal/store"
)

// Interpreter reads a sign photo.
type Interpreter interface {
	Interpret(ctx context.Context, image []byte) (rules.Result, error)
}

// Notifier receives every spot after it has been stored. Dispatch must not
// block the caller.
type Notifier interface {
	Dispatch(spot model.ParkingSpot)
}

// Options bounds the side calls of an ingestion.
type Options struct {
	UploadTimeout time.Duration
	WriteTimeout  time.Duration
}

// Service runs the ingestion pipeline.
type Service struct {
	store       store.Store
	uploader    blob.Uploader
	interpreter Interpreter
	notifier    Notifier
	opts        Options
}

// NewService creates an ingestion service. notifier may be nil.
func NewService(s store.Store, uploader blob.Uploader, in Interpreter, notifier Notifier, opts Options) *Service {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Service{
		store:       s,
		uploader:    uploader,
		interpreter: in,
		notifier:    notifier,
		opts:        opts,
	}
}

// Ingest uploads and interprets the image, then stores the spot with all of
// its periods. Nothing is stored unless the sign was accepted.
func (s *Service) Ingest(ctx context.Context, image []byte, lat, lng float64) (*model.ParkingSpot, error) {
	if !validLatitude(lat) || !validLongitude(lng) {
		return nil, &IngestionError{
			Reason: ReasonInvalidCoordinates,
			Err:    fmt.Errorf("latitude %v, longitude %v out of range", lat, lng),
		}
	}
	if len(image) == 0 {
		return nil, &IngestionError{Reason: ReasonInvalidImage, Err: imagedata.ErrEmpty}
	}

	format := imagedata.Detect(image)

	var (
		imageURL string
		result   rules.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		imageURL = s.upload(gctx, image, format.ContentType)
		return nil
	})
	g.Go(func() error {
		var err error
		result, err = s.interpreter.Interpret(gctx, image)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("Interpreter unavailable for spot at (%f, %f): %v", lat, lng, err)
		return nil, &IngestionError{Reason: ReasonInterpreterUnavailable, Err: err}
	}

	var accepted rules.Accepted
	switch r := result.(type) {
	case rules.Accepted:
		accepted = r
	case rules.Rejected:
		return nil, rejection(r)
	default:
		return nil, &IngestionError{Reason: ReasonSchemaViolation, Err: fmt.Errorf("unexpected result %T", result)}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spot := model.NewParkingSpot(lat, lng, imageURL, accepted)
	wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	if err := s.store.InsertSpotWithPeriods(wctx, &spot); err != nil {
		return nil, fmt.Errorf("failed to store spot: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Dispatch(spot)
	}
	return &spot, nil
}

// upload stores the photo, or falls back to the placeholder URL.
func (s *Service) upload(ctx context.Context, image []byte, contentType string) string {
	ctx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	defer cancel()

	url, err := s.uploader.Put(ctx, image, contentType)
	if err != nil {
		if !errors.Is(err, blob.ErrDisabled) {
			log.Printf("Image upload failed, using placeholder: %v", err)
		}
		return model.PlaceholderImageURL
	}
	return url
}

func rejection(r rules.Rejected) *IngestionError {
	switch r.Reason {
	case rules.ReasonNotAParkingSign:
		return &IngestionError{Reason: ReasonNotAParkingSign}
	case rules.ReasonMalformedResponse:
		log.Printf("Model answer was not parseable JSON")
		return &IngestionError{Reason: ReasonSchemaViolation, Err: errors.New("malformed model response")}
	default:
		log.Printf("Model answer violated the response schema")
		return &IngestionError{Reason: ReasonSchemaViolation}
	}
}

func validLatitude(v float64) bool {
	return !math.IsNaN(v) && v >= -90 && v <= 90
}

func validLongitude(v float64) bool {
	return !math.IsNaN(v) && v >= -180 && v <= 180
}
