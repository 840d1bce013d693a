// Package query answers map viewport requests for parking spots.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"

	"parking-sign-backend/internal/model"
	"parking-sign-backend/internal/rules"
	"parking-sign-backend/internal/store"
)

// ErrInvalidBounds is returned for a box outside the coordinate ranges or
// with south above north.
var ErrInvalidBounds = errors.New("invalid bounds")

// Service filters stored spots by area and shorthand rule.
type Service struct {
	store      store.Store
	maxResults int
}

// NewService creates a query service. maxResults <= 0 means unlimited.
func NewService(s store.Store, maxResults int) *Service {
	return &Service{store: s, maxResults: maxResults}
}

// Query returns the spots inside b, newest first, keeping only those that
// match the filter.
func (s *Service) Query(ctx context.Context, b store.Bounds, filter string) ([]model.ParkingSpot, error) {
	if err := Validate(b); err != nil {
		return nil, err
	}
	f, err := rules.ParseFilter(filter)
	if err != nil {
		return nil, err
	}

	spots, err := s.store.QueryByBoundingBox(ctx, b)
	if err != nil {
		return nil, err
	}

	out := make([]model.ParkingSpot, 0, len(spots))
	for _, spot := range spots {
		if !f.Matches(spot.Description, spot.Rules()) {
			continue
		}
		out = append(out, spot)
		if s.maxResults > 0 && len(out) == s.maxResults {
			break
		}
	}
	return out, nil
}

// Validate checks that every edge is a finite coordinate and that south does
// not exceed north. West may exceed east for boxes across the antimeridian.
func Validate(b store.Bounds) error {
	for _, v := range []float64{b.North, b.South, b.East, b.West} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite edge", ErrInvalidBounds)
		}
	}
	if b.North > 90 || b.South < -90 {
		return fmt.Errorf("%w: latitude outside [-90, 90]", ErrInvalidBounds)
	}
	if b.East > 180 || b.East < -180 || b.West > 180 || b.West < -180 {
		return fmt.Errorf("%w: longitude outside [-180, 180]", ErrInvalidBounds)
	}
	if b.South > b.North {
		return fmt.Errorf("%w: south %v is above north %v", ErrInvalidBounds, b.South, b.North)
	}
	return nil
}
