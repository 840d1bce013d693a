package store

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-sign-backend/internal/model"
)

// Store defines the interface for all spot persistence.
type Store interface {
	InsertSpotWithPeriods(ctx context.Context, spot *model.ParkingSpot) error
	QueryByBoundingBox(ctx context.Context, bounds Bounds) ([]model.ParkingSpot, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for the subscription handlers.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// InsertSpotWithPeriods writes the spot and all of its periods in one
// transaction. On return the spot carries its generated id and timestamp.
func (s *gormStore) InsertSpotWithPeriods(ctx context.Context, spot *model.ParkingSpot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(spot).Error; err != nil {
			return fmt.Errorf("failed to insert parking spot: %w", err)
		}

		if len(spot.Periods) == 0 {
			return nil
		}
		for i := range spot.Periods {
			spot.Periods[i].SpotID = spot.ID
			spot.Periods[i].Position = i
			if spot.Periods[i].DaysOfWeek == nil {
				spot.Periods[i].DaysOfWeek = []string{}
			}
		}
		if err := tx.Create(&spot.Periods).Error; err != nil {
			return fmt.Errorf("failed to insert %d periods for spot %s: %w", len(spot.Periods), spot.ID, err)
		}
		log.Printf("Stored spot %s with %d periods", spot.ID, len(spot.Periods))
		return nil
	})
}

// QueryByBoundingBox returns every spot inside the box, newest first, with
// periods eager-loaded in sign order.
func (s *gormStore) QueryByBoundingBox(ctx context.Context, b Bounds) ([]model.ParkingSpot, error) {
	q := s.db.WithContext(ctx).
		Preload("Periods", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("latitude >= ? AND latitude <= ?", b.South, b.North)

	if b.CrossesAntimeridian() {
		q = q.Where("longitude >= ? OR longitude <= ?", b.West, b.East)
	} else {
		q = q.Where("longitude >= ? AND longitude <= ?", b.West, b.East)
	}

	var spots []model.ParkingSpot
	if err := q.Order("created_at DESC").Find(&spots).Error; err != nil {
		return nil, fmt.Errorf("failed to query spots in bounds: %w", err)
	}
	return spots, nil
}
