package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlaceholderImageURL is stored when the photo could not be uploaded.
const PlaceholderImageURL = "placeholder"

// ParkingSpot is a located, interpreted sign. Rows are append-only.
type ParkingSpot struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Latitude    float64   `gorm:"not null;index:idx_spot_lat_lng,priority:1;check:chk_spot_latitude,latitude >= -90 AND latitude <= 90" json:"latitude"`
	Longitude   float64   `gorm:"not null;index:idx_spot_lat_lng,priority:2;check:chk_spot_longitude,longitude >= -180 AND longitude <= 180" json:"longitude"`
	ImageURL    string    `gorm:"not null" json:"imageUrl"`
	Description *string   `json:"description"`
	RawText     *string   `json:"rawText"`
	CreatedAt   time.Time `gorm:"not null;index" json:"createdAt"`

	// Associations
	Periods []ParkingPeriod `gorm:"foreignKey:SpotID;constraint:OnDelete:CASCADE" json:"periods"`
}

// BeforeCreate assigns the spot id.
func (s *ParkingSpot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
