package model

import "time"

// AreaSubscription holds a browser push subscription watching a map area.
type AreaSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	North     float64   `gorm:"not null"`
	South     float64   `gorm:"not null"`
	East      float64   `gorm:"not null"`
	West      float64   `gorm:"not null"`
	Filter    string    `gorm:"size:16"` // optional shorthand, e.g. "2P"
	CreatedAt time.Time `gorm:"not null"`
}
