package model

import "parking-sign-backend/internal/rules"

// ParkingPeriod is one time-bounded rule owned by exactly one spot.
type ParkingPeriod struct {
	ID                int64    `gorm:"primaryKey" json:"id"`
	SpotID            string   `gorm:"size:36;not null;index" json:"spotId"`
	Position          int      `gorm:"not null" json:"-"` // order as read off the sign
	TimeLimitMins     *int     `json:"timeLimitMins"`
	PaymentType       string   `gorm:"size:16;not null" json:"paymentType"`
	DaysOfWeek        []string `gorm:"serializer:json;not null" json:"daysOfWeek"`
	StartTime         *string  `gorm:"size:5" json:"startTime"`
	EndTime           *string  `gorm:"size:5" json:"endTime"`
	SpecialConditions *string  `json:"specialConditions"`
}

// NewParkingPeriod converts a validated rule into its stored form.
func NewParkingPeriod(p rules.Period, position int) ParkingPeriod {
	days := make([]string, len(p.DaysOfWeek))
	for i, d := range p.DaysOfWeek {
		days[i] = string(d)
	}
	return ParkingPeriod{
		Position:          position,
		TimeLimitMins:     p.TimeLimitMinutes,
		PaymentType:       string(p.PaymentType),
		DaysOfWeek:        days,
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		SpecialConditions: p.SpecialConditions,
	}
}

// Rule returns the period in the rule vocabulary.
func (p ParkingPeriod) Rule() rules.Period {
	days := make([]rules.Day, len(p.DaysOfWeek))
	for i, d := range p.DaysOfWeek {
		days[i] = rules.Day(d)
	}
	return rules.Period{
		TimeLimitMinutes:  p.TimeLimitMins,
		PaymentType:       rules.PaymentType(p.PaymentType),
		DaysOfWeek:        days,
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		SpecialConditions: p.SpecialConditions,
	}
}

// NewParkingSpot builds an unsaved spot from an accepted interpretation.
func NewParkingSpot(lat, lng float64, imageURL string, accepted rules.Accepted) ParkingSpot {
	periods := make([]ParkingPeriod, len(accepted.Periods))
	for i, p := range accepted.Periods {
		periods[i] = NewParkingPeriod(p, i)
	}
	return ParkingSpot{
		Latitude:    lat,
		Longitude:   lng,
		ImageURL:    imageURL,
		Description: accepted.Description,
		RawText:     accepted.RawText,
		Periods:     periods,
	}
}

// Rules returns the spot's periods in the rule vocabulary, in stored order.
func (s ParkingSpot) Rules() []rules.Period {
	out := make([]rules.Period, len(s.Periods))
	for i, p := range s.Periods {
		out[i] = p.Rule()
	}
	return out
}
