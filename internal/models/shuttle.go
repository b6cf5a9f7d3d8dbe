package models

import "time"

// TripDirection is the direction a trip runs along its route
type TripDirection string

const (
	TripDirectionForward TripDirection = "forward"
	TripDirectionReverse TripDirection = "reverse"
)

// Shuttle represents a vehicle and its default seat capacity
type Shuttle struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	BaseRoute     string    `json:"base_route" db:"base_route"`
	SeatsCapacity int       `json:"seats_capacity" db:"seats_capacity"`
	DriverID      *string   `json:"driver_id,omitempty" db:"driver_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// HasDriver reports whether a driver is assigned to the shuttle
func (s *Shuttle) HasDriver() bool {
	return s.DriverID != nil && *s.DriverID != ""
}

// Trip is one scheduled departure of a shuttle.
// Shuttle columns are joined in so a trip can be rendered without a second lookup.
type Trip struct {
	ID            string        `json:"id" db:"id"`
	ShuttleID     string        `json:"shuttle_id" db:"shuttle_id"`
	DepartureTime string        `json:"departure_time" db:"departure_time"` // wall-clock label, e.g. "08:00"
	Route         string        `json:"route" db:"route"`
	Direction     TripDirection `json:"direction" db:"direction"`
	SeatsCapacity *int          `json:"seats_capacity,omitempty" db:"seats_capacity"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`

	ShuttleName     string  `json:"shuttle_name" db:"shuttle_name"`
	ShuttleCapacity int     `json:"-" db:"shuttle_seats_capacity"`
	DriverID        *string `json:"driver_id,omitempty" db:"driver_id"`
}

// Capacity resolves the seat capacity of the trip.
// The trip's own value wins over the shuttle's, which wins over the fallback.
func (t *Trip) Capacity(fallback int) int {
	if t.SeatsCapacity != nil && *t.SeatsCapacity > 0 {
		return *t.SeatsCapacity
	}
	if t.ShuttleCapacity > 0 {
		return t.ShuttleCapacity
	}
	return fallback
}

// HasDriver reports whether the trip's shuttle has an assigned driver
func (t *Trip) HasDriver() bool {
	return t.DriverID != nil && *t.DriverID != ""
}

// Label is a short human readable name for messages, e.g. "Shuttle A 08:00"
func (t *Trip) Label() string {
	if t.ShuttleName == "" {
		return t.DepartureTime
	}
	return t.ShuttleName + " " + t.DepartureTime
}
