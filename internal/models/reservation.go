package models

import "time"

// ReservationStatus represents the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is one seat held by one passenger on one trip.
// Rows are never deleted; cancellation only flips status and stamps cancelled_at.
type Reservation struct {
	ID          string            `json:"id" db:"id"`
	UserID      string            `json:"user_id" db:"user_id"`
	TripID      string            `json:"trip_id" db:"trip_id"`
	ShuttleID   string            `json:"shuttle_id" db:"shuttle_id"`
	SeatNumber  int               `json:"seat_number" db:"seat_number"`
	Destination string            `json:"destination" db:"destination"`
	Status      ReservationStatus `json:"status" db:"status"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	CancelledAt *time.Time        `json:"cancelled_at" db:"cancelled_at"`

	// Related data (not in DB, populated by queries)
	Trip *Trip `json:"trip,omitempty" db:"-"`
}

// IsActive reports whether the reservation still holds its seat
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// BookReservationRequest is the body of POST /reservations
type BookReservationRequest struct {
	TripID      string `json:"trip_id" binding:"required"`
	Destination string `json:"destination"`
	SeatNumber  *int   `json:"seat_number,omitempty"`
}

// ManifestFilter narrows the driver's passenger manifest
type ManifestFilter struct {
	ShuttleID     string `form:"shuttle_id"`
	DepartureTime string `form:"departure_time"`
	Destination   string `form:"destination"`
}

// ManifestEntry is one active passenger on a driver's manifest
type ManifestEntry struct {
	ReservationID string `json:"reservation_id" db:"reservation_id"`
	UserID        string `json:"user_id" db:"user_id"`
	TripID        string `json:"trip_id" db:"trip_id"`
	SeatNumber    int    `json:"seat_number" db:"seat_number"`
	Destination   string `json:"destination" db:"destination"`
	DepartureTime string `json:"departure_time" db:"departure_time"`
	ShuttleName   string `json:"shuttle_name" db:"shuttle_name"`
}
