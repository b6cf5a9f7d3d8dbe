package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

const (
	pgUniqueViolationCode = "23505"

	constraintTripSeatActive = "uq_reservations_trip_seat_active"
	constraintUserTripActive = "uq_reservations_user_trip_active"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrSeatTaken        = errors.New("seat already reserved on this trip")
	ErrDuplicateBooking = errors.New("user already holds an active reservation on this trip")
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
)

// TimeConflictError is returned when the user already holds an active
// reservation on another trip with the same departure label
type TimeConflictError struct {
	Trip models.Trip
}

func (e *TimeConflictError) Error() string {
	return fmt.Sprintf("user already booked on trip %s departing at %s", e.Trip.ID, e.Trip.DepartureTime)
}

// translateReservationError maps partial-unique-index violations on the
// reservations table to storage sentinels. Other errors pass through.
func translateReservationError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pgUniqueViolationCode {
		return err
	}
	switch pqErr.Constraint {
	case constraintTripSeatActive:
		return ErrSeatTaken
	case constraintUserTripActive:
		return ErrDuplicateBooking
	}
	return err
}
