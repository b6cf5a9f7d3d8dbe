package services

import (
	"fmt"

	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

// ErrorKind is the closed set of reasons a booking or cancellation can fail
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindInvalidArgument  ErrorKind = "invalid_argument"
	KindSeatTaken        ErrorKind = "seat_taken"
	KindNoSeatsAvailable ErrorKind = "no_seats_available"
	KindDuplicateBooking ErrorKind = "duplicate_booking"
	KindTimeConflict     ErrorKind = "time_conflict"
	KindForbidden        ErrorKind = "forbidden"
	KindAlreadyCancelled ErrorKind = "already_cancelled"
	KindInternal         ErrorKind = "internal"
)

// Kind sentinels for errors.Is
var (
	ErrNotFound         = &BookingError{Kind: KindNotFound}
	ErrInvalidArgument  = &BookingError{Kind: KindInvalidArgument}
	ErrSeatTaken        = &BookingError{Kind: KindSeatTaken}
	ErrNoSeatsAvailable = &BookingError{Kind: KindNoSeatsAvailable}
	ErrDuplicateBooking = &BookingError{Kind: KindDuplicateBooking}
	ErrTimeConflict     = &BookingError{Kind: KindTimeConflict}
	ErrForbidden        = &BookingError{Kind: KindForbidden}
	ErrAlreadyCancelled = &BookingError{Kind: KindAlreadyCancelled}
	ErrInternal         = &BookingError{Kind: KindInternal}
)

// BookingError is returned by the booking, cancellation and notification services
type BookingError struct {
	Kind    ErrorKind
	Message string

	// Set for KindTimeConflict
	ConflictingTrip *models.Trip

	// Underlying storage/transport error for KindInternal
	Err error
}

func (e *BookingError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

// Is matches any BookingError of the same kind
func (e *BookingError) Is(target error) bool {
	t, ok := target.(*BookingError)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether the caller may retry the same request unchanged
func (e *BookingError) Retryable() bool {
	return e.Kind == KindInternal
}

func newError(kind ErrorKind, format string, args ...interface{}) *BookingError {
	return &BookingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internalError(message string, err error) *BookingError {
	return &BookingError{Kind: KindInternal, Message: message, Err: err}
}
