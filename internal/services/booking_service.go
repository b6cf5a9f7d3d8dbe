package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/database"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
	"github.com/smarttransit/shuttle-reservation-backend/pkg/validator"
)

// BookingService validates and commits seat reservations
type BookingService struct {
	inventory    *InventoryService
	reservations ReservationStore
	notifier     Notifier
	maxAttempts  int
	logger       *logrus.Logger
}

// NewBookingService creates a new BookingService.
// maxAttempts bounds how often an auto-assigned seat is re-picked after
// losing a race for it.
func NewBookingService(inventory *InventoryService, reservations ReservationStore, notifier Notifier, maxAttempts int, logger *logrus.Logger) *BookingService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &BookingService{
		inventory:    inventory,
		reservations: reservations,
		notifier:     notifier,
		maxAttempts:  maxAttempts,
		logger:       logger,
	}
}

// Book reserves a seat on a trip for userID. With no seat requested the
// lowest-numbered free seat is assigned.
func (s *BookingService) Book(ctx context.Context, userID string, req models.BookReservationRequest) (*models.Reservation, error) {
	trip, err := s.inventory.getTrip(ctx, req.TripID)
	if err != nil {
		return nil, err
	}

	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return nil, newError(KindInvalidArgument, "destination is required")
	}

	capacity := s.inventory.capacityOf(trip)
	if req.SeatNumber != nil && (*req.SeatNumber < 1 || *req.SeatNumber > capacity) {
		return nil, newError(KindInvalidArgument, "invalid seat: must be between 1 and %d", capacity)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"trip_id": trip.ID,
	})

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		seat, err := s.pickSeat(ctx, trip, req.SeatNumber)
		if err != nil {
			return nil, err
		}

		if err := s.checkUserConstraints(ctx, userID, trip); err != nil {
			return nil, err
		}

		res := &models.Reservation{
			ID:          uuid.New().String(),
			UserID:      userID,
			TripID:      trip.ID,
			ShuttleID:   trip.ShuttleID,
			SeatNumber:  seat,
			Destination: destination,
			Status:      models.ReservationStatusActive,
			CreatedAt:   time.Now(),
		}

		err = s.reservations.Create(ctx, res, trip.DepartureTime)
		if err == nil {
			logger.WithFields(logrus.Fields{
				"reservation_id": res.ID,
				"seat":           res.SeatNumber,
			}).Info("Reservation created")

			notifyParties(s.notifier, models.NotificationTypeConfirmation, *res, *trip)
			res.Trip = trip
			return res, nil
		}

		var conflict *database.TimeConflictError
		switch {
		case errors.Is(err, database.ErrSeatTaken):
			if req.SeatNumber != nil {
				return nil, newError(KindSeatTaken, "seat %d is already taken", seat)
			}
			logger.WithFields(logrus.Fields{
				"seat":    seat,
				"attempt": attempt,
			}).Warn("Auto-assigned seat was claimed concurrently, retrying")
		case errors.Is(err, database.ErrDuplicateBooking):
			return nil, duplicateBookingError()
		case errors.As(err, &conflict):
			return nil, timeConflictError(&conflict.Trip)
		default:
			logger.WithError(err).Error("Failed to create reservation")
			return nil, internalError("failed to create reservation", err)
		}
	}

	return nil, newError(KindSeatTaken, "could not secure a free seat, please try again")
}

// ListByUser returns every reservation the user has made, newest first
func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	reservations, err := s.reservations.ListByUser(ctx, userID)
	if err != nil {
		return nil, internalError("failed to list reservations", err)
	}
	return reservations, nil
}

// ListActiveByUser returns the user's active reservations, newest first
func (s *BookingService) ListActiveByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	reservations, err := s.reservations.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, internalError("failed to list reservations", err)
	}
	return reservations, nil
}

// Manifest returns the active passengers on the driver's shuttles. Filtering
// by a shuttle the driver is not assigned to is forbidden.
func (s *BookingService) Manifest(ctx context.Context, driverID string, filter models.ManifestFilter) ([]models.ManifestEntry, error) {
	filter.Destination = strings.TrimSpace(filter.Destination)
	if filter.ShuttleID != "" {
		if _, err := uuid.Parse(filter.ShuttleID); err != nil {
			return nil, newError(KindInvalidArgument, "shuttle_id must be a valid id")
		}
		if err := s.checkDriverAssignment(ctx, driverID, filter.ShuttleID); err != nil {
			return nil, err
		}
	}
	if filter.DepartureTime != "" {
		label, err := validator.NormalizeDepartureTime(filter.DepartureTime)
		if err != nil {
			return nil, newError(KindInvalidArgument, "departure_time must be HH:MM")
		}
		filter.DepartureTime = label
	}

	entries, err := s.reservations.Manifest(ctx, driverID, filter)
	if err != nil {
		return nil, internalError("failed to load manifest", err)
	}
	return entries, nil
}

func (s *BookingService) checkDriverAssignment(ctx context.Context, driverID, shuttleID string) error {
	shuttle, err := s.inventory.catalog.GetShuttle(ctx, shuttleID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return newError(KindNotFound, "shuttle not found")
		}
		return internalError("failed to load shuttle", err)
	}
	if !shuttle.HasDriver() || *shuttle.DriverID != driverID {
		return newError(KindForbidden, "you are not assigned to this shuttle")
	}
	return nil
}

// pickSeat validates a requested seat against current occupancy or picks the
// lowest free one
func (s *BookingService) pickSeat(ctx context.Context, trip *models.Trip, requested *int) (int, error) {
	occ, err := s.inventory.occupancyOf(ctx, trip)
	if err != nil {
		return 0, err
	}

	if requested != nil {
		if occ.IsTaken(*requested) {
			return 0, newError(KindSeatTaken, "seat %d is already taken", *requested)
		}
		return *requested, nil
	}

	seat, ok := occ.LowestFreeSeat()
	if !ok {
		return 0, newError(KindNoSeatsAvailable, "no seats available on this trip")
	}
	return seat, nil
}

// checkUserConstraints rejects a second active booking on the same trip and
// a booking on another trip with the same departure label
func (s *BookingService) checkUserConstraints(ctx context.Context, userID string, trip *models.Trip) error {
	existing, err := s.reservations.FindActiveByUserAndTrip(ctx, userID, trip.ID)
	switch {
	case err == nil && existing != nil:
		return duplicateBookingError()
	case err != nil && !errors.Is(err, database.ErrNotFound):
		return internalError("failed to check existing reservation", err)
	}

	conflict, err := s.reservations.FindTimeConflict(ctx, userID, trip.DepartureTime, trip.ID)
	if err != nil {
		return internalError("failed to check time conflict", err)
	}
	if conflict != nil {
		return timeConflictError(conflict)
	}
	return nil
}

// notifyParties tells the passenger and, when assigned, the driver
func notifyParties(notifier Notifier, kind models.NotificationType, res models.Reservation, trip models.Trip) {
	if notifier == nil {
		return
	}
	notifier.Notify(kind, res.UserID, res, trip)
	if trip.HasDriver() && *trip.DriverID != res.UserID {
		notifier.Notify(kind, *trip.DriverID, res, trip)
	}
}

func duplicateBookingError() *BookingError {
	return newError(KindDuplicateBooking, "you already have an active reservation on this trip")
}

func timeConflictError(trip *models.Trip) *BookingError {
	return &BookingError{
		Kind:            KindTimeConflict,
		Message:         "you already have a booking on " + trip.Label() + " at the same time",
		ConflictingTrip: trip,
	}
}
