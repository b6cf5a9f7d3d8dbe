package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/database"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

// CancellationService cancels reservations and thereby frees their seats
type CancellationService struct {
	catalog      CatalogStore
	reservations ReservationStore
	notifier     Notifier
	logger       *logrus.Logger
}

// NewCancellationService creates a new CancellationService
func NewCancellationService(catalog CatalogStore, reservations ReservationStore, notifier Notifier, logger *logrus.Logger) *CancellationService {
	return &CancellationService{
		catalog:      catalog,
		reservations: reservations,
		notifier:     notifier,
		logger:       logger,
	}
}

// Cancel cancels the user's own active reservation
func (s *CancellationService) Cancel(ctx context.Context, userID, reservationID string) (*models.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(KindNotFound, "reservation not found")
		}
		return nil, internalError("failed to load reservation", err)
	}

	if res.UserID != userID {
		return nil, newError(KindForbidden, "you can only cancel your own reservations")
	}

	if !res.IsActive() {
		return nil, alreadyCancelledError()
	}

	cancelled, err := s.reservations.Cancel(ctx, reservationID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyCancelled):
			return nil, alreadyCancelledError()
		case errors.Is(err, database.ErrNotFound):
			return nil, newError(KindNotFound, "reservation not found")
		}
		s.logger.WithError(err).WithField("reservation_id", reservationID).Error("Failed to cancel reservation")
		return nil, internalError("failed to cancel reservation", err)
	}

	s.logger.WithFields(logrus.Fields{
		"reservation_id": cancelled.ID,
		"user_id":        userID,
		"trip_id":        cancelled.TripID,
		"seat":           cancelled.SeatNumber,
	}).Info("Reservation cancelled")

	trip, err := s.catalog.GetTrip(ctx, cancelled.TripID)
	if err != nil {
		// The cancellation is committed; only the notifications are lost
		s.logger.WithError(err).WithField("trip_id", cancelled.TripID).Warn("Skipping cancellation notifications: trip lookup failed")
		return cancelled, nil
	}

	notifyParties(s.notifier, models.NotificationTypeCancellation, *cancelled, *trip)
	cancelled.Trip = trip
	return cancelled, nil
}

func alreadyCancelledError() *BookingError {
	return newError(KindAlreadyCancelled, "reservation is already cancelled")
}
