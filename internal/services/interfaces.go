package services

import (
	"context"
	"time"

	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

// CatalogStore reads trip and shuttle definitions
type CatalogStore interface {
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)
	GetShuttle(ctx context.Context, shuttleID string) (*models.Shuttle, error)
	ListTrips(ctx context.Context) ([]models.Trip, error)
}

// ReservationStore persists reservations. Create must reject a second active
// reservation for the same seat or the same (user, trip) with
// database.ErrSeatTaken / database.ErrDuplicateBooking, and a same-label
// booking with *database.TimeConflictError.
type ReservationStore interface {
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	TakenSeats(ctx context.Context, tripID string) ([]int, error)
	TakenSeatsByTrip(ctx context.Context, tripIDs []string) (map[string][]int, error)
	FindActiveByUserAndTrip(ctx context.Context, userID, tripID string) (*models.Reservation, error)
	FindTimeConflict(ctx context.Context, userID, departureTime, excludeTripID string) (*models.Trip, error)
	Create(ctx context.Context, res *models.Reservation, departureTime string) error
	Cancel(ctx context.Context, id string) (*models.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	ListActiveByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	Manifest(ctx context.Context, driverID string, filter models.ManifestFilter) ([]models.ManifestEntry, error)
}

// NotificationStore persists notifications. ClaimDueReminders marks the
// returned reminders sent so that concurrent sweeps never share one.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	ClaimDueReminders(ctx context.Context, now time.Time, limit int) ([]models.DueReminder, error)
	ReleaseReminders(ctx context.Context, ids []string) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
}

// DeviceStore holds push device tokens
type DeviceStore interface {
	Upsert(ctx context.Context, userID, token, platform string) error
	TokensForUser(ctx context.Context, userID string) ([]string, error)
}

// Notifier receives booking and cancellation events. Implementations must
// not block the caller on delivery and must never fail the caller.
type Notifier interface {
	Notify(kind models.NotificationType, recipientUserID string, res models.Reservation, trip models.Trip)
}
