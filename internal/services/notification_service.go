package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/database"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
	"github.com/smarttransit/shuttle-reservation-backend/pkg/push"
	"github.com/smarttransit/shuttle-reservation-backend/pkg/validator"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
	reminderBatchSize        = 100
)

var errNotDelivered = errors.New("push transport delivered to no device")

// DispatchResult summarises one reminder sweep
type DispatchResult struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// NotificationService records notifications and hands them to the push transport
type NotificationService struct {
	notifications NotificationStore
	reservations  ReservationStore
	catalog       CatalogStore
	devices       DeviceStore
	transport     push.Transport
	location      *time.Location
	logger        *logrus.Logger
	now           func() time.Time
}

// NewNotificationService creates a new NotificationService.
// loc is the zone departure labels are read in when scheduling reminders.
func NewNotificationService(
	notifications NotificationStore,
	reservations ReservationStore,
	catalog CatalogStore,
	devices DeviceStore,
	transport push.Transport,
	loc *time.Location,
	logger *logrus.Logger,
) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		notifications: notifications,
		reservations:  reservations,
		catalog:       catalog,
		devices:       devices,
		transport:     transport,
		location:      loc,
		logger:        logger,
		now:           time.Now,
	}
}

// Deliver records a confirmation or cancellation notification for recipient
// and pushes it to their devices. A push failure leaves the record unsent.
func (s *NotificationService) Deliver(ctx context.Context, kind models.NotificationType, recipientUserID string, res models.Reservation, trip models.Trip) error {
	title, message := composeMessage(kind, recipientUserID == res.UserID, res, trip)
	now := s.now()

	n := &models.Notification{
		ID:            uuid.New().String(),
		UserID:        recipientUserID,
		ReservationID: res.ID,
		TripID:        trip.ID,
		ShuttleID:     res.ShuttleID,
		Type:          kind,
		Title:         title,
		Message:       message,
		ScheduledFor:  now,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return err
	}

	if _, err := s.push(ctx, n); err != nil {
		return err
	}
	return s.notifications.MarkSent(ctx, n.ID, now)
}

// ScheduleReminder creates a reminder for the user's own active reservation,
// due hoursBefore hours ahead of the next departure of its trip
func (s *NotificationService) ScheduleReminder(ctx context.Context, userID, reservationID string, hoursBefore float64) (*models.Notification, error) {
	if hoursBefore <= 0 {
		return nil, newError(KindInvalidArgument, "hours_before_departure must be greater than 0")
	}

	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(KindNotFound, "reservation not found")
		}
		return nil, internalError("failed to load reservation", err)
	}
	if res.UserID != userID {
		return nil, newError(KindForbidden, "you can only set reminders for your own reservations")
	}
	if !res.IsActive() {
		return nil, newError(KindAlreadyCancelled, "reservation is cancelled")
	}

	trip, err := s.catalog.GetTrip(ctx, res.TripID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(KindNotFound, "trip not found")
		}
		return nil, internalError("failed to load trip", err)
	}

	departure, err := validator.NextDeparture(trip.DepartureTime, s.now(), s.location)
	if err != nil {
		return nil, internalError("trip has an unreadable departure time", err)
	}

	hours := strconv.FormatFloat(hoursBefore, 'f', -1, 64)
	n := &models.Notification{
		ID:            uuid.New().String(),
		UserID:        userID,
		ReservationID: res.ID,
		TripID:        trip.ID,
		ShuttleID:     res.ShuttleID,
		Type:          models.NotificationTypeReminder,
		Title:         "Shuttle Reminder",
		Message:       fmt.Sprintf("Your shuttle departs in %s hour(s)", hours),
		ScheduledFor:  departure.Add(-time.Duration(hoursBefore * float64(time.Hour))),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, internalError("failed to schedule reminder", err)
	}

	s.logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"reservation_id":  res.ID,
		"scheduled_for":   n.ScheduledFor,
	}).Info("Reminder scheduled")

	return n, nil
}

// DispatchDueReminders claims every unsent reminder due at or before now, in
// batches, and pushes it. Reminders of cancelled reservations are claimed
// without a push. Reminders whose push failed are released at the end of the
// sweep so the next sweep retries them.
func (s *NotificationService) DispatchDueReminders(ctx context.Context, now time.Time) (*DispatchResult, error) {
	result := &DispatchResult{}
	var failed []string

	for {
		batch, err := s.notifications.ClaimDueReminders(ctx, now, reminderBatchSize)
		if err != nil {
			s.releaseFailed(ctx, failed)
			return nil, internalError("failed to claim due reminders", err)
		}
		result.Due += len(batch)

		for _, reminder := range batch {
			if !reminder.ReservationActive {
				result.Skipped++
				continue
			}
			if _, err := s.push(ctx, &reminder.Notification); err != nil {
				s.logger.WithFields(logrus.Fields{
					"notification_id": reminder.ID,
					"user_id":         reminder.UserID,
				}).WithError(err).Warn("Failed to push reminder")
				failed = append(failed, reminder.ID)
				result.Failed++
				continue
			}
			result.Sent++
		}

		if len(batch) < reminderBatchSize || ctx.Err() != nil {
			break
		}
	}

	s.releaseFailed(ctx, failed)

	if result.Due > 0 {
		s.logger.WithFields(logrus.Fields{
			"due":     result.Due,
			"sent":    result.Sent,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		}).Info("Reminder sweep finished")
	}
	return result, nil
}

func (s *NotificationService) releaseFailed(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.notifications.ReleaseReminders(context.WithoutCancel(ctx), ids); err != nil {
		s.logger.WithError(err).WithField("count", len(ids)).Error("Failed to release reminders after failed push")
	}
}

// List returns the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	notifications, err := s.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, internalError("failed to list notifications", err)
	}
	return notifications, nil
}

// MarkRead marks one of the user's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(KindNotFound, "notification not found")
		}
		return nil, internalError("failed to load notification", err)
	}
	if n.UserID != userID {
		return nil, newError(KindForbidden, "you can only update your own notifications")
	}
	if n.IsRead {
		return n, nil
	}

	if err := s.notifications.MarkRead(ctx, notificationID); err != nil {
		return nil, internalError("failed to mark notification read", err)
	}
	n.IsRead = true
	return n, nil
}

// RegisterDevice stores a push token for the user
func (s *NotificationService) RegisterDevice(ctx context.Context, userID, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return newError(KindInvalidArgument, "device token is required")
	}
	if err := s.devices.Upsert(ctx, userID, token, strings.ToLower(strings.TrimSpace(platform))); err != nil {
		return internalError("failed to register device", err)
	}
	return nil
}

// push sends n to the recipient's devices. Having no devices is not an
// error; a transport that reports nothing delivered to existing devices is.
func (s *NotificationService) push(ctx context.Context, n *models.Notification) (bool, error) {
	tokens, err := s.devices.TokensForUser(ctx, n.UserID)
	if err != nil {
		return false, err
	}
	if len(tokens) == 0 {
		return false, nil
	}

	delivered, err := s.transport.Send(ctx, tokens, n.Title, n.Message, map[string]string{
		"notification_id": n.ID,
		"reservation_id":  n.ReservationID,
		"trip_id":         n.TripID,
		"type":            string(n.Type),
	})
	if err != nil {
		return false, err
	}
	if !delivered {
		return false, errNotDelivered
	}
	return true, nil
}

func composeMessage(kind models.NotificationType, toPassenger bool, res models.Reservation, trip models.Trip) (string, string) {
	label := trip.Label()
	switch {
	case kind == models.NotificationTypeConfirmation && toPassenger:
		return "Booking Confirmed",
			fmt.Sprintf("Seat %d on %s is booked. Destination: %s", res.SeatNumber, label, res.Destination)
	case kind == models.NotificationTypeConfirmation:
		return "New Passenger",
			fmt.Sprintf("Seat %d on %s was booked. Destination: %s", res.SeatNumber, label, res.Destination)
	case kind == models.NotificationTypeCancellation && toPassenger:
		return "Booking Cancelled",
			fmt.Sprintf("Your booking for seat %d on %s to %s was cancelled", res.SeatNumber, label, res.Destination)
	case kind == models.NotificationTypeCancellation:
		return "Passenger Cancelled",
			fmt.Sprintf("Seat %d on %s to %s is now free", res.SeatNumber, label, res.Destination)
	}
	return "Shuttle Update", fmt.Sprintf("Seat %d on %s", res.SeatNumber, label)
}
