package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

const notificationColumns = `
	n.id, n.user_id, n.reservation_id, n.trip_id, n.shuttle_id, n.type, n.title, n.message,
	n.scheduled_for, n.is_sent, n.sent_at, n.is_read, n.created_at`

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification and fills in its created_at
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, reservation_id, trip_id, shuttle_id, type, title, message,
			scheduled_for, is_sent, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		n.ID, n.UserID, n.ReservationID, n.TripID, n.ShuttleID, n.Type, n.Title, n.Message,
		n.ScheduledFor, n.IsSent, n.SentAt,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID returns a notification by ID, or ErrNotFound
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications n WHERE n.id = $1`

	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// ListByUser returns the user's notifications, newest first. Reminders that
// are not yet due are excluded.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications n
		WHERE n.user_id = $1 AND n.scheduled_for <= NOW()
		ORDER BY n.created_at DESC
		LIMIT $2`

	notifications := []models.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead sets is_read. Marking an already read notification is a no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimDueReminders marks up to limit unsent reminders scheduled at or before
// now as sent and returns them, oldest first, with the state of the
// reservation they belong to. Rows locked by a concurrent claim are skipped,
// so each reminder is handed to exactly one caller.
func (r *NotificationRepository) ClaimDueReminders(ctx context.Context, now time.Time, limit int) ([]models.DueReminder, error) {
	query := `
		WITH claimed AS (
			UPDATE notifications SET is_sent = TRUE, sent_at = $1
			WHERE id IN (
				SELECT id FROM notifications
				WHERE type = 'reminder' AND is_sent = FALSE AND scheduled_for <= $1
				ORDER BY scheduled_for
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			RETURNING *
		)
		SELECT ` + notificationColumns + `, res.status = 'active' AS reservation_active
		FROM claimed n
		JOIN reservations res ON res.id = n.reservation_id
		ORDER BY n.scheduled_for`

	reminders := []models.DueReminder{}
	if err := r.db.SelectContext(ctx, &reminders, query, now, limit); err != nil {
		return nil, fmt.Errorf("failed to claim due reminders: %w", err)
	}
	return reminders, nil
}

// ReleaseReminders returns claimed reminders to the unsent pool
func (r *NotificationRepository) ReleaseReminders(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE notifications SET is_sent = FALSE, sent_at = NULL WHERE id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to release reminders: %w", err)
	}
	return nil
}

// MarkSent flags a notification as handed to the push transport. It returns
// ErrNotFound when the notification does not exist or was already sent.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	query := `UPDATE notifications SET is_sent = TRUE, sent_at = $2 WHERE id = $1 AND is_sent = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
