package models

import "time"

// NotificationType is the kind of event a notification reports
type NotificationType string

const (
	NotificationTypeConfirmation NotificationType = "confirmation"
	NotificationTypeCancellation NotificationType = "cancellation"
	NotificationTypeReminder     NotificationType = "reminder"
)

// Notification is a passenger or driver facing message tied to a reservation.
// Write-once apart from the is_sent/sent_at and is_read flags.
type Notification struct {
	ID            string           `json:"id" db:"id"`
	UserID        string           `json:"user_id" db:"user_id"`
	ReservationID string           `json:"reservation_id" db:"reservation_id"`
	TripID        string           `json:"trip_id" db:"trip_id"`
	ShuttleID     string           `json:"shuttle_id" db:"shuttle_id"`
	Type          NotificationType `json:"type" db:"type"`
	Title         string           `json:"title" db:"title"`
	Message       string           `json:"message" db:"message"`
	ScheduledFor  time.Time        `json:"scheduled_for" db:"scheduled_for"`
	IsSent        bool             `json:"is_sent" db:"is_sent"`
	SentAt        *time.Time       `json:"sent_at,omitempty" db:"sent_at"`
	IsRead        bool             `json:"is_read" db:"is_read"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// ScheduleReminderRequest is the body of POST /notifications/reminder
type ScheduleReminderRequest struct {
	ReservationID        string  `json:"reservation_id" binding:"required"`
	HoursBeforeDeparture float64 `json:"hours_before_departure"`
}

// RegisterDeviceRequest is the body of PUT /user/device-token
type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

// DueReminder is an unsent reminder together with whether its reservation is still active
type DueReminder struct {
	Notification
	ReservationActive bool `db:"reservation_active"`
}
