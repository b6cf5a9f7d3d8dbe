package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/middleware"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
	"github.com/smarttransit/shuttle-reservation-backend/internal/services"
	"github.com/smarttransit/shuttle-reservation-backend/internal/utils"
)

// NotificationCenter schedules, lists and dispatches user notifications
type NotificationCenter interface {
	ScheduleReminder(ctx context.Context, userID, reservationID string, hoursBefore float64) (*models.Notification, error)
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error)
	DispatchDueReminders(ctx context.Context, now time.Time) (*services.DispatchResult, error)
	RegisterDevice(ctx context.Context, userID, token, platform string) error
}

// NotificationHandler handles notification and device-token HTTP requests
type NotificationHandler struct {
	notifications NotificationCenter
	logger        *logrus.Logger
	now           func() time.Time
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications NotificationCenter, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// ScheduleReminder schedules a departure reminder for one of the caller's reservations
// POST /api/v1/notifications/reminder
func (h *NotificationHandler) ScheduleReminder(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.ScheduleReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if _, err := uuid.Parse(req.ReservationID); err != nil {
		respondError(c, h.logger, &services.BookingError{Kind: services.KindInvalidArgument, Message: "reservation_id must be a valid id"})
		return
	}

	notification, err := h.notifications.ScheduleReminder(c.Request.Context(), userCtx.UserID.String(), req.ReservationID, req.HoursBeforeDeparture)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Reminder scheduled",
		"notification": notification,
	})
}

// List returns the caller's delivered notifications, newest first
// GET /api/v1/notifications?limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"code":    "VALIDATION_ERROR",
				"message": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.List(c.Request.Context(), userCtx.UserID.String(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
		"unread":        unread,
	})
}

// MarkRead marks one of the caller's notifications as read
// PATCH /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	notificationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	notification, err := h.notifications.MarkRead(c.Request.Context(), userCtx.UserID.String(), notificationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Notification marked as read",
		"notification": notification,
	})
}

// SendScheduled runs one reminder sweep immediately
// POST /api/v1/notifications/send-scheduled
func (h *NotificationHandler) SendScheduled(c *gin.Context) {
	result, err := h.notifications.DispatchDueReminders(c.Request.Context(), h.now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Scheduled notifications processed",
		"result":  result,
	})
}

// RegisterDeviceToken stores the caller's push token. The platform falls back
// to the one parsed from the User-Agent.
// PUT /api/v1/user/device-token
func (h *NotificationHandler) RegisterDeviceToken(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	platform := req.Platform
	if platform == "" {
		platform = utils.ParseUserAgent(c.Request.UserAgent()).Platform
	}

	if err := h.notifications.RegisterDevice(c.Request.Context(), userCtx.UserID.String(), req.Token, platform); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Device token registered",
		"platform": platform,
	})
}
