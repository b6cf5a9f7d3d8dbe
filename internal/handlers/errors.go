package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/services"
)

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:         http.StatusNotFound,
	services.KindInvalidArgument:  http.StatusBadRequest,
	services.KindSeatTaken:        http.StatusConflict,
	services.KindNoSeatsAvailable: http.StatusConflict,
	services.KindDuplicateBooking: http.StatusConflict,
	services.KindTimeConflict:     http.StatusConflict,
	services.KindForbidden:        http.StatusForbidden,
	services.KindAlreadyCancelled: http.StatusConflict,
	services.KindInternal:         http.StatusInternalServerError,
}

// respondError writes err as a JSON error body. Anything that is not a
// *services.BookingError is treated as internal.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var bookingErr *services.BookingError
	if !errors.As(err, &bookingErr) {
		bookingErr = &services.BookingError{Kind: services.KindInternal, Err: err}
	}

	status, ok := kindStatus[bookingErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := bookingErr.Message
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		if message == "" {
			message = "Something went wrong, please try again"
		}
	}

	body := gin.H{
		"error":   string(bookingErr.Kind),
		"code":    strings.ToUpper(string(bookingErr.Kind)),
		"message": message,
	}
	if bookingErr.ConflictingTrip != nil {
		body["conflicting_trip"] = bookingErr.ConflictingTrip
	}
	if bookingErr.Retryable() {
		body["retryable"] = true
	}

	c.JSON(status, body)
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation_error",
		"code":    "VALIDATION_ERROR",
		"message": err.Error(),
	})
}

// pathUUID reads a uuid path parameter, answering 400 when it is malformed
func pathUUID(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   string(services.KindInvalidArgument),
			"code":    strings.ToUpper(string(services.KindInvalidArgument)),
			"message": "invalid " + name,
		})
		return "", false
	}
	return raw, true
}
