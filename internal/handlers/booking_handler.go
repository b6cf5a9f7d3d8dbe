package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/middleware"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
	"github.com/smarttransit/shuttle-reservation-backend/internal/services"
	"github.com/smarttransit/shuttle-reservation-backend/pkg/validator"
)

// BookingEngine books seats and lists reservations
type BookingEngine interface {
	Book(ctx context.Context, userID string, req models.BookReservationRequest) (*models.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	ListActiveByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	Manifest(ctx context.Context, driverID string, filter models.ManifestFilter) ([]models.ManifestEntry, error)
}

// CancellationEngine releases seats
type CancellationEngine interface {
	Cancel(ctx context.Context, userID, reservationID string) (*models.Reservation, error)
}

// InventoryReader reports derived seat occupancy
type InventoryReader interface {
	Occupancy(ctx context.Context, tripID string) (*models.Occupancy, error)
	TripBoard(ctx context.Context) ([]models.TripBoardItem, error)
}

// BookingHandler handles trip and reservation HTTP requests
type BookingHandler struct {
	booking      BookingEngine
	cancellation CancellationEngine
	inventory    InventoryReader
	logger       *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(booking BookingEngine, cancellation CancellationEngine, inventory InventoryReader, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		booking:      booking,
		cancellation: cancellation,
		inventory:    inventory,
		logger:       logger,
	}
}

// ListTrips returns every trip with its current occupancy
// GET /api/v1/trips?direction=forward|reverse
func (h *BookingHandler) ListTrips(c *gin.Context) {
	direction := c.Query("direction")
	if direction != "" {
		if err := validator.ValidateDirection(direction); err != nil {
			respondValidationError(c, err)
			return
		}
	}

	board, err := h.inventory.TripBoard(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	trips := make([]models.TripBoardItem, 0, len(board))
	for _, item := range board {
		if direction == "" || string(item.Direction) == direction {
			trips = append(trips, item)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"trips": trips,
		"count": len(trips),
	})
}

// GetOccupancy returns the taken seats of one trip
// GET /api/v1/trips/:id/occupancy
func (h *BookingHandler) GetOccupancy(c *gin.Context) {
	tripID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	occupancy, err := h.inventory.Occupancy(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, occupancy)
}

// Book reserves a seat on a trip for the caller
// POST /api/v1/reservations
func (h *BookingHandler) Book(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.BookReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if _, err := uuid.Parse(req.TripID); err != nil {
		respondError(c, h.logger, &services.BookingError{Kind: services.KindInvalidArgument, Message: "trip_id must be a valid id"})
		return
	}

	reservation, err := h.booking.Book(c.Request.Context(), userCtx.UserID.String(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Seat booked successfully",
		"reservation": reservation,
	})
}

// Cancel cancels one of the caller's reservations
// PATCH /api/v1/reservations/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	reservationID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	reservation, err := h.cancellation.Cancel(c.Request.Context(), userCtx.UserID.String(), reservationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Reservation cancelled successfully",
		"reservation": reservation,
	})
}

// ListMine returns all of the caller's reservations, newest first
// GET /api/v1/reservations/my
func (h *BookingHandler) ListMine(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	reservations, err := h.booking.ListByUser(c.Request.Context(), userCtx.UserID.String())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservations": reservations,
		"count":        len(reservations),
	})
}

// ListActive returns the caller's active reservations
// GET /api/v1/reservations/active
func (h *BookingHandler) ListActive(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	reservations, err := h.booking.ListActiveByUser(c.Request.Context(), userCtx.UserID.String())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservations": reservations,
		"count":        len(reservations),
	})
}

// DriverManifest returns the active passengers on the driver's shuttles
// GET /api/v1/driver/reservations?shuttle_id=&departure_time=&destination=
func (h *BookingHandler) DriverManifest(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var filter models.ManifestFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondValidationError(c, err)
		return
	}

	entries, err := h.booking.Manifest(c.Request.Context(), userCtx.UserID.String(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservations": entries,
		"count":        len(entries),
	})
}
