package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/middleware"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
	"github.com/smarttransit/shuttle-reservation-backend/internal/services"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// authenticatedRouter returns a router whose requests carry userID, simulating AuthMiddleware
func authenticatedRouter(userID uuid.UUID, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{UserID: userID, Roles: roles})
		c.Next()
	})
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, body interface{}) io.Reader {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type stubBooking struct {
	gotUser   string
	gotReq    models.BookReservationRequest
	gotFilter models.ManifestFilter
	res       *models.Reservation
	list      []models.Reservation
	manifest  []models.ManifestEntry
	err       error
}

func (s *stubBooking) Book(_ context.Context, userID string, req models.BookReservationRequest) (*models.Reservation, error) {
	s.gotUser, s.gotReq = userID, req
	return s.res, s.err
}

func (s *stubBooking) ListByUser(_ context.Context, userID string) ([]models.Reservation, error) {
	s.gotUser = userID
	return s.list, s.err
}

func (s *stubBooking) ListActiveByUser(_ context.Context, userID string) ([]models.Reservation, error) {
	s.gotUser = userID
	var active []models.Reservation
	for _, r := range s.list {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	return active, s.err
}

func (s *stubBooking) Manifest(_ context.Context, driverID string, filter models.ManifestFilter) ([]models.ManifestEntry, error) {
	s.gotUser, s.gotFilter = driverID, filter
	return s.manifest, s.err
}

type stubCancellation struct {
	gotUser, gotID string
	res            *models.Reservation
	err            error
}

func (s *stubCancellation) Cancel(_ context.Context, userID, reservationID string) (*models.Reservation, error) {
	s.gotUser, s.gotID = userID, reservationID
	return s.res, s.err
}

type stubInventory struct {
	occupancy *models.Occupancy
	board     []models.TripBoardItem
	err       error
}

func (s *stubInventory) Occupancy(_ context.Context, tripID string) (*models.Occupancy, error) {
	if s.occupancy != nil {
		s.occupancy.TripID = tripID
	}
	return s.occupancy, s.err
}

func (s *stubInventory) TripBoard(context.Context) ([]models.TripBoardItem, error) {
	return s.board, s.err
}

type stubNotifications struct {
	gotUser     string
	gotID       string
	gotHours    float64
	gotLimit    int
	gotToken    string
	gotPlatform string
	gotNow      time.Time
	notif       *models.Notification
	list        []models.Notification
	result      *services.DispatchResult
	err         error
}

func (s *stubNotifications) ScheduleReminder(_ context.Context, userID, reservationID string, hours float64) (*models.Notification, error) {
	s.gotUser, s.gotID, s.gotHours = userID, reservationID, hours
	return s.notif, s.err
}

func (s *stubNotifications) List(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	s.gotUser, s.gotLimit = userID, limit
	return s.list, s.err
}

func (s *stubNotifications) MarkRead(_ context.Context, userID, notificationID string) (*models.Notification, error) {
	s.gotUser, s.gotID = userID, notificationID
	return s.notif, s.err
}

func (s *stubNotifications) DispatchDueReminders(_ context.Context, now time.Time) (*services.DispatchResult, error) {
	s.gotNow = now
	return s.result, s.err
}

func (s *stubNotifications) RegisterDevice(_ context.Context, userID, token, platform string) error {
	s.gotUser, s.gotToken, s.gotPlatform = userID, token, platform
	return s.err
}
