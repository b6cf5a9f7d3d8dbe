package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/database"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// fakeCatalog is an in-memory CatalogStore
type fakeCatalog struct {
	trips    map[string]*models.Trip
	shuttles map[string]*models.Shuttle
	err      error
}

func newFakeCatalog(trips ...*models.Trip) *fakeCatalog {
	c := &fakeCatalog{trips: map[string]*models.Trip{}, shuttles: map[string]*models.Shuttle{}}
	for _, t := range trips {
		c.trips[t.ID] = t
	}
	return c
}

func (c *fakeCatalog) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	if c.err != nil {
		return nil, c.err
	}
	t, ok := c.trips[tripID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (c *fakeCatalog) GetShuttle(ctx context.Context, shuttleID string) (*models.Shuttle, error) {
	s, ok := c.shuttles[shuttleID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return s, nil
}

func (c *fakeCatalog) ListTrips(ctx context.Context) ([]models.Trip, error) {
	if c.err != nil {
		return nil, c.err
	}
	trips := make([]models.Trip, 0, len(c.trips))
	for _, t := range c.trips {
		trips = append(trips, *t)
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].ID < trips[j].ID })
	return trips, nil
}

// fakeReservationStore is an in-memory ReservationStore. Create enforces the
// same constraints as the Postgres partial unique indexes and the
// transactional time-conflict check, under one mutex.
type fakeReservationStore struct {
	mu      sync.Mutex
	catalog *fakeCatalog
	rows    []*models.Reservation

	// hooks for race and failure simulation
	beforeCreate func(res *models.Reservation)
	createErr    error
	readErr      error
}

func newFakeReservationStore(catalog *fakeCatalog) *fakeReservationStore {
	return &fakeReservationStore{catalog: catalog}
}

func (s *fakeReservationStore) seed(res models.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Status == "" {
		res.Status = models.ReservationStatusActive
	}
	if res.ID == "" {
		res.ID = fmt.Sprintf("seed-%d", len(s.rows)+1)
	}
	s.rows = append(s.rows, &res)
}

func (s *fakeReservationStore) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	for _, r := range s.rows {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeReservationStore) TakenSeats(ctx context.Context, tripID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	seats := []int{}
	for _, r := range s.rows {
		if r.TripID == tripID && r.IsActive() {
			seats = append(seats, r.SeatNumber)
		}
	}
	sort.Ints(seats)
	return seats, nil
}

func (s *fakeReservationStore) TakenSeatsByTrip(ctx context.Context, tripIDs []string) (map[string][]int, error) {
	out := map[string][]int{}
	for _, id := range tripIDs {
		seats, err := s.TakenSeats(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(seats) > 0 {
			out[id] = seats
		}
	}
	return out, nil
}

func (s *fakeReservationStore) FindActiveByUserAndTrip(ctx context.Context, userID, tripID string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.UserID == userID && r.TripID == tripID && r.IsActive() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *fakeReservationStore) FindTimeConflict(ctx context.Context, userID, departureTime, excludeTripID string) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTimeConflictLocked(userID, departureTime, excludeTripID), nil
}

func (s *fakeReservationStore) findTimeConflictLocked(userID, departureTime, excludeTripID string) *models.Trip {
	for _, r := range s.rows {
		if r.UserID != userID || !r.IsActive() || r.TripID == excludeTripID {
			continue
		}
		if t, ok := s.catalog.trips[r.TripID]; ok && t.DepartureTime == departureTime {
			cp := *t
			return &cp
		}
	}
	return nil
}

func (s *fakeReservationStore) Create(ctx context.Context, res *models.Reservation, departureTime string) error {
	if s.beforeCreate != nil {
		s.beforeCreate(res)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	if conflict := s.findTimeConflictLocked(res.UserID, departureTime, res.TripID); conflict != nil {
		return &database.TimeConflictError{Trip: *conflict}
	}
	for _, r := range s.rows {
		if !r.IsActive() || r.TripID != res.TripID {
			continue
		}
		if r.SeatNumber == res.SeatNumber {
			return database.ErrSeatTaken
		}
		if r.UserID == res.UserID {
			return database.ErrDuplicateBooking
		}
	}

	cp := *res
	cp.Status = models.ReservationStatusActive
	s.rows = append(s.rows, &cp)
	res.Status = cp.Status
	return nil
}

func (s *fakeReservationStore) Cancel(ctx context.Context, id string) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID != id {
			continue
		}
		if !r.IsActive() {
			return nil, database.ErrAlreadyCancelled
		}
		now := time.Now()
		r.Status = models.ReservationStatusCancelled
		r.CancelledAt = &now
		cp := *r
		return &cp, nil
	}
	return nil, database.ErrNotFound
}

func (s *fakeReservationStore) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return s.list(userID, false), nil
}

func (s *fakeReservationStore) ListActiveByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return s.list(userID, true), nil
}

func (s *fakeReservationStore) list(userID string, activeOnly bool) []models.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Reservation{}
	for i := len(s.rows) - 1; i >= 0; i-- {
		r := s.rows[i]
		if r.UserID == userID && (!activeOnly || r.IsActive()) {
			out = append(out, *r)
		}
	}
	return out
}

func (s *fakeReservationStore) Manifest(ctx context.Context, driverID string, filter models.ManifestFilter) ([]models.ManifestEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ManifestEntry{}
	for _, r := range s.rows {
		t := s.catalog.trips[r.TripID]
		if !r.IsActive() || t == nil || !t.HasDriver() || *t.DriverID != driverID {
			continue
		}
		if filter.Destination != "" && !strings.Contains(strings.ToLower(r.Destination), strings.ToLower(filter.Destination)) {
			continue
		}
		out = append(out, models.ManifestEntry{ReservationID: r.ID, UserID: r.UserID, TripID: r.TripID, SeatNumber: r.SeatNumber, Destination: r.Destination})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (s *fakeReservationStore) activeSeats(tripID string) []int {
	seats, _ := s.TakenSeats(context.Background(), tripID)
	return seats
}

// recordingNotifier captures Notify calls
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyJob
}

func (n *recordingNotifier) Notify(kind models.NotificationType, recipientUserID string, res models.Reservation, trip models.Trip) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyJob{kind: kind, recipient: recipientUserID, res: res, trip: trip})
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.calls))
	for _, c := range n.calls {
		out = append(out, c.recipient)
	}
	return out
}

// fakeNotificationStore is an in-memory NotificationStore
type fakeNotificationStore struct {
	mu        sync.Mutex
	rows      map[string]*models.Notification
	order     []string
	active    map[string]bool // reservation id -> active, for due reminders
	claims    int
	createErr error
	markErr   error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{rows: map[string]*models.Notification{}, active: map[string]bool{}}
}

func (s *fakeNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	n.CreatedAt = time.Now()
	cp := *n
	s.rows[n.ID] = &cp
	s.order = append(s.order, n.ID)
	return nil
}

func (s *fakeNotificationStore) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *fakeNotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Notification{}
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		if n := s.rows[s.order[i]]; n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return database.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (s *fakeNotificationStore) ClaimDueReminders(ctx context.Context, now time.Time, limit int) ([]models.DueReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++
	out := []models.DueReminder{}
	for _, id := range s.order {
		n := s.rows[id]
		if n.Type != models.NotificationTypeReminder || n.IsSent || n.ScheduledFor.After(now) {
			continue
		}
		n.IsSent = true
		sentAt := now
		n.SentAt = &sentAt
		active, known := s.active[n.ReservationID]
		out = append(out, models.DueReminder{Notification: *n, ReservationActive: !known || active})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeNotificationStore) ReleaseReminders(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if n, ok := s.rows[id]; ok {
			n.IsSent = false
			n.SentAt = nil
		}
	}
	return nil
}

func (s *fakeNotificationStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	if n, ok := s.rows[id]; ok {
		n.IsSent = true
		n.SentAt = &sentAt
	}
	return nil
}

func (s *fakeNotificationStore) all() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.rows[id])
	}
	return out
}

// fakeDevices is an in-memory DeviceStore
type fakeDevices struct {
	tokens map[string][]string
	err    error
}

func (d *fakeDevices) Upsert(ctx context.Context, userID, token, platform string) error {
	if d.tokens == nil {
		d.tokens = map[string][]string{}
	}
	d.tokens[userID] = append(d.tokens[userID], token)
	return nil
}

func (d *fakeDevices) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.tokens[userID], nil
}

// fakeTransport records pushes
type fakeTransport struct {
	mu       sync.Mutex
	sent     []string // titles
	err      error
	declined bool
}

func (t *fakeTransport) Send(ctx context.Context, deviceTokens []string, title, body string, data map[string]string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return false, t.err
	}
	if t.declined {
		return false, nil
	}
	t.sent = append(t.sent, title)
	return true, nil
}
