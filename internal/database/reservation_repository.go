package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

const reservationColumns = `
	r.id, r.user_id, r.trip_id, r.shuttle_id, r.seat_number, r.destination,
	r.status, r.created_at, r.cancelled_at`

// nestedTripColumns aliases a joined trip into the "trip." prefix so sqlx
// can scan it into reservationWithTrip.TripRow
const nestedTripColumns = `
	t.id AS "trip.id", t.shuttle_id AS "trip.shuttle_id", t.departure_time AS "trip.departure_time",
	t.route AS "trip.route", t.direction AS "trip.direction", t.seats_capacity AS "trip.seats_capacity",
	t.created_at AS "trip.created_at", s.name AS "trip.shuttle_name",
	s.seats_capacity AS "trip.shuttle_seats_capacity", s.driver_id AS "trip.driver_id"`

type reservationWithTrip struct {
	models.Reservation
	TripRow models.Trip `db:"trip"`
}

func (row reservationWithTrip) toModel() models.Reservation {
	res := row.Reservation
	trip := row.TripRow
	res.Trip = &trip
	return res
}

// ReservationRepository handles reservation database operations
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new ReservationRepository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// GetByID returns a reservation by ID, or ErrNotFound
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1`

	var res models.Reservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &res, nil
}

// TakenSeats returns the seat numbers held by active reservations on a trip, ascending
func (r *ReservationRepository) TakenSeats(ctx context.Context, tripID string) ([]int, error) {
	query := `
		SELECT seat_number
		FROM reservations
		WHERE trip_id = $1 AND status = 'active'
		ORDER BY seat_number`

	seats := []int{}
	if err := r.db.SelectContext(ctx, &seats, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to get taken seats: %w", err)
	}
	return seats, nil
}

// TakenSeatsByTrip returns active seat numbers for several trips in one round trip
func (r *ReservationRepository) TakenSeatsByTrip(ctx context.Context, tripIDs []string) (map[string][]int, error) {
	result := make(map[string][]int, len(tripIDs))
	if len(tripIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT trip_id, seat_number
		FROM reservations
		WHERE trip_id = ANY($1) AND status = 'active'
		ORDER BY trip_id, seat_number`

	var rows []struct {
		TripID     string `db:"trip_id"`
		SeatNumber int    `db:"seat_number"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(tripIDs)); err != nil {
		return nil, fmt.Errorf("failed to get taken seats: %w", err)
	}

	for _, row := range rows {
		result[row.TripID] = append(result[row.TripID], row.SeatNumber)
	}
	return result, nil
}

// FindActiveByUserAndTrip returns the user's active reservation on a trip, or ErrNotFound
func (r *ReservationRepository) FindActiveByUserAndTrip(ctx context.Context, userID, tripID string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM reservations r
		WHERE r.user_id = $1 AND r.trip_id = $2 AND r.status = 'active'`

	var res models.Reservation
	if err := r.db.GetContext(ctx, &res, query, userID, tripID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active reservation: %w", err)
	}
	return &res, nil
}

// FindTimeConflict returns another trip the user is actively booked on that
// shares departureTime, or nil when there is none. Labels are compared as
// strings, so recurring trips with the same label conflict across days.
func (r *ReservationRepository) FindTimeConflict(ctx context.Context, userID, departureTime, excludeTripID string) (*models.Trip, error) {
	return findTimeConflict(ctx, r.db, userID, departureTime, excludeTripID)
}

func findTimeConflict(ctx context.Context, q sqlx.QueryerContext, userID, departureTime, excludeTripID string) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + `
		FROM reservations r
		JOIN trips t ON t.id = r.trip_id
		JOIN shuttles s ON s.id = t.shuttle_id
		WHERE r.user_id = $1
		  AND r.status = 'active'
		  AND t.departure_time = $2
		  AND r.trip_id <> $3
		LIMIT 1`

	var trip models.Trip
	if err := sqlx.GetContext(ctx, q, &trip, query, userID, departureTime, excludeTripID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check time conflict: %w", err)
	}
	return &trip, nil
}

// Create inserts an active reservation. The insert runs under a per-user
// advisory lock with the time-conflict check repeated inside the same
// transaction; seat and per-trip uniqueness are enforced by partial unique
// indexes and surface as ErrSeatTaken / ErrDuplicateBooking.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation, departureTime string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, res.UserID); err != nil {
		return fmt.Errorf("failed to acquire user lock: %w", err)
	}

	conflict, err := findTimeConflict(ctx, tx, res.UserID, departureTime, res.TripID)
	if err != nil {
		return err
	}
	if conflict != nil {
		return &TimeConflictError{Trip: *conflict}
	}

	query := `
		INSERT INTO reservations (id, user_id, trip_id, shuttle_id, seat_number, destination, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'active')
		RETURNING status, created_at`

	err = tx.QueryRowxContext(ctx, query,
		res.ID, res.UserID, res.TripID, res.ShuttleID, res.SeatNumber, res.Destination,
	).Scan(&res.Status, &res.CreatedAt)
	if err != nil {
		if translated := translateReservationError(err); translated != err {
			return translated
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil
}

// Cancel flips an active reservation to cancelled. A reservation that is no
// longer active yields ErrAlreadyCancelled; a missing one yields ErrNotFound.
func (r *ReservationRepository) Cancel(ctx context.Context, id string) (*models.Reservation, error) {
	query := `
		UPDATE reservations r
		SET status = 'cancelled', cancelled_at = NOW()
		WHERE r.id = $1 AND r.status = 'active'
		RETURNING ` + reservationColumns

	var res models.Reservation
	err := r.db.GetContext(ctx, &res, query, id)
	if err == nil {
		return &res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyCancelled
}

// ListByUser returns all of the user's reservations with their trips, newest first
func (r *ReservationRepository) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return r.listByUser(ctx, userID, false)
}

// ListActiveByUser returns the user's active reservations with their trips, newest first
func (r *ReservationRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return r.listByUser(ctx, userID, true)
}

func (r *ReservationRepository) listByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `, ` + nestedTripColumns + `
		FROM reservations r
		JOIN trips t ON t.id = r.trip_id
		JOIN shuttles s ON s.id = t.shuttle_id
		WHERE r.user_id = $1`
	if activeOnly {
		query += ` AND r.status = 'active'`
	}
	query += ` ORDER BY r.created_at DESC`

	var rows []reservationWithTrip
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	reservations := make([]models.Reservation, 0, len(rows))
	for _, row := range rows {
		reservations = append(reservations, row.toModel())
	}
	return reservations, nil
}

// Manifest returns active passengers on shuttles driven by driverID, by seat
func (r *ReservationRepository) Manifest(ctx context.Context, driverID string, filter models.ManifestFilter) ([]models.ManifestEntry, error) {
	conditions := []string{"s.driver_id = $1", "r.status = 'active'"}
	args := []interface{}{driverID}

	if filter.ShuttleID != "" {
		args = append(args, filter.ShuttleID)
		conditions = append(conditions, fmt.Sprintf("r.shuttle_id = $%d", len(args)))
	}
	if filter.DepartureTime != "" {
		args = append(args, filter.DepartureTime)
		conditions = append(conditions, fmt.Sprintf("t.departure_time = $%d", len(args)))
	}
	if filter.Destination != "" {
		args = append(args, "%"+strings.ToLower(filter.Destination)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(r.destination) LIKE $%d", len(args)))
	}

	query := `
		SELECT r.id AS reservation_id, r.user_id, r.trip_id, r.seat_number, r.destination,
		       t.departure_time, s.name AS shuttle_name
		FROM reservations r
		JOIN trips t ON t.id = r.trip_id
		JOIN shuttles s ON s.id = r.shuttle_id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY t.departure_time, r.seat_number`

	entries := []models.ManifestEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return entries, nil
}
