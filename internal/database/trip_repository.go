package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

// tripColumns selects a trip with its shuttle's name, capacity and driver.
// Callers join shuttles as s.
const tripColumns = `
	t.id, t.shuttle_id, t.departure_time, t.route, t.direction, t.seats_capacity, t.created_at,
	s.name AS shuttle_name, s.seats_capacity AS shuttle_seats_capacity, s.driver_id`

// TripRepository handles catalog reads: trips and shuttles
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// GetTrip returns a trip by ID, or ErrNotFound
func (r *TripRepository) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + `
		FROM trips t
		JOIN shuttles s ON s.id = t.shuttle_id
		WHERE t.id = $1`

	var trip models.Trip
	if err := r.db.GetContext(ctx, &trip, query, tripID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// GetShuttle returns a shuttle by ID, or ErrNotFound
func (r *TripRepository) GetShuttle(ctx context.Context, shuttleID string) (*models.Shuttle, error) {
	query := `
		SELECT id, name, base_route, seats_capacity, driver_id, created_at
		FROM shuttles
		WHERE id = $1`

	var shuttle models.Shuttle
	if err := r.db.GetContext(ctx, &shuttle, query, shuttleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shuttle: %w", err)
	}
	return &shuttle, nil
}

// ListTrips returns every trip ordered by departure label then shuttle name
func (r *TripRepository) ListTrips(ctx context.Context) ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + `
		FROM trips t
		JOIN shuttles s ON s.id = t.shuttle_id
		ORDER BY t.departure_time, s.name, t.direction`

	trips := []models.Trip{}
	if err := r.db.SelectContext(ctx, &trips, query); err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}
