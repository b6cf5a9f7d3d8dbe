package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var tripRowColumns = []string{
	"id", "shuttle_id", "departure_time", "route", "direction", "seats_capacity", "created_at",
	"shuttle_name", "shuttle_seats_capacity", "driver_id",
}

var reservationRowColumns = []string{
	"id", "user_id", "trip_id", "shuttle_id", "seat_number", "destination",
	"status", "created_at", "cancelled_at",
}

func tripRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(tripRowColumns).
		AddRow("trip-1", "shuttle-1", "08:00", "Campus - Town", "forward", nil, now, "Shuttle A", 20, "driver-1")
}
