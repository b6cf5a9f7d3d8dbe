package services

import (
	"context"
	"errors"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/shuttle-reservation-backend/internal/database"
	"github.com/smarttransit/shuttle-reservation-backend/internal/models"
)

// InventoryService derives seat occupancy from active reservations.
// There is no stored seat counter; every read recomputes from the store.
type InventoryService struct {
	catalog         CatalogStore
	reservations    ReservationStore
	defaultCapacity int
	logger          *logrus.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(catalog CatalogStore, reservations ReservationStore, defaultCapacity int, logger *logrus.Logger) *InventoryService {
	return &InventoryService{
		catalog:         catalog,
		reservations:    reservations,
		defaultCapacity: defaultCapacity,
		logger:          logger,
	}
}

// Occupancy returns the taken seats and remaining capacity of a trip
func (s *InventoryService) Occupancy(ctx context.Context, tripID string) (*models.Occupancy, error) {
	trip, err := s.getTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return s.occupancyOf(ctx, trip)
}

// TripBoard lists every trip with its occupancy
func (s *InventoryService) TripBoard(ctx context.Context) ([]models.TripBoardItem, error) {
	trips, err := s.catalog.ListTrips(ctx)
	if err != nil {
		return nil, internalError("failed to list trips", err)
	}

	ids := make([]string, 0, len(trips))
	for _, trip := range trips {
		ids = append(ids, trip.ID)
	}

	seatsByTrip, err := s.reservations.TakenSeatsByTrip(ctx, ids)
	if err != nil {
		return nil, internalError("failed to load occupancy", err)
	}

	board := make([]models.TripBoardItem, 0, len(trips))
	for _, trip := range trips {
		occ := s.derive(&trip, seatsByTrip[trip.ID])
		board = append(board, models.TripBoardItem{
			Trip:       trip,
			TakenSeats: occ.TakenSeats,
			Available:  occ.Available,
			Capacity:   occ.Capacity,
		})
	}
	return board, nil
}

func (s *InventoryService) getTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := s.catalog.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(KindNotFound, "trip not found")
		}
		return nil, internalError("failed to load trip", err)
	}
	return trip, nil
}

func (s *InventoryService) occupancyOf(ctx context.Context, trip *models.Trip) (*models.Occupancy, error) {
	seats, err := s.reservations.TakenSeats(ctx, trip.ID)
	if err != nil {
		return nil, internalError("failed to load occupancy", err)
	}
	return s.derive(trip, seats), nil
}

func (s *InventoryService) capacityOf(trip *models.Trip) int {
	return trip.Capacity(s.defaultCapacity)
}

// derive builds the occupancy snapshot. Seats outside 1..capacity are left
// out of the count and logged.
func (s *InventoryService) derive(trip *models.Trip, seats []int) *models.Occupancy {
	capacity := s.capacityOf(trip)

	seen := make(map[int]struct{}, len(seats))
	taken := make([]int, 0, len(seats))
	for _, seat := range seats {
		if seat < 1 || seat > capacity {
			s.logger.WithFields(logrus.Fields{
				"trip_id":  trip.ID,
				"seat":     seat,
				"capacity": capacity,
			}).Warn("Active reservation holds a seat outside trip capacity")
			continue
		}
		if _, dup := seen[seat]; dup {
			continue
		}
		seen[seat] = struct{}{}
		taken = append(taken, seat)
	}
	sort.Ints(taken)

	available := capacity - len(taken)
	if available < 0 {
		available = 0
	}

	return &models.Occupancy{
		TripID:     trip.ID,
		Capacity:   capacity,
		TakenSeats: taken,
		Available:  available,
	}
}
