package models

// Occupancy is the derived seat inventory of a trip.
// It is recomputed from active reservations on every read and never stored.
type Occupancy struct {
	TripID     string `json:"trip_id"`
	Capacity   int    `json:"capacity"`
	TakenSeats []int  `json:"taken_seats"`
	Available  int    `json:"available"`
}

// IsTaken reports whether seat is held by an active reservation
func (o *Occupancy) IsTaken(seat int) bool {
	for _, s := range o.TakenSeats {
		if s == seat {
			return true
		}
	}
	return false
}

// LowestFreeSeat returns the lowest-numbered seat in 1..Capacity that is not taken
func (o *Occupancy) LowestFreeSeat() (int, bool) {
	taken := make(map[int]struct{}, len(o.TakenSeats))
	for _, s := range o.TakenSeats {
		taken[s] = struct{}{}
	}
	for seat := 1; seat <= o.Capacity; seat++ {
		if _, ok := taken[seat]; !ok {
			return seat, true
		}
	}
	return 0, false
}

// TripBoardItem is a trip together with its current occupancy
type TripBoardItem struct {
	Trip
	TakenSeats []int `json:"taken_seats"`
	Available  int   `json:"seats_available"`
	Capacity   int   `json:"capacity"`
}
