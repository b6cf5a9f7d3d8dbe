package validator

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptyDepartureTime indicates the departure label is empty
	ErrEmptyDepartureTime = errors.New("departure time cannot be empty")

	// ErrInvalidDepartureTime indicates the label is not a 24h HH:MM clock time
	ErrInvalidDepartureTime = errors.New("departure time must be HH:MM between 00:00 and 23:59")

	// ErrInvalidDirection indicates a direction other than forward or reverse
	ErrInvalidDirection = errors.New("direction must be forward or reverse")
)

// departureRegex matches H:MM or HH:MM on a 24 hour clock
var departureRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// ParseDepartureTime splits a departure label into hour and minute
func ParseDepartureTime(label string) (hour, minute int, err error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, 0, ErrEmptyDepartureTime
	}

	m := departureRegex.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, ErrInvalidDepartureTime
	}

	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// NormalizeDepartureTime returns the label zero-padded, e.g. "8:05" -> "08:05"
func NormalizeDepartureTime(label string) (string, error) {
	hour, minute, err := ParseDepartureTime(label)
	if err != nil {
		return "", err
	}
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04"), nil
}

// NextDeparture resolves a wall-clock label to its next occurrence at or
// after now, in loc
func NextDeparture(label string, now time.Time, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseDepartureTime(label)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	departure := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if departure.Before(local) {
		departure = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return departure, nil
}

// ValidateDirection checks a trip direction value
func ValidateDirection(direction string) error {
	switch direction {
	case "forward", "reverse":
		return nil
	}
	return ErrInvalidDirection
}
