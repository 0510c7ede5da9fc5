package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the event lifecycle.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// TourEvent is a scheduled occurrence within a tour. It always belongs to
// exactly one tour.
type TourEvent struct {
	ID           uuid.UUID `json:"id"`
	TourID       uuid.UUID `json:"tour_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	VenueName    string    `json:"venue_name"`
	VenueAddress string    `json:"venue_address"`
	EventDate    time.Time `json:"event_date"`
	Status       Status    `json:"status"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Domain errors for tour events.
var (
	ErrNotFound      = errors.New("tour event not found")
	ErrInvalidStatus = errors.New("invalid event status")
	ErrNameRequired  = errors.New("event name required")
	ErrTourMismatch  = errors.New("event belongs to a different tour")
)
