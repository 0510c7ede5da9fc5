package tours

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status enumerates the tour lifecycle.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Tour is the scoping entity for tour-specific role assignments.
type Tour struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	TourManagerID *uuid.UUID `json:"tour_manager_id,omitempty"`
	ArtistID      *uuid.UUID `json:"artist_id,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Status        Status     `json:"status"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Domain errors for tours.
var (
	ErrNotFound          = errors.New("tour not found")
	ErrInvalidStatus     = errors.New("invalid tour status")
	ErrInvalidTransition = errors.New("invalid tour status transition")
	ErrInvalidDates      = errors.New("tour end date precedes start date")
	ErrNameRequired      = errors.New("tour name required")
)

// allowedTransitions encodes the tour lifecycle as data.
var allowedTransitions = map[Status][]Status{
	StatusPlanning:  {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether a status change is allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
