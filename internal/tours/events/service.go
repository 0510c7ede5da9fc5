package events

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tourify/tourify/internal/shared"
)

// Service handles tour event business logic.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create validates and inserts a new event under the given tour.
func (s *Service) Create(ctx context.Context, input CreateInput) (TourEvent, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return TourEvent{}, ErrNameRequired
	}
	event, err := s.repo.Create(ctx, input)
	if err != nil {
		return TourEvent{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "events.create", event)
	return event, nil
}

// Get fetches an event and verifies it belongs to the tour in the URL.
func (s *Service) Get(ctx context.Context, tourID, id uuid.UUID) (TourEvent, error) {
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return TourEvent{}, err
	}
	if event.TourID != tourID {
		return TourEvent{}, ErrTourMismatch
	}
	return event, nil
}

// Update applies changes to an event.
func (s *Service) Update(ctx context.Context, tourID, id uuid.UUID, actor uuid.UUID, input UpdateInput) (TourEvent, error) {
	current, err := s.Get(ctx, tourID, id)
	if err != nil {
		return TourEvent{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return TourEvent{}, ErrNameRequired
	}
	if input.Status == "" {
		input.Status = current.Status
	}
	if !input.Status.Valid() {
		return TourEvent{}, ErrInvalidStatus
	}
	event, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return TourEvent{}, err
	}
	s.recordAudit(ctx, actor, "events.update", event)
	return event, nil
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, tourID, id uuid.UUID, actor uuid.UUID) error {
	event, err := s.Get(ctx, tourID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "events.delete", event)
	return nil
}

// ListForTour returns all events for the tour.
func (s *Service) ListForTour(ctx context.Context, tourID uuid.UUID) ([]TourEvent, error) {
	return s.repo.ListForTour(ctx, tourID)
}

func (s *Service) recordAudit(ctx context.Context, actor uuid.UUID, action string, event TourEvent) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "tour_event",
		EntityID: event.ID.String(),
		Meta:     map[string]any{"tour_id": event.TourID.String(), "name": event.Name, "status": string(event.Status)},
	})
}
