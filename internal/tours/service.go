package tours

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tourify/tourify/internal/rbac"
	"github.com/tourify/tourify/internal/shared"
)

// Authorizer answers data isolation questions for listings.
type Authorizer interface {
	AccessibleTours(ctx context.Context, userID uuid.UUID) (rbac.TourAccess, error)
}

// Service handles tour business logic.
type Service struct {
	repo  RepositoryPort
	authz Authorizer
	audit *shared.AuditLogger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, authz Authorizer, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, authz: authz, audit: audit}
}

// Create validates and inserts a new tour.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tour, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Tour{}, ErrNameRequired
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return Tour{}, ErrInvalidDates
	}
	tour, err := s.repo.Create(ctx, input)
	if err != nil {
		return Tour{}, err
	}
	s.recordAudit(ctx, input.CreatedBy, "tours.create", tour)
	return tour, nil
}

// Get fetches a single tour.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tour, error) {
	return s.repo.Get(ctx, id)
}

// Update applies changes, enforcing the status lifecycle. Cancelled and
// completed tours are immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, actor uuid.UUID, input UpdateInput) (Tour, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tour{}, err
	}
	if current.Status == StatusCancelled || current.Status == StatusCompleted {
		return Tour{}, ErrInvalidTransition
	}
	if input.Status == "" {
		input.Status = current.Status
	}
	if !input.Status.Valid() {
		return Tour{}, ErrInvalidStatus
	}
	if !CanTransition(current.Status, input.Status) {
		return Tour{}, ErrInvalidTransition
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Tour{}, ErrNameRequired
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return Tour{}, ErrInvalidDates
	}
	tour, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return Tour{}, err
	}
	s.recordAudit(ctx, actor, "tours.update", tour)
	return tour, nil
}

// Delete removes a tour.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	tour, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "tours.delete", tour)
	return nil
}

// ListForUser returns the tours the caller may see, per data isolation rules.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, status *Status) ([]Tour, error) {
	access, err := s.authz.AccessibleTours(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, ListFilter{
		All:     access.All,
		TourIDs: access.TourIDs,
		Status:  status,
	})
}

func (s *Service) recordAudit(ctx context.Context, actor uuid.UUID, action string, tour Tour) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "tour",
		EntityID: tour.ID.String(),
		Meta:     map[string]any{"name": tour.Name, "status": string(tour.Status)},
	})
}
