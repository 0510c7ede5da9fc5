package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tourify/tourify/internal/shared"
)

// Service handles user account business logic.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create hashes the password and inserts a new account.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, email, name, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, CreateInput{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actor, "users.create", user)
	return user, nil
}

// Get fetches a single user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// SetActive enables or disables an account. Disabled accounts cannot log
// in; their existing sessions keep working until they expire.
func (s *Service) SetActive(ctx context.Context, actor uuid.UUID, id uuid.UUID, active bool) (User, error) {
	user, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return User{}, err
	}
	action := "users.deactivate"
	if active {
		action = "users.activate"
	}
	s.recordAudit(ctx, actor, action, user)
	return user, nil
}

func (s *Service) recordAudit(ctx context.Context, actor uuid.UUID, action string, user User) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "user",
		EntityID: user.ID.String(),
		Meta:     map[string]any{"email": user.Email},
	})
}
