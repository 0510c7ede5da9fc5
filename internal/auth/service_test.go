package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tourify/tourify/internal/shared"
)

type mockRepo struct {
	users    map[string]*User
	sessions map[string]uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:    make(map[string]*User),
		sessions: make(map[string]uuid.UUID),
	}
}

func (m *mockRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepo) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = userID
	return nil
}

func (m *mockRepo) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

var _ Repository = (*mockRepo)(nil)

func addUser(t *testing.T, repo *mockRepo, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
		IsActive:     active,
	}
	repo.users[email] = user
	return user
}

func TestAuthenticate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	want := addUser(t, repo, "manager@tourify.local", "correct-horse", true)

	user, err := svc.Authenticate(context.Background(), "manager@tourify.local", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, want.ID, user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	addUser(t, repo, "manager@tourify.local", "correct-horse", true)

	_, err := svc.Authenticate(context.Background(), "manager@tourify.local", "battery-staple")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Authenticate(context.Background(), "ghost@tourify.local", "whatever1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	addUser(t, repo, "retired@tourify.local", "correct-horse", false)

	_, err := svc.Authenticate(context.Background(), "retired@tourify.local", "correct-horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	userID := uuid.New()

	require.NoError(t, svc.RegisterSession(context.Background(), "sess-1", userID, time.Now().Add(time.Hour), "127.0.0.1", "go-test"))
	assert.Equal(t, userID, repo.sessions["sess-1"])

	require.NoError(t, svc.RemoveSession(context.Background(), "sess-1"))
	assert.NotContains(t, repo.sessions, "sess-1")
}
