package tours

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourify/tourify/internal/rbac"
)

type mockRepository struct {
	tours map[uuid.UUID]Tour
}

func newMockRepository() *mockRepository {
	return &mockRepository{tours: make(map[uuid.UUID]Tour)}
}

func (m *mockRepository) Create(ctx context.Context, input CreateInput) (Tour, error) {
	tour := Tour{
		ID:            uuid.New(),
		Name:          input.Name,
		Description:   input.Description,
		TourManagerID: input.TourManagerID,
		ArtistID:      input.ArtistID,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Status:        StatusPlanning,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.tours[tour.ID] = tour
	return tour, nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (Tour, error) {
	tour, ok := m.tours[id]
	if !ok {
		return Tour{}, ErrNotFound
	}
	return tour, nil
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tour, error) {
	tour, ok := m.tours[id]
	if !ok {
		return Tour{}, ErrNotFound
	}
	tour.Name = input.Name
	tour.Description = input.Description
	tour.TourManagerID = input.TourManagerID
	tour.ArtistID = input.ArtistID
	tour.StartDate = input.StartDate
	tour.EndDate = input.EndDate
	tour.Status = input.Status
	tour.UpdatedAt = time.Now()
	m.tours[id] = tour
	return tour, nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.tours[id]; !ok {
		return ErrNotFound
	}
	delete(m.tours, id)
	return nil
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]Tour, error) {
	var out []Tour
	for _, tour := range m.tours {
		if !filter.All {
			found := false
			for _, id := range filter.TourIDs {
				if id == tour.ID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if filter.Status != nil && tour.Status != *filter.Status {
			continue
		}
		out = append(out, tour)
	}
	return out, nil
}

func (m *mockRepository) RollCompleted(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	for id, tour := range m.tours {
		if tour.Status == StatusActive && tour.EndDate != nil && tour.EndDate.Before(now) {
			tour.Status = StatusCompleted
			m.tours[id] = tour
			count++
		}
	}
	return count, nil
}

var _ RepositoryPort = (*mockRepository)(nil)

type mockAuthorizer struct {
	access rbac.TourAccess
	err    error
}

func (m mockAuthorizer) AccessibleTours(ctx context.Context, userID uuid.UUID) (rbac.TourAccess, error) {
	return m.access, m.err
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMockRepository(), mockAuthorizer{}, nil)
	_, err := svc.Create(context.Background(), CreateInput{Name: "   ", CreatedBy: uuid.New()})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestCreateRejectsReversedDates(t *testing.T) {
	svc := NewService(newMockRepository(), mockAuthorizer{}, nil)
	start := time.Now()
	end := start.Add(-24 * time.Hour)
	_, err := svc.Create(context.Background(), CreateInput{
		Name: "Winter Run", StartDate: &start, EndDate: &end, CreatedBy: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrInvalidDates)
}

func TestCreateStartsInPlanning(t *testing.T) {
	svc := NewService(newMockRepository(), mockAuthorizer{}, nil)
	tour, err := svc.Create(context.Background(), CreateInput{Name: "Winter Run", CreatedBy: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, StatusPlanning, tour.Status)
}

func TestUpdateLifecycle(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, mockAuthorizer{}, nil)
	actor := uuid.New()

	tour, err := svc.Create(context.Background(), CreateInput{Name: "Winter Run", CreatedBy: actor})
	require.NoError(t, err)

	// planning -> completed is not allowed
	_, err = svc.Update(context.Background(), tour.ID, actor, UpdateInput{
		Name: tour.Name, Status: StatusCompleted,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// planning -> active
	updated, err := svc.Update(context.Background(), tour.ID, actor, UpdateInput{
		Name: tour.Name, Status: StatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)

	// active -> completed
	updated, err = svc.Update(context.Background(), tour.ID, actor, UpdateInput{
		Name: tour.Name, Status: StatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	// completed tours are immutable
	_, err = svc.Update(context.Background(), tour.ID, actor, UpdateInput{
		Name: "Renamed", Status: StatusCompleted,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, mockAuthorizer{}, nil)
	actor := uuid.New()

	tour, err := svc.Create(context.Background(), CreateInput{Name: "Winter Run", CreatedBy: actor})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), tour.ID, actor, UpdateInput{
		Name: tour.Name, Status: Status("touring"),
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestListForUserFiltersByAccess(t *testing.T) {
	repo := newMockRepository()
	actor := uuid.New()

	svcAll := NewService(repo, mockAuthorizer{access: rbac.TourAccess{All: true}}, nil)
	a, err := svcAll.Create(context.Background(), CreateInput{Name: "Tour A", CreatedBy: actor})
	require.NoError(t, err)
	_, err = svcAll.Create(context.Background(), CreateInput{Name: "Tour B", CreatedBy: actor})
	require.NoError(t, err)

	all, err := svcAll.ListForUser(context.Background(), actor, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	svcScoped := NewService(repo, mockAuthorizer{access: rbac.TourAccess{TourIDs: []uuid.UUID{a.ID}}}, nil)
	scoped, err := svcScoped.ListForUser(context.Background(), actor, nil)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, a.ID, scoped[0].ID)

	svcNone := NewService(repo, mockAuthorizer{}, nil)
	none, err := svcNone.ListForUser(context.Background(), actor, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRollCompleted(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, mockAuthorizer{}, nil)
	actor := uuid.New()

	past := time.Now().Add(-48 * time.Hour)
	start := past.Add(-30 * 24 * time.Hour)
	tour, err := svc.Create(context.Background(), CreateInput{
		Name: "Finished Run", StartDate: &start, EndDate: &past, CreatedBy: actor,
	})
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), tour.ID, actor, UpdateInput{
		Name: tour.Name, StartDate: &start, EndDate: &past, Status: StatusActive,
	})
	require.NoError(t, err)

	count, err := repo.RollCompleted(context.Background(), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	rolled, err := repo.Get(context.Background(), tour.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rolled.Status)
}

func TestUpdateKeepsStatusWhenOmitted(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, mockAuthorizer{}, nil)
	actor := uuid.New()

	tour, err := svc.Create(context.Background(), CreateInput{Name: "Winter Run", CreatedBy: actor})
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), tour.ID, actor, UpdateInput{
		Name: tour.Name, Status: StatusActive,
	})
	require.NoError(t, err)

	// omitted status keeps the current one instead of resetting to planning
	updated, err := svc.Update(context.Background(), tour.ID, actor, UpdateInput{
		Name: "Winter Run (extended)",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)
	assert.Equal(t, "Winter Run (extended)", updated.Name)
}
