package tours

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateInput carries the fields for creating a tour.
type CreateInput struct {
	Name          string
	Description   string
	TourManagerID *uuid.UUID
	ArtistID      *uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
	CreatedBy     uuid.UUID
}

// UpdateInput carries the fields for updating a tour.
type UpdateInput struct {
	Name          string
	Description   string
	TourManagerID *uuid.UUID
	ArtistID      *uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
	Status        Status
}

// ListFilter restricts a listing to the caller's accessible tours.
// All=true skips the tour-id filter entirely.
type ListFilter struct {
	All     bool
	TourIDs []uuid.UUID
	Status  *Status
}

// RepositoryPort defines data access methods for tours.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateInput) (Tour, error)
	Get(ctx context.Context, id uuid.UUID) (Tour, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tour, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]Tour, error)
	RollCompleted(ctx context.Context, now time.Time) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

const tourColumns = `id, name, description, tour_manager_id, artist_id, start_date, end_date, status, created_by, created_at, updated_at`

// Create inserts a new tour in planning status.
func (r *Repository) Create(ctx context.Context, input CreateInput) (Tour, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tours (id, name, description, tour_manager_id, artist_id, start_date, end_date, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING `+tourColumns,
		uuid.New(), input.Name, input.Description, input.TourManagerID, input.ArtistID,
		input.StartDate, input.EndDate, StatusPlanning, input.CreatedBy,
	)
	return scanTour(row)
}

// Get fetches a tour by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Tour, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = $1`, id)
	tour, err := scanTour(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tour{}, ErrNotFound
		}
		return Tour{}, err
	}
	return tour, nil
}

// Update rewrites a tour's mutable fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tour, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tours
		SET name = $2, description = $3, tour_manager_id = $4, artist_id = $5,
		    start_date = $6, end_date = $7, status = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+tourColumns,
		id, input.Name, input.Description, input.TourManagerID, input.ArtistID,
		input.StartDate, input.EndDate, input.Status,
	)
	tour, err := scanTour(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tour{}, ErrNotFound
		}
		return Tour{}, err
	}
	return tour, nil
}

// Delete removes a tour. Returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tours WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns tours visible through the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Tour, error) {
	query := `SELECT ` + tourColumns + ` FROM tours`
	args := []any{}
	where := ``

	if !filter.All {
		if len(filter.TourIDs) == 0 {
			return []Tour{}, nil
		}
		args = append(args, filter.TourIDs)
		where = ` WHERE id = ANY($1)`
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		if where == "" {
			where = ` WHERE status = $1`
		} else {
			where += ` AND status = $2`
		}
	}

	rows, err := r.pool.Query(ctx, query+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tours []Tour
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, tour)
	}
	return tours, rows.Err()
}

// RollCompleted marks active tours past their end date as completed.
func (r *Repository) RollCompleted(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tours
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND end_date IS NOT NULL AND end_date < $3`,
		StatusCompleted, StatusActive, now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTour(row pgx.Row) (Tour, error) {
	var t Tour
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.TourManagerID, &t.ArtistID,
		&t.StartDate, &t.EndDate, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
