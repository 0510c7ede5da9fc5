package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateInput carries the fields for creating a tour event.
type CreateInput struct {
	TourID       uuid.UUID
	Name         string
	Description  string
	VenueName    string
	VenueAddress string
	EventDate    time.Time
	CreatedBy    uuid.UUID
}

// UpdateInput carries the fields for updating a tour event.
type UpdateInput struct {
	Name         string
	Description  string
	VenueName    string
	VenueAddress string
	EventDate    time.Time
	Status       Status
}

// RepositoryPort defines data access methods for tour events.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateInput) (TourEvent, error)
	Get(ctx context.Context, id uuid.UUID) (TourEvent, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (TourEvent, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListForTour(ctx context.Context, tourID uuid.UUID) ([]TourEvent, error)
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

const eventColumns = `id, tour_id, name, description, venue_name, venue_address, event_date, status, created_by, created_at, updated_at`

// Create inserts a new event in scheduled status.
func (r *Repository) Create(ctx context.Context, input CreateInput) (TourEvent, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tour_events (id, tour_id, name, description, venue_name, venue_address, event_date, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING `+eventColumns,
		uuid.New(), input.TourID, input.Name, input.Description,
		input.VenueName, input.VenueAddress, input.EventDate, StatusScheduled, input.CreatedBy,
	)
	return scanEvent(row)
}

// Get fetches an event by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (TourEvent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM tour_events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TourEvent{}, ErrNotFound
		}
		return TourEvent{}, err
	}
	return event, nil
}

// Update rewrites an event's mutable fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (TourEvent, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tour_events
		SET name = $2, description = $3, venue_name = $4, venue_address = $5,
		    event_date = $6, status = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+eventColumns,
		id, input.Name, input.Description, input.VenueName, input.VenueAddress,
		input.EventDate, input.Status,
	)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TourEvent{}, ErrNotFound
		}
		return TourEvent{}, err
	}
	return event, nil
}

// Delete removes an event. Returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tour_events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForTour returns all events for a tour ordered by date.
func (r *Repository) ListForTour(ctx context.Context, tourID uuid.UUID) ([]TourEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM tour_events
		WHERE tour_id = $1
		ORDER BY event_date ASC`,
		tourID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []TourEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, event)
	}
	return list, rows.Err()
}

func scanEvent(row pgx.Row) (TourEvent, error) {
	var e TourEvent
	err := row.Scan(&e.ID, &e.TourID, &e.Name, &e.Description, &e.VenueName,
		&e.VenueAddress, &e.EventDate, &e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}
