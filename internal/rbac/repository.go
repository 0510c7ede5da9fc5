package rbac

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tourify/tourify/internal/platform/db"
)

// AssignInput carries the fields for granting a role.
type AssignInput struct {
	UserID     uuid.UUID
	RoleName   string
	TourID     *uuid.UUID
	AssignedBy *uuid.UUID
	ExpiresAt  *time.Time
}

// Store defines persistence operations for role assignments.
type Store interface {
	Assign(ctx context.Context, input AssignInput) (TourRole, error)
	Get(ctx context.Context, id int64) (TourRole, error)
	Revoke(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]TourRole, error)
	ListActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]TourRole, error)
	ExpireLapsed(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	OwnedTourIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL-backed store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

var _ Store = (*PGStore)(nil)

const tourRoleColumns = `id, user_id, role_name, tour_id, assigned_by, assigned_at, expires_at, revoked_at, is_active`

// Assign grants a role to a user. Re-granting an identical active
// (user, role, tour) triple updates the existing row in place instead of
// creating a second one, so grants stay idempotent under concurrent admins.
func (s *PGStore) Assign(ctx context.Context, input AssignInput) (TourRole, error) {
	var granted TourRole
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var existingID int64
		err := tx.QueryRow(ctx, `
			SELECT id FROM user_tour_roles
			WHERE user_id = $1 AND role_name = $2 AND tour_id IS NOT DISTINCT FROM $3 AND is_active
			FOR UPDATE`,
			input.UserID, input.RoleName, input.TourID,
		).Scan(&existingID)
		switch {
		case err == nil:
			row := tx.QueryRow(ctx, `
				UPDATE user_tour_roles
				SET assigned_by = $2, assigned_at = NOW(), expires_at = $3, revoked_at = NULL
				WHERE id = $1
				RETURNING `+tourRoleColumns,
				existingID, input.AssignedBy, input.ExpiresAt,
			)
			granted, err = scanTourRole(row)
			return err
		case errors.Is(err, pgx.ErrNoRows):
			row := tx.QueryRow(ctx, `
				INSERT INTO user_tour_roles (user_id, role_name, tour_id, assigned_by, assigned_at, expires_at, is_active)
				VALUES ($1, $2, $3, $4, NOW(), $5, TRUE)
				RETURNING `+tourRoleColumns,
				input.UserID, input.RoleName, input.TourID, input.AssignedBy, input.ExpiresAt,
			)
			granted, err = scanTourRole(row)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return TourRole{}, err
	}
	return granted, nil
}

// Get fetches a single assignment by ID.
func (s *PGStore) Get(ctx context.Context, id int64) (TourRole, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tourRoleColumns+` FROM user_tour_roles WHERE id = $1`, id)
	assignment, err := scanTourRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TourRole{}, ErrAssignmentNotFound
		}
		return TourRole{}, err
	}
	return assignment, nil
}

// Revoke deactivates an assignment. The row is kept for audit.
func (s *PGStore) Revoke(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_tour_roles
		SET is_active = FALSE, revoked_at = NOW()
		WHERE id = $1 AND is_active`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already revoked; only the former is an error.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ListForUser returns all assignments, active and inactive.
func (s *PGStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]TourRole, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tourRoleColumns+` FROM user_tour_roles
		WHERE user_id = $1
		ORDER BY assigned_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTourRoles(rows)
}

// ListActiveForUser returns grants that are active and not lapsed. The expiry
// predicate runs in SQL and is re-checked during context construction.
func (s *PGStore) ListActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]TourRole, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tourRoleColumns+` FROM user_tour_roles
		WHERE user_id = $1 AND is_active AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY assigned_at DESC, id DESC`,
		userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTourRoles(rows)
}

// ExpireLapsed deactivates grants whose expiry has passed and returns the
// affected user IDs so their cached contexts can be invalidated.
func (s *PGStore) ExpireLapsed(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE user_tour_roles
		SET is_active = FALSE
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1
		RETURNING user_id`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[uuid.UUID]struct{})
	var users []uuid.UUID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		users = append(users, userID)
	}
	return users, rows.Err()
}

// OwnedTourIDs returns tours the user created or manages directly.
// Ownership grants access independently of role assignments.
func (s *PGStore) OwnedTourIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM tours
		WHERE created_by = $1 OR tour_manager_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTourRole(row pgx.Row) (TourRole, error) {
	var a TourRole
	err := row.Scan(&a.ID, &a.UserID, &a.RoleName, &a.TourID, &a.AssignedBy, &a.AssignedAt, &a.ExpiresAt, &a.RevokedAt, &a.IsActive)
	return a, err
}

func collectTourRoles(rows pgx.Rows) ([]TourRole, error) {
	var assignments []TourRole
	for rows.Next() {
		a, err := scanTourRole(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
