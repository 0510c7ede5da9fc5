package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tourify/tourify/internal/shared"
)

// Service orchestrates the role assignment store, the compiled-in catalog and
// the context cache. All authorization answers flow through here.
type Service struct {
	store  Store
	cache  *Cache
	audit  *shared.AuditLogger
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService constructs a Service. Cache and audit logger may be nil.
func NewService(store Store, cache *Cache, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		cache:  cache,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// TourAccess describes which tours a user's queries may see. When All is set
// the caller skips tour filtering entirely.
type TourAccess struct {
	All     bool
	TourIDs []uuid.UUID
}

// AssignRole grants a role, validating the role name against the catalog
// before touching the store. Unknown roles fail loudly.
func (s *Service) AssignRole(ctx context.Context, input AssignInput) (TourRole, error) {
	if _, err := LookupRole(input.RoleName); err != nil {
		return TourRole{}, err
	}
	granted, err := s.store.Assign(ctx, input)
	if err != nil {
		return TourRole{}, fmt.Errorf("rbac: assign role: %w", err)
	}
	s.invalidate(ctx, input.UserID)
	s.recordAudit(ctx, input.AssignedBy, "rbac.assign", granted)
	return granted, nil
}

// RevokeRole deactivates an assignment. The row survives for audit.
func (s *Service) RevokeRole(ctx context.Context, id int64, revokedBy *uuid.UUID) error {
	assignment, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Revoke(ctx, id); err != nil {
		return fmt.Errorf("rbac: revoke role: %w", err)
	}
	s.invalidate(ctx, assignment.UserID)
	s.recordAudit(ctx, revokedBy, "rbac.revoke", assignment)
	return nil
}

// ListUserRoles returns every assignment for a user, active and inactive.
func (s *Service) ListUserRoles(ctx context.Context, userID uuid.UUID) ([]TourRole, error) {
	return s.store.ListForUser(ctx, userID)
}

// ContextFor builds (or loads from cache) the user's permission context.
// The store is consulted at most once per build; concurrent builds for the
// same user are deduplicated. A user with no assignment rows gets an empty,
// deny-everything context rather than an error. Store failures propagate so
// callers can tell "denied" apart from "could not determine".
func (s *Service) ContextFor(ctx context.Context, userID uuid.UUID) (*PermissionContext, error) {
	if cached, err := s.cache.Get(ctx, userID); err != nil {
		s.logger.Warn("permission context cache read", slog.Any("error", err))
	} else if cached != nil && cached.LiveAt(s.now()) {
		// A grant can lapse while its context sits in the cache; a context
		// holding any expired assignment is a miss, never an answer.
		return cached, nil
	}

	value, err, _ := s.group.Do(userID.String(), func() (any, error) {
		now := s.now()
		assignments, err := s.store.ListActiveForUser(ctx, userID, now)
		if err != nil {
			return nil, fmt.Errorf("rbac: load assignments: %w", err)
		}
		pctx := BuildContext(userID, assignments, now)
		if err := s.cache.Set(ctx, pctx); err != nil {
			s.logger.Warn("permission context cache write", slog.Any("error", err))
		}
		return pctx, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*PermissionContext), nil
}

// HasPermission answers a single permission check for a user.
func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, permission string, tourID *uuid.UUID) (bool, error) {
	if _, err := LookupPermission(permission); err != nil {
		return false, err
	}
	pctx, err := s.ContextFor(ctx, userID)
	if err != nil {
		return false, err
	}
	return pctx.HasPermission(permission, tourID), nil
}

// CanAccessTour reports whether the user may touch the tour at all: any
// active assignment (global or scoped to that tour), a global super_admin
// grant, or direct ownership of the tour. Ownership is OR'd in, never a
// replacement for the role-based result.
func (s *Service) CanAccessTour(ctx context.Context, userID, tourID uuid.UUID) (bool, error) {
	pctx, err := s.ContextFor(ctx, userID)
	if err != nil {
		return false, err
	}
	if pctx.IsSuperAdmin() || pctx.HasGlobalAssignment() {
		return true, nil
	}
	if _, ok := pctx.PerTour[tourID]; ok {
		return true, nil
	}
	owned, err := s.store.OwnedTourIDs(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("rbac: load owned tours: %w", err)
	}
	for _, id := range owned {
		if id == tourID {
			return true, nil
		}
	}
	return false, nil
}

// AccessibleTours computes the tour set for query filtering: every tour when
// the user holds a global tours.view (or broader) grant, otherwise the union
// of scoped grants and owned tours.
func (s *Service) AccessibleTours(ctx context.Context, userID uuid.UUID) (TourAccess, error) {
	pctx, err := s.ContextFor(ctx, userID)
	if err != nil {
		return TourAccess{}, err
	}
	if pctx.IsSuperAdmin() || pctx.Global.Has(PermToursView) {
		return TourAccess{All: true}, nil
	}

	owned, err := s.store.OwnedTourIDs(ctx, userID)
	if err != nil {
		return TourAccess{}, fmt.Errorf("rbac: load owned tours: %w", err)
	}

	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, id := range pctx.ScopedTourIDs() {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range owned {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return TourAccess{TourIDs: ids}, nil
}

// ExpireLapsedGrants deactivates grants past their expiry and drops the
// affected users' cached contexts. Returns the number of users touched.
func (s *Service) ExpireLapsedGrants(ctx context.Context) (int, error) {
	users, err := s.store.ExpireLapsed(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("rbac: expire grants: %w", err)
	}
	for _, userID := range users {
		s.invalidate(ctx, userID)
	}
	return len(users), nil
}

func (s *Service) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("permission context invalidate", slog.Any("error", err), slog.String("user_id", userID.String()))
	}
}

func (s *Service) recordAudit(ctx context.Context, actor *uuid.UUID, action string, assignment TourRole) {
	if s.audit == nil {
		return
	}
	var actorID uuid.UUID
	if actor != nil {
		actorID = *actor
	}
	meta := map[string]any{
		"user_id":   assignment.UserID.String(),
		"role_name": assignment.RoleName,
	}
	if assignment.TourID != nil {
		meta["tour_id"] = assignment.TourID.String()
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user_tour_role",
		EntityID: strconv.FormatInt(assignment.ID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record", slog.Any("error", err), slog.String("action", action))
	}
}
