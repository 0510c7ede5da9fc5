package rbac

import (
	"time"

	"github.com/google/uuid"
)

// PermissionContext is the per-request view of a user's effective permissions,
// partitioned into global grants and tour-scoped grants. It is derived from the
// user's active assignments once, after which every check is a set lookup.
type PermissionContext struct {
	UserID      uuid.UUID
	Assignments []TourRole
	Global      PermissionSet
	PerTour     map[uuid.UUID]PermissionSet
	BuiltAt     time.Time
}

// BuildContext expands active assignments into a permission context.
// Rows that are inactive or expired at build time are excluded, as are rows
// referencing roles outside the catalog (a stale grant must never widen
// access). Zero assignments yields a context that denies everything.
func BuildContext(userID uuid.UUID, assignments []TourRole, now time.Time) *PermissionContext {
	pctx := &PermissionContext{
		UserID:  userID,
		Global:  make(PermissionSet),
		PerTour: make(map[uuid.UUID]PermissionSet),
		BuiltAt: now,
	}
	for _, a := range assignments {
		if !a.ActiveAt(now) {
			continue
		}
		perms, err := RolePermissions(a.RoleName)
		if err != nil {
			continue
		}
		pctx.Assignments = append(pctx.Assignments, a)
		if a.Global() {
			for name := range perms {
				pctx.Global[name] = struct{}{}
			}
			continue
		}
		scoped, ok := pctx.PerTour[*a.TourID]
		if !ok {
			scoped = make(PermissionSet, len(perms))
			pctx.PerTour[*a.TourID] = scoped
		}
		for name := range perms {
			scoped[name] = struct{}{}
		}
	}
	return pctx
}

// LiveAt reports whether every assignment backing the context is still
// effective at the given instant. A context built before a grant's expiry
// can outlive it in the cache; such a context must be rebuilt, not trusted.
func (c *PermissionContext) LiveAt(now time.Time) bool {
	if c == nil {
		return false
	}
	for _, a := range c.Assignments {
		if !a.ActiveAt(now) {
			return false
		}
	}
	return true
}

// HasPermission reports whether the permission is granted globally or, when a
// tour is given, within that tour's scope.
func (c *PermissionContext) HasPermission(permission string, tourID *uuid.UUID) bool {
	if c == nil {
		return false
	}
	if c.Global.Has(permission) {
		return true
	}
	if tourID == nil {
		return false
	}
	return c.PerTour[*tourID].Has(permission)
}

// HasAnyPermission reports whether at least one permission is granted.
func (c *PermissionContext) HasAnyPermission(permissions []string, tourID *uuid.UUID) bool {
	for _, p := range permissions {
		if c.HasPermission(p, tourID) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every permission is granted.
func (c *PermissionContext) HasAllPermissions(permissions []string, tourID *uuid.UUID) bool {
	if c == nil {
		return false
	}
	for _, p := range permissions {
		if !c.HasPermission(p, tourID) {
			return false
		}
	}
	return true
}

// HasRole reports whether an active assignment of the role exists with a
// matching scope. A global assignment satisfies any tour query; a tour-scoped
// assignment only satisfies queries for that same tour.
func (c *PermissionContext) HasRole(role string, tourID *uuid.UUID) bool {
	if c == nil {
		return false
	}
	for _, a := range c.Assignments {
		if a.RoleName != role {
			continue
		}
		if a.Global() {
			return true
		}
		if tourID != nil && *a.TourID == *tourID {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the user holds a global super_admin grant.
// Tour-scoped super_admin grants do not confer platform-wide access.
func (c *PermissionContext) IsSuperAdmin() bool {
	if c == nil {
		return false
	}
	for _, a := range c.Assignments {
		if a.RoleName == RoleSuperAdmin && a.Global() {
			return true
		}
	}
	return false
}

// HasGlobalAssignment reports whether any active global grant exists.
func (c *PermissionContext) HasGlobalAssignment() bool {
	if c == nil {
		return false
	}
	for _, a := range c.Assignments {
		if a.Global() {
			return true
		}
	}
	return false
}

// ScopedTourIDs returns the tours where the user holds a scoped grant.
func (c *PermissionContext) ScopedTourIDs() []uuid.UUID {
	if c == nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(c.PerTour))
	for id := range c.PerTour {
		ids = append(ids, id)
	}
	return ids
}
