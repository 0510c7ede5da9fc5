package rbac

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category groups permissions by platform area.
type Category string

// Permission categories. The catalog is closed: every permission belongs to
// exactly one of these.
const (
	CategoryTours          Category = "tours"
	CategoryEvents         Category = "events"
	CategoryStaff          Category = "staff"
	CategoryFinances       Category = "finances"
	CategoryLogistics      Category = "logistics"
	CategoryCommunications Category = "communications"
	CategoryAnalytics      Category = "analytics"
	CategoryAdmin          Category = "admin"
)

// Permission represents an atomic capability in category.action form.
type Permission struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}

// Role represents a named bundle of permissions.
type Role struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsSystem    bool   `json:"is_system"`
}

// TourRole links a user to a role, optionally scoped to one tour.
// A nil TourID means the grant is global.
type TourRole struct {
	ID         int64      `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	RoleName   string     `json:"role_name"`
	TourID     *uuid.UUID `json:"tour_id,omitempty"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	IsActive   bool       `json:"is_active"`
}

// ActiveAt reports whether the grant is effective at the given instant.
// A grant whose expiry has passed is inactive regardless of the stored flag.
func (a TourRole) ActiveAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Global reports whether the grant applies across all tours.
func (a TourRole) Global() bool {
	return a.TourID == nil
}

// Sentinel errors for the authorization core.
var (
	// ErrUnknownRole indicates a role name outside the catalog.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrUnknownPermission indicates a permission name outside the catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
	// ErrAssignmentNotFound indicates the requested grant does not exist.
	ErrAssignmentNotFound = errors.New("rbac: assignment not found")
)
