package rbac

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grant(userID uuid.UUID, role string, tourID *uuid.UUID) TourRole {
	return TourRole{
		UserID:     userID,
		RoleName:   role,
		TourID:     tourID,
		AssignedAt: time.Now().Add(-time.Hour),
		IsActive:   true,
	}
}

func TestBuildContextEmptyDeniesEverything(t *testing.T) {
	userID := uuid.New()
	pctx := BuildContext(userID, nil, time.Now())

	for _, p := range Permissions() {
		assert.False(t, pctx.HasPermission(p.Name, nil))
	}
	assert.False(t, pctx.IsSuperAdmin())
	assert.False(t, pctx.HasGlobalAssignment())
}

func TestGlobalGrantAppliesToAnyTour(t *testing.T) {
	userID := uuid.New()
	tourA := uuid.New()
	pctx := BuildContext(userID, []TourRole{
		grant(userID, RoleTourManager, nil),
	}, time.Now())

	assert.True(t, pctx.HasPermission(PermToursEdit, nil))
	assert.True(t, pctx.HasPermission(PermToursEdit, &tourA))
	assert.False(t, pctx.HasPermission(PermAdminUsers, nil))
	assert.True(t, pctx.HasRole(RoleTourManager, &tourA))
}

func TestScopedGrantLimitedToItsTour(t *testing.T) {
	userID := uuid.New()
	tourA := uuid.New()
	tourB := uuid.New()
	pctx := BuildContext(userID, []TourRole{
		grant(userID, RoleCrewChief, &tourA),
	}, time.Now())

	assert.True(t, pctx.HasPermission(PermStaffManage, &tourA))
	assert.False(t, pctx.HasPermission(PermStaffManage, &tourB))
	assert.False(t, pctx.HasPermission(PermStaffManage, nil))
	assert.True(t, pctx.HasRole(RoleCrewChief, &tourA))
	assert.False(t, pctx.HasRole(RoleCrewChief, &tourB))
}

func TestExpiredGrantExcludedAtBuildTime(t *testing.T) {
	userID := uuid.New()
	tourA := uuid.New()
	now := time.Now()
	expired := now.Add(-time.Minute)

	g := grant(userID, RoleFinancialManager, &tourA)
	g.ExpiresAt = &expired

	pctx := BuildContext(userID, []TourRole{g}, now)
	assert.False(t, pctx.HasPermission(PermFinancesView, &tourA))
	assert.Empty(t, pctx.Assignments)
}

func TestRevokedGrantExcluded(t *testing.T) {
	userID := uuid.New()
	g := grant(userID, RoleTourManager, nil)
	g.IsActive = false

	pctx := BuildContext(userID, []TourRole{g}, time.Now())
	assert.False(t, pctx.HasPermission(PermToursView, nil))
}

func TestUnknownRoleRowGrantsNothing(t *testing.T) {
	userID := uuid.New()
	pctx := BuildContext(userID, []TourRole{
		grant(userID, "stagehand", nil),
	}, time.Now())

	assert.Empty(t, pctx.Global)
	assert.Empty(t, pctx.Assignments)
}

func TestAnyAndAllCombinators(t *testing.T) {
	userID := uuid.New()
	tourA := uuid.New()
	pctx := BuildContext(userID, []TourRole{
		grant(userID, RoleVendor, &tourA),
	}, time.Now())

	assert.True(t, pctx.HasAnyPermission([]string{PermAdminUsers, PermFinancesView}, &tourA))
	assert.False(t, pctx.HasAnyPermission([]string{PermAdminUsers, PermAdminRoles}, &tourA))
	assert.True(t, pctx.HasAllPermissions([]string{PermToursView, PermFinancesView}, &tourA))
	assert.False(t, pctx.HasAllPermissions([]string{PermToursView, PermFinancesEdit}, &tourA))
}

func TestSuperAdminMustBeGlobal(t *testing.T) {
	userID := uuid.New()
	tourA := uuid.New()

	scoped := BuildContext(userID, []TourRole{
		grant(userID, RoleSuperAdmin, &tourA),
	}, time.Now())
	assert.False(t, scoped.IsSuperAdmin())

	global := BuildContext(userID, []TourRole{
		grant(userID, RoleSuperAdmin, nil),
	}, time.Now())
	assert.True(t, global.IsSuperAdmin())
	assert.True(t, global.HasPermission(PermAdminSystem, nil))
}

func TestScopedGrantsAccumulatePerTour(t *testing.T) {
	userID := uuid.New()
	tourA := uuid.New()
	pctx := BuildContext(userID, []TourRole{
		grant(userID, RoleCrewMember, &tourA),
		grant(userID, RoleVenueCoordinator, &tourA),
	}, time.Now())

	require.Contains(t, pctx.PerTour, tourA)
	assert.True(t, pctx.HasPermission(PermEventsEdit, &tourA))
	assert.True(t, pctx.HasPermission(PermCommunicationsSend, &tourA))
	assert.Len(t, pctx.ScopedTourIDs(), 1)
}

func TestNilContextDenies(t *testing.T) {
	var pctx *PermissionContext
	assert.False(t, pctx.HasPermission(PermToursView, nil))
	assert.False(t, pctx.HasAllPermissions([]string{PermToursView}, nil))
	assert.False(t, pctx.IsSuperAdmin())
}
