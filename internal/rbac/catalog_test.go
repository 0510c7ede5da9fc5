package rbac

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsRegistryComplete(t *testing.T) {
	perms := Permissions()
	require.Len(t, perms, len(permissionDescriptions))

	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.DisplayName)
		assert.NotEmpty(t, p.Description)
		assert.NotEmpty(t, string(p.Category))
		_, dup := seen[p.Name]
		assert.False(t, dup, "duplicate permission %s", p.Name)
		seen[p.Name] = struct{}{}
	}
}

func TestLookupPermission(t *testing.T) {
	p, err := LookupPermission(PermFinancesApprove)
	require.NoError(t, err)
	assert.Equal(t, CategoryFinances, p.Category)
	assert.Equal(t, "Finances Approve", p.DisplayName)

	_, err = LookupPermission("tours.fly")
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestSuperAdminHoldsEveryPermission(t *testing.T) {
	set, err := RolePermissions(RoleSuperAdmin)
	require.NoError(t, err)
	require.Len(t, set, len(Permissions()))
	for _, p := range Permissions() {
		assert.True(t, set.Has(p.Name), "super_admin missing %s", p.Name)
	}
}

func TestTourManagerExcludesOnlyAdmin(t *testing.T) {
	set, err := RolePermissions(RoleTourManager)
	require.NoError(t, err)

	for _, p := range Permissions() {
		if p.Category == CategoryAdmin {
			assert.False(t, set.Has(p.Name), "tour_manager must not hold %s", p.Name)
		} else {
			assert.True(t, set.Has(p.Name), "tour_manager missing %s", p.Name)
		}
	}
}

func TestNarrowRoleBindings(t *testing.T) {
	cases := []struct {
		role string
		want []string
	}{
		{RoleArtist, []string{
			PermToursView, PermEventsView,
			PermCommunicationsView, PermCommunicationsSend,
		}},
		{RoleCrewChief, []string{
			PermToursView, PermEventsView,
			PermStaffView, PermStaffManage,
			PermLogisticsView, PermLogisticsEdit, PermLogisticsEquipment,
			PermCommunicationsView, PermCommunicationsSend,
		}},
		{RoleCrewMember, []string{
			PermToursView, PermEventsView,
			PermCommunicationsView, PermCommunicationsSend,
		}},
		{RoleVendor, []string{
			PermToursView, PermEventsView, PermFinancesView,
			PermCommunicationsView, PermCommunicationsSend,
		}},
		{RoleVenueCoordinator, []string{
			PermToursView, PermEventsView, PermEventsEdit, PermEventsManageLogistics,
			PermCommunicationsView, PermCommunicationsSend,
		}},
		{RoleFinancialManager, []string{
			PermToursView, PermEventsView,
			PermFinancesView, PermFinancesEdit, PermFinancesApprove, PermFinancesReports,
			PermAnalyticsView, PermAnalyticsExport,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			set, err := RolePermissions(tc.role)
			require.NoError(t, err)
			want := append([]string(nil), tc.want...)
			sort.Strings(want)
			assert.Equal(t, want, set.Names())
		})
	}
}

func TestRolePermissionsReturnsCopy(t *testing.T) {
	first, err := RolePermissions(RoleArtist)
	require.NoError(t, err)
	delete(first, PermToursView)

	second, err := RolePermissions(RoleArtist)
	require.NoError(t, err)
	assert.True(t, second.Has(PermToursView))
}

func TestLookupRole(t *testing.T) {
	role, err := LookupRole(RoleVenueCoordinator)
	require.NoError(t, err)
	assert.Equal(t, "Venue Coordinator", role.DisplayName)
	assert.True(t, role.IsSystem)

	_, err = LookupRole("roadie")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRolesOrderStable(t *testing.T) {
	roles := Roles()
	require.Len(t, roles, 8)
	assert.Equal(t, RoleSuperAdmin, roles[0].Name)
	assert.Equal(t, RoleFinancialManager, roles[len(roles)-1].Name)
}
