package rbac

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Permission names. The catalog is compiled in; nothing mutates it at runtime.
const (
	PermToursView   = "tours.view"
	PermToursCreate = "tours.create"
	PermToursEdit   = "tours.edit"
	PermToursDelete = "tours.delete"

	PermEventsView            = "events.view"
	PermEventsCreate          = "events.create"
	PermEventsEdit            = "events.edit"
	PermEventsDelete          = "events.delete"
	PermEventsManageLogistics = "events.manage_logistics"

	PermStaffView   = "staff.view"
	PermStaffManage = "staff.manage"

	PermFinancesView    = "finances.view"
	PermFinancesEdit    = "finances.edit"
	PermFinancesApprove = "finances.approve"
	PermFinancesReports = "finances.reports"

	PermLogisticsView      = "logistics.view"
	PermLogisticsEdit      = "logistics.edit"
	PermLogisticsEquipment = "logistics.equipment"

	PermCommunicationsView      = "communications.view"
	PermCommunicationsSend      = "communications.send"
	PermCommunicationsBroadcast = "communications.broadcast"

	PermAnalyticsView   = "analytics.view"
	PermAnalyticsExport = "analytics.export"

	PermAdminUsers  = "admin.users"
	PermAdminRoles  = "admin.roles"
	PermAdminSystem = "admin.system"
)

// System role names.
const (
	RoleSuperAdmin       = "super_admin"
	RoleTourManager      = "tour_manager"
	RoleArtist           = "artist"
	RoleCrewChief        = "crew_chief"
	RoleCrewMember       = "crew_member"
	RoleVendor           = "vendor"
	RoleVenueCoordinator = "venue_coordinator"
	RoleFinancialManager = "financial_manager"
)

var permissionDescriptions = map[string]string{
	PermToursView:   "View tours and their schedules",
	PermToursCreate: "Create new tours",
	PermToursEdit:   "Edit tour details and status",
	PermToursDelete: "Delete tours",

	PermEventsView:            "View tour events",
	PermEventsCreate:          "Create tour events",
	PermEventsEdit:            "Edit tour events",
	PermEventsDelete:          "Delete tour events",
	PermEventsManageLogistics: "Manage logistics for events at a venue",

	PermStaffView:   "View staffing assignments",
	PermStaffManage: "Manage crew staffing",

	PermFinancesView:    "View budgets and settlements",
	PermFinancesEdit:    "Edit financial records",
	PermFinancesApprove: "Approve expenses and settlements",
	PermFinancesReports: "Run financial reports",

	PermLogisticsView:      "View site maps and logistics",
	PermLogisticsEdit:      "Edit site maps and logistics plans",
	PermLogisticsEquipment: "Manage equipment manifests",

	PermCommunicationsView:      "Read tour communications",
	PermCommunicationsSend:      "Send messages within a tour",
	PermCommunicationsBroadcast: "Broadcast announcements",

	PermAnalyticsView:   "View analytics dashboards",
	PermAnalyticsExport: "Export analytics data",

	PermAdminUsers:  "Manage user accounts",
	PermAdminRoles:  "Manage role assignments",
	PermAdminSystem: "Manage platform settings",
}

// catalogOrder fixes the registry ordering for listings.
var catalogOrder = []string{
	PermToursView, PermToursCreate, PermToursEdit, PermToursDelete,
	PermEventsView, PermEventsCreate, PermEventsEdit, PermEventsDelete, PermEventsManageLogistics,
	PermStaffView, PermStaffManage,
	PermFinancesView, PermFinancesEdit, PermFinancesApprove, PermFinancesReports,
	PermLogisticsView, PermLogisticsEdit, PermLogisticsEquipment,
	PermCommunicationsView, PermCommunicationsSend, PermCommunicationsBroadcast,
	PermAnalyticsView, PermAnalyticsExport,
	PermAdminUsers, PermAdminRoles, PermAdminSystem,
}

var roleDescriptions = map[string]string{
	RoleSuperAdmin:       "Full platform access, including administration",
	RoleTourManager:      "Runs tours end to end, excluding platform administration",
	RoleArtist:           "Performing artist with visibility into their tours",
	RoleCrewChief:        "Leads a crew, manages staffing and logistics",
	RoleCrewMember:       "Crew member with read access and messaging",
	RoleVendor:           "External vendor with financial visibility",
	RoleVenueCoordinator: "Coordinates events and logistics at a venue",
	RoleFinancialManager: "Owns finances and analytics across tours",
}

// rolePermissionNames is the authoritative role -> permission binding table.
// super_admin and tour_manager are derived from the registry so the catalog
// stays the single source of truth for "all permissions".
var rolePermissionNames = map[string][]string{
	RoleSuperAdmin:  allPermissionNames(),
	RoleTourManager: permissionNamesExcept(CategoryAdmin),
	RoleArtist: {
		PermToursView, PermEventsView,
		PermCommunicationsView, PermCommunicationsSend,
	},
	RoleCrewChief: {
		PermToursView, PermEventsView,
		PermStaffView, PermStaffManage,
		PermLogisticsView, PermLogisticsEdit, PermLogisticsEquipment,
		PermCommunicationsView, PermCommunicationsSend,
	},
	RoleCrewMember: {
		PermToursView, PermEventsView,
		PermCommunicationsView, PermCommunicationsSend,
	},
	RoleVendor: {
		PermToursView, PermEventsView, PermFinancesView,
		PermCommunicationsView, PermCommunicationsSend,
	},
	RoleVenueCoordinator: {
		PermToursView, PermEventsView, PermEventsEdit, PermEventsManageLogistics,
		PermCommunicationsView, PermCommunicationsSend,
	},
	RoleFinancialManager: {
		PermToursView, PermEventsView,
		PermFinancesView, PermFinancesEdit, PermFinancesApprove, PermFinancesReports,
		PermAnalyticsView, PermAnalyticsExport,
	},
}

var roleOrder = []string{
	RoleSuperAdmin, RoleTourManager, RoleArtist, RoleCrewChief,
	RoleCrewMember, RoleVendor, RoleVenueCoordinator, RoleFinancialManager,
}

var titleCaser = cases.Title(language.English)

// PermissionSet is a lookup set of permission names.
type PermissionSet map[string]struct{}

// Has reports whether the set contains the named permission.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the set contents sorted for stable output.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Permissions returns the full registry in catalog order.
func Permissions() []Permission {
	perms := make([]Permission, 0, len(catalogOrder))
	for _, name := range catalogOrder {
		perms = append(perms, buildPermission(name))
	}
	return perms
}

// LookupPermission fetches a catalog entry by name.
func LookupPermission(name string) (Permission, error) {
	if _, ok := permissionDescriptions[name]; !ok {
		return Permission{}, ErrUnknownPermission
	}
	return buildPermission(name), nil
}

// Roles returns all system roles.
func Roles() []Role {
	roles := make([]Role, 0, len(roleOrder))
	for _, name := range roleOrder {
		roles = append(roles, buildRole(name))
	}
	return roles
}

// LookupRole fetches role metadata by name.
func LookupRole(name string) (Role, error) {
	if !IsSystemRole(name) {
		return Role{}, ErrUnknownRole
	}
	return buildRole(name), nil
}

// RolePermissions returns the exact fixed permission set for a role.
func RolePermissions(role string) (PermissionSet, error) {
	names, ok := rolePermissionNames[role]
	if !ok {
		return nil, ErrUnknownRole
	}
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

// IsSystemRole reports whether the name is a built-in role.
func IsSystemRole(name string) bool {
	_, ok := rolePermissionNames[name]
	return ok
}

func buildPermission(name string) Permission {
	category, _, _ := strings.Cut(name, ".")
	return Permission{
		Name:        name,
		DisplayName: displayName(name),
		Description: permissionDescriptions[name],
		Category:    Category(category),
	}
}

func buildRole(name string) Role {
	return Role{
		Name:        name,
		DisplayName: displayName(name),
		Description: roleDescriptions[name],
		IsSystem:    true,
	}
}

func displayName(key string) string {
	cleaned := strings.NewReplacer("_", " ", ".", " ").Replace(key)
	return titleCaser.String(cleaned)
}

func allPermissionNames() []string {
	names := make([]string, len(catalogOrder))
	copy(names, catalogOrder)
	return names
}

func permissionNamesExcept(category Category) []string {
	prefix := string(category) + "."
	names := make([]string, 0, len(catalogOrder))
	for _, name := range catalogOrder {
		if strings.HasPrefix(name, prefix) {
			continue
		}
		names = append(names, name)
	}
	return names
}
