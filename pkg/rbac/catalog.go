package rbac

import "strings"

// Permission names.
const (
	PermViewEvents   = "view-events"
	PermCreateEvent  = "create-event"
	PermEditEvent    = "edit-event"
	PermDeleteEvent  = "delete-event"
	PermPublishEvent = "publish-event"

	PermCreateRSVP  = "create-rsvp"
	PermCancelRSVP  = "cancel-rsvp"
	PermViewRSVPs   = "view-rsvps"
	PermManageRSVPs = "manage-rsvps"

	PermViewUsers   = "view-users"
	PermEditUser    = "edit-user"
	PermDeleteUser  = "delete-user"
	PermAssignRoles = "assign-roles"

	PermViewSpeakers  = "view-speakers"
	PermCreateSpeaker = "create-speaker"
	PermEditSpeaker   = "edit-speaker"
	PermDeleteSpeaker = "delete-speaker"

	PermViewSessions  = "view-sessions"
	PermCreateSession = "create-session"
	PermEditSession   = "edit-session"
	PermDeleteSession = "delete-session"

	PermViewSponsors  = "view-sponsors"
	PermCreateSponsor = "create-sponsor"
	PermEditSponsor   = "edit-sponsor"
	PermDeleteSponsor = "delete-sponsor"

	PermAccessAdmin    = "access-admin"
	PermViewAnalytics  = "view-analytics"
	PermManageSettings = "manage-settings"
)

// Built-in role names.
const (
	RoleSuperadmin = "superadmin"
	RoleOrganizer  = "organizer"
	RoleMember     = "member"
	RoleViewer     = "viewer"
)

// PermissionDefinition is a catalog entry provisioned into the permissions
// table.
type PermissionDefinition struct {
	Name        string
	Description string
}

// RoleDefinition is a built-in role and the permissions it is synced to.
type RoleDefinition struct {
	Name        string
	Description string
	Permissions []string
}

var catalog = []PermissionDefinition{
	{PermViewEvents, "View events"},
	{PermCreateEvent, "Create new events"},
	{PermEditEvent, "Edit existing events"},
	{PermDeleteEvent, "Delete events"},
	{PermPublishEvent, "Publish or unpublish events"},

	{PermCreateRSVP, "RSVP to events"},
	{PermCancelRSVP, "Cancel own RSVPs"},
	{PermViewRSVPs, "View RSVP lists"},
	{PermManageRSVPs, "Manage all RSVPs"},

	{PermViewUsers, "View user list"},
	{PermEditUser, "Edit user profiles"},
	{PermDeleteUser, "Delete users"},
	{PermAssignRoles, "Assign roles to users"},

	{PermViewSpeakers, "View speakers"},
	{PermCreateSpeaker, "Create speakers"},
	{PermEditSpeaker, "Edit speakers"},
	{PermDeleteSpeaker, "Delete speakers"},

	{PermViewSessions, "View sessions"},
	{PermCreateSession, "Create sessions"},
	{PermEditSession, "Edit sessions"},
	{PermDeleteSession, "Delete sessions"},

	{PermViewSponsors, "View sponsors"},
	{PermCreateSponsor, "Create sponsors"},
	{PermEditSponsor, "Edit sponsors"},
	{PermDeleteSponsor, "Delete sponsors"},

	{PermAccessAdmin, "Access admin dashboard"},
	{PermViewAnalytics, "View analytics"},
	{PermManageSettings, "Manage site settings"},
}

// Catalog returns the permission catalog.
func Catalog() []PermissionDefinition {
	out := make([]PermissionDefinition, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogNames returns the names of every catalog permission.
func CatalogNames() []string {
	names := make([]string, len(catalog))
	for i, p := range catalog {
		names[i] = p.Name
	}
	return names
}

// BuiltInRoles returns the built-in roles with their permission sets.
func BuiltInRoles() []RoleDefinition {
	return []RoleDefinition{
		{
			Name:        RoleSuperadmin,
			Description: "Full access to everything",
			Permissions: CatalogNames(),
		},
		{
			Name:        RoleOrganizer,
			Description: "Manage events, speakers, sessions and sponsors",
			Permissions: []string{
				PermViewEvents, PermCreateEvent, PermEditEvent, PermPublishEvent,
				PermCreateRSVP, PermCancelRSVP, PermViewRSVPs, PermManageRSVPs,
				PermViewUsers, PermEditUser,
				PermViewSpeakers, PermCreateSpeaker, PermEditSpeaker,
				PermViewSessions, PermCreateSession, PermEditSession,
				PermViewSponsors, PermCreateSponsor, PermEditSponsor,
				PermAccessAdmin, PermViewAnalytics,
			},
		},
		{
			Name:        RoleMember,
			Description: "Regular community member",
			Permissions: []string{
				PermViewEvents, PermCreateRSVP, PermCancelRSVP,
				PermViewSpeakers, PermViewSessions, PermViewSponsors,
			},
		},
		{
			Name:        RoleViewer,
			Description: "Read-only access",
			Permissions: []string{
				PermViewEvents, PermViewSpeakers, PermViewSessions, PermViewSponsors,
			},
		},
	}
}

var legacyRoles = map[string]string{
	"superadmin":       RoleSuperadmin,
	"admin":            RoleSuperadmin,
	"organizer":        RoleOrganizer,
	"speaker":          RoleMember,
	"member":           RoleMember,
	"community_member": RoleMember,
	"viewer":           RoleViewer,
}

// LegacyRoleFor maps a value of the legacy single-role users column to a
// built-in role. Unknown and empty values map to member.
func LegacyRoleFor(legacy string) string {
	if role, ok := legacyRoles[strings.ToLower(strings.TrimSpace(legacy))]; ok {
		return role
	}
	return RoleMember
}

// IsLegacyRoleMapped reports whether legacy has an explicit mapping.
func IsLegacyRoleMapped(legacy string) bool {
	_, ok := legacyRoles[strings.ToLower(strings.TrimSpace(legacy))]
	return ok
}
