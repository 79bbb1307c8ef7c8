package ability

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/frontendmu/frontend.mu/pkg/rbac"
)

// Mapping ties one ability to the permission it requires.
type Mapping struct {
	Resource   Resource
	Ability    Ability
	Permission string
	// Condition describes the resource predicates checked in addition to
	// the permission, if any.
	Condition string
}

var mappings = []Mapping{
	{ResourceEvent, View, rbac.PermEditEvent, "only for events that are not published; published events are public"},
	{ResourceEvent, ViewAny, rbac.PermAccessAdmin, ""},
	{ResourceEvent, Create, rbac.PermCreateEvent, ""},
	{ResourceEvent, Edit, rbac.PermEditEvent, ""},
	{ResourceEvent, Update, rbac.PermEditEvent, ""},
	{ResourceEvent, Delete, rbac.PermDeleteEvent, ""},
	{ResourceEvent, Publish, rbac.PermPublishEvent, ""},
	{ResourceEvent, Manage, rbac.PermPublishEvent, ""},

	{ResourceSession, ViewAny, rbac.PermAccessAdmin, ""},
	{ResourceSession, Create, rbac.PermCreateSession, ""},
	{ResourceSession, Edit, rbac.PermEditSession, ""},
	{ResourceSession, Update, rbac.PermEditSession, ""},
	{ResourceSession, Manage, rbac.PermEditSession, ""},
	{ResourceSession, Delete, rbac.PermDeleteSession, ""},

	{ResourceSpeaker, ViewAny, rbac.PermAccessAdmin, ""},
	{ResourceSpeaker, Create, rbac.PermCreateSpeaker, ""},
	{ResourceSpeaker, Edit, rbac.PermEditSpeaker, ""},
	{ResourceSpeaker, Update, rbac.PermEditSpeaker, ""},
	{ResourceSpeaker, Delete, rbac.PermDeleteSpeaker, ""},

	{ResourceSponsor, ViewAny, rbac.PermAccessAdmin, ""},
	{ResourceSponsor, Create, rbac.PermCreateSponsor, ""},
	{ResourceSponsor, Edit, rbac.PermEditSponsor, ""},
	{ResourceSponsor, Update, rbac.PermEditSponsor, ""},
	{ResourceSponsor, Delete, rbac.PermDeleteSponsor, ""},

	{ResourceUser, ViewAny, rbac.PermViewUsers, ""},
	{ResourceUser, Edit, rbac.PermEditUser, ""},
	{ResourceUser, Update, rbac.PermEditUser, ""},
	{ResourceUser, Delete, rbac.PermDeleteUser, "the target must not be the principal"},
	{ResourceUser, AssignRoles, rbac.PermAssignRoles, ""},

	{ResourceRSVP, Create, rbac.PermCreateRSVP, "event accepting RSVPs, not past unless allowed by flag, closing date not passed"},
	{ResourceRSVP, Cancel, rbac.PermCancelRSVP, "the principal must own the RSVP"},
	{ResourceRSVP, ViewAny, rbac.PermViewRSVPs, ""},
	{ResourceRSVP, Manage, rbac.PermManageRSVPs, ""},
}

// Mappings returns a copy of the ability to permission table.
func Mappings() []Mapping {
	out := make([]Mapping, len(mappings))
	copy(out, mappings)
	return out
}

// RequiredPermission returns the permission ability ab requires on res.
func RequiredPermission(res Resource, ab Ability) (string, bool) {
	for _, m := range mappings {
		if m.Resource == res && m.Ability == ab {
			return m.Permission, true
		}
	}
	return "", false
}

func permissionTable(res Resource) map[Ability]string {
	table := make(map[Ability]string)
	for _, m := range mappings {
		if m.Resource == res {
			table[m.Ability] = m.Permission
		}
	}
	return table
}

// MissingPermissionsError lists mapped permissions absent from a catalog.
type MissingPermissionsError struct {
	Missing []string
}

func (e *MissingPermissionsError) Error() string {
	return fmt.Sprintf("abilities reference permissions missing from the catalog: %s", strings.Join(e.Missing, ", "))
}

// CheckCatalog reports every permission referenced by Mappings that is not in
// names.
func CheckCatalog(names []string) error {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}

	seen := make(map[string]bool)
	var missing []string
	for _, m := range mappings {
		if !known[m.Permission] && !seen[m.Permission] {
			seen[m.Permission] = true
			missing = append(missing, m.Permission)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingPermissionsError{Missing: missing}
}

// PermissionLister lists the persisted permission names. *rbac.Store
// implements it.
type PermissionLister interface {
	PermissionNames(ctx context.Context) ([]string, error)
}

// VerifyStore runs CheckCatalog against the persisted permissions.
func VerifyStore(ctx context.Context, lister PermissionLister) error {
	names, err := lister.PermissionNames(ctx)
	if err != nil {
		return fmt.Errorf("failed to list permissions: %w", err)
	}
	return CheckCatalog(names)
}
