package ability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/frontendmu/frontend.mu/pkg/auth"
)

// Resource names a resource type.
type Resource string

const (
	ResourceEvent   Resource = "event"
	ResourceSession Resource = "session"
	ResourceSpeaker Resource = "speaker"
	ResourceSponsor Resource = "sponsor"
	ResourceUser    Resource = "user"
	ResourceRSVP    Resource = "rsvp"
)

// Ability names an action on a resource type.
type Ability string

const (
	View        Ability = "view"
	ViewAny     Ability = "viewAny"
	Create      Ability = "create"
	Edit        Ability = "edit"
	Update      Ability = "update"
	Delete      Ability = "delete"
	Publish     Ability = "publish"
	Manage      Ability = "manage"
	AssignRoles Ability = "assignRoles"
	Cancel      Ability = "cancel"
)

// Reason explains a denial.
type Reason string

const (
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonMissingPermission Reason = "missing_permission"
	ReasonEventNotPublished Reason = "event_not_published"
	ReasonRsvpNotAccepting  Reason = "rsvp_not_accepting"
	ReasonEventInPast       Reason = "event_in_past"
	ReasonRsvpClosed        Reason = "rsvp_closed"
	ReasonNotOwner          Reason = "not_owner"
	ReasonSelfAction        Reason = "self_action"
	ReasonUnknownAbility    Reason = "unknown_ability"
	ReasonInvalidResource   Reason = "invalid_resource"
)

var reasonMessages = map[Reason]string{
	ReasonUnauthenticated:   "You must be signed in.",
	ReasonMissingPermission: "You are not authorized to perform this action.",
	ReasonEventNotPublished: "This event is not published.",
	ReasonRsvpNotAccepting:  "This event is not accepting RSVPs.",
	ReasonEventInPast:       "This event has already taken place.",
	ReasonRsvpClosed:        "The RSVP window for this event has closed.",
	ReasonNotOwner:          "You can only manage your own RSVP.",
	ReasonSelfAction:        "You cannot perform this action on your own account.",
	ReasonUnknownAbility:    "Unknown action.",
	ReasonInvalidResource:   "Invalid resource.",
}

// Message is a user-facing explanation of the reason.
func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// Decision is the outcome of an ability check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
	// Permission is the permission that was missing, when Reason is
	// missing_permission.
	Permission string `json:"permission,omitempty"`
}

// Allow grants the ability.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny refuses the ability for reason.
func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// DenyPermission refuses the ability because permission is missing.
func DenyPermission(permission string) Decision {
	return Decision{Reason: ReasonMissingPermission, Permission: permission}
}

func (d Decision) String() string {
	switch {
	case d.Allowed:
		return "allowed"
	case d.Permission != "":
		return fmt.Sprintf("denied: %s (%s)", d.Reason, d.Permission)
	default:
		return fmt.Sprintf("denied: %s", d.Reason)
	}
}

// Checker answers permission questions. *rbac.Resolver implements it.
type Checker interface {
	Can(ctx context.Context, p *auth.Principal, permission string) (bool, error)
}

// Authorizer decides the abilities of one resource type. resource is the
// instance acted on, or nil for abilities that do not need one (viewAny,
// create).
type Authorizer interface {
	Resource() Resource
	Authorize(ctx context.Context, p *auth.Principal, ab Ability, resource any) (Decision, error)
}

// Owned is implemented by resources that belong to a user.
type Owned interface {
	OwnerID() uuid.UUID
}
