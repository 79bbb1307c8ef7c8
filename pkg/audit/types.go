package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authorization events
	EventTypeAuthzAccessDenied    EventType = "authz.access_denied"
	EventTypeAuthzRoleChange      EventType = "authz.role_change"
	EventTypeAuthzPermissionGrant EventType = "authz.permission_grant"

	// RSVP events
	EventTypeRSVPCreate     EventType = "rsvp.create"
	EventTypeRSVPReactivate EventType = "rsvp.reactivate"
	EventTypeRSVPCancel     EventType = "rsvp.cancel"
	EventTypeRSVPPromote    EventType = "rsvp.promote"

	// Admin events
	EventTypeAdminCatalogSeed     EventType = "admin.catalog_seed"
	EventTypeAdminLegacyMigration EventType = "admin.legacy_role_migration"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeEvent      ResourceType = "event"
	ResourceTypeSession    ResourceType = "session"
	ResourceTypeSpeaker    ResourceType = "speaker"
	ResourceTypeSponsor    ResourceType = "sponsor"
	ResourceTypeUser       ResourceType = "user"
	ResourceTypeRSVP       ResourceType = "rsvp"
	ResourceTypeRole       ResourceType = "role"
	ResourceTypePermission ResourceType = "permission"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor; nil for anonymous requests and background jobs.
	UserID *uuid.UUID `json:"user_id,omitempty"`

	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	RequestID string `json:"request_id,omitempty"`

	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`

	Changes *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter represents filters for searching audit logs
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	UserID *uuid.UUID

	EventTypes []EventType
	Status     *EventStatus

	ResourceType ResourceType
	ResourceID   string

	Limit  int
	Offset int
}
