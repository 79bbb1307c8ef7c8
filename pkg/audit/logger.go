package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frontendmu/frontend.mu/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// LogAuthorization logs an authorization decision
	LogAuthorization(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, status EventStatus, message string) error

	// LogDataMutation logs a change to a role assignment, role or RSVP
	LogDataMutation(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error

	// LogAdminAction logs an administrative action such as catalog provisioning
	LogAdminAction(ctx context.Context, eventType EventType, adminUserID *uuid.UUID, targetUserID *uuid.UUID, message string) error

	// Close flushes and releases the logger
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextkeys.AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// noOpLogger is a logger that does nothing (used when no logger is configured)
type noOpLogger struct{}

func (l *noOpLogger) Log(ctx context.Context, event *AuditEvent) error {
	return nil
}

func (l *noOpLogger) LogAuthorization(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return nil
}

func (l *noOpLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	return nil
}

func (l *noOpLogger) LogAdminAction(ctx context.Context, eventType EventType, adminUserID *uuid.UUID, targetUserID *uuid.UUID, message string) error {
	return nil
}

func (l *noOpLogger) Close() error {
	return nil
}

// buildBaseEvent creates a base audit event with common fields populated
func buildBaseEvent(ctx context.Context, eventType EventType, status EventStatus) *AuditEvent {
	return &AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: contextkeys.RequestID(ctx),
		Metadata:  make(map[string]interface{}),
	}
}

// LogDenied logs an access denied event through the context logger
func LogDenied(ctx context.Context, userID *uuid.UUID, resourceType ResourceType, resourceID string, reason string) error {
	return FromContext(ctx).LogAuthorization(ctx, EventTypeAuthzAccessDenied, userID, resourceType, resourceID,
		EventStatusDenied, fmt.Sprintf("Access denied: %s", reason))
}

// LogFailure logs a failed event with an error through the context logger
func LogFailure(ctx context.Context, eventType EventType, message string, err error) error {
	event := buildBaseEvent(ctx, eventType, EventStatusFailure)
	event.Message = message
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	return FromContext(ctx).Log(ctx, event)
}

func authorizationEvent(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, status EventStatus, message string) *AuditEvent {
	event := buildBaseEvent(ctx, eventType, status)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message
	return event
}

func mutationEvent(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) *AuditEvent {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	event.UserID = userID
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Changes = changes
	event.Message = message
	return event
}

func adminEvent(ctx context.Context, eventType EventType, adminUserID *uuid.UUID, targetUserID *uuid.UUID, message string) *AuditEvent {
	event := buildBaseEvent(ctx, eventType, EventStatusSuccess)
	event.UserID = adminUserID
	event.Message = message
	if targetUserID != nil {
		event.ResourceType = ResourceTypeUser
		event.ResourceID = targetUserID.String()
		event.Metadata["target_user_id"] = targetUserID.String()
	}
	return event
}
