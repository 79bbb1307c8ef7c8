package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// LogLogger writes audit events as structured log lines. It backs the
// audit trail when no database logger is configured.
type LogLogger struct {
	logger *observability.Logger
}

// NewLogLogger creates an audit logger over logger.
func NewLogLogger(logger *observability.Logger) *LogLogger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogLogger{logger: logger.WithComponent("audit")}
}

// Log writes the event. Denials and failures are logged at warn level.
func (l *LogLogger) Log(ctx context.Context, event *AuditEvent) error {
	fields := map[string]interface{}{
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	if event.UserID != nil {
		fields["actor_id"] = event.UserID.String()
	}
	if event.ResourceType != "" {
		fields["resource_type"] = string(event.ResourceType)
		fields["resource_id"] = event.ResourceID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}
	if event.Changes != nil {
		fields["changes_before"] = event.Changes.Before
		fields["changes_after"] = event.Changes.After
	}

	log := l.logger.WithFields(fields)
	if event.Status == EventStatusSuccess {
		log.Info(event.Message)
	} else {
		log.Warn(event.Message)
	}
	return nil
}

// LogAuthorization logs an authorization event
func (l *LogLogger) LogAuthorization(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return l.Log(ctx, authorizationEvent(ctx, eventType, userID, resourceType, resourceID, status, message))
}

// LogDataMutation logs a data mutation event
func (l *LogLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	return l.Log(ctx, mutationEvent(ctx, eventType, userID, resourceType, resourceID, changes, message))
}

// LogAdminAction logs an admin action event
func (l *LogLogger) LogAdminAction(ctx context.Context, eventType EventType, adminUserID *uuid.UUID, targetUserID *uuid.UUID, message string) error {
	return l.Log(ctx, adminEvent(ctx, eventType, adminUserID, targetUserID, message))
}

// Close is a no-op.
func (l *LogLogger) Close() error {
	return nil
}
