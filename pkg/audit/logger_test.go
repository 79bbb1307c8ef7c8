package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// recordingLogger captures events in memory.
type recordingLogger struct {
	mu     sync.Mutex
	events []*AuditEvent
	err    error
	closed bool
}

func (r *recordingLogger) Log(ctx context.Context, event *AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingLogger) LogAuthorization(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	return r.Log(ctx, authorizationEvent(ctx, eventType, userID, resourceType, resourceID, status, message))
}

func (r *recordingLogger) LogDataMutation(ctx context.Context, eventType EventType, userID *uuid.UUID, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	return r.Log(ctx, mutationEvent(ctx, eventType, userID, resourceType, resourceID, changes, message))
}

func (r *recordingLogger) LogAdminAction(ctx context.Context, eventType EventType, adminUserID *uuid.UUID, targetUserID *uuid.UUID, message string) error {
	return r.Log(ctx, adminEvent(ctx, eventType, adminUserID, targetUserID, message))
}

func (r *recordingLogger) Close() error {
	r.closed = true
	return nil
}

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestFromContext_DefaultsToNoOp(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.NoError(t, logger.Log(context.Background(), &AuditEvent{}))
	assert.NoError(t, LogDenied(context.Background(), nil, ResourceTypeEvent, "e", "missing_permission"))
}

func TestLogDenied(t *testing.T) {
	rec := &recordingLogger{}
	ctx := WithLogger(context.Background(), rec)
	userID := uuid.New()

	require.NoError(t, LogDenied(ctx, &userID, ResourceTypeRSVP, "rsvp-1", "not_owner"))
	require.Len(t, rec.events, 1)

	e := rec.events[0]
	assert.Equal(t, EventTypeAuthzAccessDenied, e.EventType)
	assert.Equal(t, EventStatusDenied, e.Status)
	assert.Equal(t, ResourceTypeRSVP, e.ResourceType)
	assert.Equal(t, "rsvp-1", e.ResourceID)
	assert.Equal(t, "Access denied: not_owner", e.Message)
	assert.Equal(t, &userID, e.UserID)
}

func TestLogFailure(t *testing.T) {
	rec := &recordingLogger{}
	ctx := WithLogger(context.Background(), rec)

	require.NoError(t, LogFailure(ctx, EventTypeAdminCatalogSeed, "Seeding failed", errors.New("boom")))
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventStatusFailure, rec.events[0].Status)
	assert.Equal(t, "boom", rec.events[0].ErrorMessage)
}

func TestLogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogLogger(observability.NewLogger(observability.DebugLevel, &buf))
	userID := uuid.New()

	err := logger.LogAuthorization(context.Background(), EventTypeAuthzAccessDenied, &userID,
		ResourceTypeEvent, "event-1", EventStatusDenied, "Access denied: event_in_past")
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "Access denied: event_in_past", entry["msg"])
	assert.Equal(t, "authz.access_denied", entry["event_type"])
	assert.Equal(t, userID.String(), entry["actor_id"])
	assert.Equal(t, "audit", entry["component"])
	assert.NoError(t, logger.Close())
}

func TestMultiLogger_Sync(t *testing.T) {
	first := &recordingLogger{err: errors.New("first failed")}
	second := &recordingLogger{}
	multi := NewMultiLogger(first, second)
	multi.SetAsync(false)

	err := multi.LogDataMutation(context.Background(), EventTypeRSVPCreate, nil, ResourceTypeRSVP, "r", nil, "created")
	assert.EqualError(t, err, "first failed")
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestMultiLogger_Async(t *testing.T) {
	first := &recordingLogger{err: errors.New("async failure")}
	second := &recordingLogger{}
	multi := NewMultiLogger(first, second)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, multi.LogAdminAction(ctx, EventTypeAdminCatalogSeed, nil, nil, "seeded"))
	cancel()
	multi.Wait()

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
	assert.Len(t, multi.GetErrors(), 1)

	require.NoError(t, multi.Close())
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestMultiLogger_Empty(t *testing.T) {
	multi := NewMultiLogger()
	assert.NoError(t, multi.Log(context.Background(), &AuditEvent{}))
	assert.NoError(t, multi.Close())
}
