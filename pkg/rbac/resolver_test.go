package rbac

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// fakeSource serves fixed grants and counts loads.
type fakeSource struct {
	mu          sync.Mutex
	roles       map[uuid.UUID][]string
	permissions map[uuid.UUID][]string
	err         error
	roleLoads   atomic.Int32
	permLoads   atomic.Int32
	// gate, when set, blocks loads until closed. Loads read their
	// answer before blocking.
	gate chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		roles:       make(map[uuid.UUID][]string),
		permissions: make(map[uuid.UUID][]string),
	}
}

func (f *fakeSource) set(id uuid.UUID, roles, permissions []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[id] = roles
	f.permissions[id] = permissions
}

func (f *fakeSource) RoleNamesForUser(ctx context.Context, id uuid.UUID) ([]string, error) {
	f.mu.Lock()
	roles, err := f.roles[id], f.err
	f.mu.Unlock()

	f.roleLoads.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return roles, err
}

func (f *fakeSource) PermissionNamesForUser(ctx context.Context, id uuid.UUID) ([]string, error) {
	f.mu.Lock()
	permissions, err := f.permissions[id], f.err
	f.mu.Unlock()

	f.permLoads.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return permissions, err
}

func principal() *auth.Principal {
	return &auth.Principal{ID: uuid.New(), Email: "p@example.com"}
}

func TestResolver_NoAssignments(t *testing.T) {
	source := newFakeSource()
	r := NewResolver(source, 16)
	ctx := context.Background()
	p := principal()

	roles, err := r.LoadRoles(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, roles)

	perms, err := r.GetAllPermissions(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, perms)

	ok, err := r.Can(ctx, p, PermViewEvents)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Cannot(ctx, p, PermViewEvents)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolver_Anonymous(t *testing.T) {
	source := newFakeSource()
	r := NewResolver(source, 16)
	ctx := context.Background()

	ok, err := r.Can(ctx, nil, PermViewEvents)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.HasAllRoles(ctx, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	roles, err := r.LoadRoles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, roles)

	assert.Zero(t, source.roleLoads.Load(), "anonymous principals never reach the store")
}

func TestResolver_CachesUntilInvalidated(t *testing.T) {
	source := newFakeSource()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	r := NewResolver(source, 16, WithMetrics(metrics))
	ctx := context.Background()
	p := principal()

	source.set(p.ID, []string{RoleMember}, []string{PermCreateRSVP})

	for i := 0; i < 3; i++ {
		ok, err := r.Can(ctx, p, PermCreateRSVP)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int32(1), source.roleLoads.Load())
	assert.Equal(t, int32(1), source.permLoads.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RBACCacheMissesTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RBACCacheHitsTotal))

	// The store changes; the cached answer stands until invalidation.
	source.set(p.ID, []string{RoleViewer}, []string{PermViewEvents})
	ok, err := r.Can(ctx, p, PermCreateRSVP)
	require.NoError(t, err)
	assert.True(t, ok)

	r.Invalidate(p.ID)
	ok, err = r.Can(ctx, p, PermCreateRSVP)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.HasRole(ctx, p, RoleViewer)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(2), source.roleLoads.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RBACInvalidations))
}

func TestResolver_InvalidateAll(t *testing.T) {
	source := newFakeSource()
	r := NewResolver(source, 16)
	ctx := context.Background()
	a, b := principal(), principal()

	source.set(a.ID, nil, []string{PermViewEvents})
	source.set(b.ID, nil, []string{PermViewEvents})
	_, err := r.Can(ctx, a, PermViewEvents)
	require.NoError(t, err)
	_, err = r.Can(ctx, b, PermViewEvents)
	require.NoError(t, err)

	source.set(a.ID, nil, nil)
	source.set(b.ID, nil, nil)
	r.InvalidateAll()

	for _, p := range []*auth.Principal{a, b} {
		ok, err := r.Can(ctx, p, PermViewEvents)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestResolver_OrganizerScenario(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	seedTestCatalog(t, store)
	ctx := context.Background()

	userID := createTestUser(t, db, "organizer@example.com", "")
	assignTestRole(t, store, userID, RoleOrganizer)
	p := &auth.Principal{ID: userID}

	r := NewResolver(store, 16)

	ok, err := r.HasRole(ctx, p, RoleOrganizer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasAnyRole(ctx, p, RoleSuperadmin, RoleOrganizer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasAllRoles(ctx, p, RoleSuperadmin, RoleOrganizer)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Can(ctx, p, PermEditEvent)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Can(ctx, p, PermDeleteEvent)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.CanAny(ctx, p, PermDeleteEvent, PermPublishEvent)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.CanAll(ctx, p, PermDeleteEvent, PermPublishEvent)
	require.NoError(t, err)
	assert.False(t, ok)

	perms, err := r.GetAllPermissions(ctx, p)
	require.NoError(t, err)
	assert.Len(t, perms, 21)
}

func TestResolver_EmptyLists(t *testing.T) {
	source := newFakeSource()
	r := NewResolver(source, 16)
	ctx := context.Background()
	p := principal()
	source.set(p.ID, []string{RoleMember}, []string{PermViewEvents})

	ok, err := r.HasAnyRole(ctx, p)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.CanAny(ctx, p)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.CanAll(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolver_StoreFailureNotCached(t *testing.T) {
	source := newFakeSource()
	r := NewResolver(source, 16)
	ctx := context.Background()
	p := principal()
	source.set(p.ID, nil, []string{PermViewEvents})

	source.mu.Lock()
	source.err = errors.New("connection refused")
	source.mu.Unlock()
	_, err := r.Can(ctx, p, PermViewEvents)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorContains(t, err, "connection refused")

	source.mu.Lock()
	source.err = nil
	source.mu.Unlock()
	ok, err := r.Can(ctx, p, PermViewEvents)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolver_ReturnsCopies(t *testing.T) {
	source := newFakeSource()
	r := NewResolver(source, 16)
	ctx := context.Background()
	p := principal()
	source.set(p.ID, []string{RoleMember}, []string{PermViewEvents})

	perms, err := r.LoadPermissions(ctx, p)
	require.NoError(t, err)
	perms[PermDeleteEvent] = struct{}{}

	ok, err := r.Can(ctx, p, PermDeleteEvent)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_ConcurrentFirstLoad(t *testing.T) {
	source := newFakeSource()
	source.gate = make(chan struct{})
	r := NewResolver(source, 16)
	ctx := context.Background()
	p := principal()
	source.set(p.ID, nil, []string{PermViewEvents})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.Can(ctx, p, PermViewEvents)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}

	// Let the callers pile up behind the single in-flight load.
	for source.roleLoads.Load() == 0 {
		runtimeGosched()
	}
	close(source.gate)
	wg.Wait()

	assert.LessOrEqual(t, source.roleLoads.Load(), int32(8))
	ok, err := r.Can(ctx, p, PermViewEvents)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolver_InvalidateDuringLoad(t *testing.T) {
	source := newFakeSource()
	source.gate = make(chan struct{})
	r := NewResolver(source, 16)
	ctx := context.Background()
	p := principal()
	source.set(p.ID, nil, []string{PermManageRSVPs})

	done := make(chan struct{})
	go func() {
		defer close(done)
		ok, err := r.Can(ctx, p, PermManageRSVPs)
		assert.NoError(t, err)
		assert.True(t, ok)
	}()

	for source.roleLoads.Load() == 0 || source.permLoads.Load() == 0 {
		runtimeGosched()
	}
	// Revoke while the load is in flight.
	source.set(p.ID, nil, nil)
	r.Invalidate(p.ID)
	close(source.gate)
	<-done

	source.gate = nil
	ok, err := r.Can(ctx, p, PermManageRSVPs)
	require.NoError(t, err)
	assert.False(t, ok, "the stale in-flight load must not be cached")
}
