package rbac

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// DefaultCacheSize bounds the resolver side-table when no size is given.
const DefaultCacheSize = 1024

// Source loads a principal's role and permission names. *Store implements it.
type Source interface {
	RoleNamesForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	PermissionNamesForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Invalidator drops cached grants. Every code path that mutates role
// assignments or role permissions calls it before returning.
type Invalidator interface {
	Invalidate(userID uuid.UUID)
	InvalidateAll()
}

type grants struct {
	roles       Set
	permissions Set
}

// Resolver answers role and permission questions about a principal. The
// first question about a principal loads both sets from the Source; later
// questions are answered from the side-table until Invalidate is called.
//
// A nil principal is anonymous: it has no roles and no permissions, and the
// Source is never consulted for it.
type Resolver struct {
	source  Source
	cache   *lru.Cache[uuid.UUID, *grants]
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *observability.Logger

	mu         sync.Mutex
	generation uint64
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMetrics records cache hits, misses and store timings.
func WithMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the resolver logger.
func WithLogger(l *observability.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver over source holding at most cacheSize
// principals.
func NewResolver(source Source, cacheSize int, opts ...ResolverOption) *Resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[uuid.UUID, *grants](cacheSize)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}

	r := &Resolver{
		source: source,
		cache:  cache,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadRoles returns the names of the principal's roles.
func (r *Resolver) LoadRoles(ctx context.Context, p *auth.Principal) (Set, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return g.roles.clone(), nil
}

// LoadPermissions returns the union of the permissions of the principal's
// roles.
func (r *Resolver) LoadPermissions(ctx context.Context, p *auth.Principal) (Set, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return g.permissions.clone(), nil
}

// HasRole reports whether the principal holds the named role.
func (r *Resolver) HasRole(ctx context.Context, p *auth.Principal, role string) (bool, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return false, err
	}
	return g.roles.Has(role), nil
}

// HasAnyRole reports whether the principal holds at least one of roles.
// It is false for an empty list.
func (r *Resolver) HasAnyRole(ctx context.Context, p *auth.Principal, roles ...string) (bool, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return false, err
	}
	return anyIn(g.roles, roles), nil
}

// HasAllRoles reports whether the principal holds every one of roles.
// It is true for an empty list.
func (r *Resolver) HasAllRoles(ctx context.Context, p *auth.Principal, roles ...string) (bool, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return false, err
	}
	return allIn(g.roles, roles), nil
}

// Can reports whether any of the principal's roles grants permission.
func (r *Resolver) Can(ctx context.Context, p *auth.Principal, permission string) (bool, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return false, err
	}
	return g.permissions.Has(permission), nil
}

// Cannot is the negation of Can.
func (r *Resolver) Cannot(ctx context.Context, p *auth.Principal, permission string) (bool, error) {
	ok, err := r.Can(ctx, p, permission)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// CanAny reports whether the principal has at least one of permissions.
// It is false for an empty list.
func (r *Resolver) CanAny(ctx context.Context, p *auth.Principal, permissions ...string) (bool, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return false, err
	}
	return anyIn(g.permissions, permissions), nil
}

// CanAll reports whether the principal has every one of permissions.
// It is true for an empty list.
func (r *Resolver) CanAll(ctx context.Context, p *auth.Principal, permissions ...string) (bool, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return false, err
	}
	return allIn(g.permissions, permissions), nil
}

// GetAllPermissions returns the principal's permission names, sorted.
func (r *Resolver) GetAllPermissions(ctx context.Context, p *auth.Principal) ([]string, error) {
	g, err := r.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return g.permissions.Sorted(), nil
}

// Invalidate drops the cached grants of one user. A load that was already in
// flight when Invalidate ran does not repopulate the side-table.
func (r *Resolver) Invalidate(userID uuid.UUID) {
	r.mu.Lock()
	r.generation++
	r.cache.Remove(userID)
	r.mu.Unlock()
	r.group.Forget(userID.String())
	r.metrics.Invalidation()
}

// InvalidateAll drops every cached principal. Used after a role's permission
// set changes, since every holder of the role is affected.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.generation++
	keys := r.cache.Keys()
	r.cache.Purge()
	r.mu.Unlock()
	for _, k := range keys {
		r.group.Forget(k.String())
	}
	r.metrics.Invalidation()
}

var anonymous = &grants{roles: Set{}, permissions: Set{}}

func (r *Resolver) load(ctx context.Context, p *auth.Principal) (*grants, error) {
	if p.IsAnonymous() {
		return anonymous, nil
	}

	if g, ok := r.cache.Get(p.ID); ok {
		r.metrics.CacheHit()
		return g, nil
	}
	r.metrics.CacheMiss()

	v, err, _ := r.group.Do(p.ID.String(), func() (interface{}, error) {
		r.mu.Lock()
		gen := r.generation
		r.mu.Unlock()

		g, err := r.fetch(ctx, p.ID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		if r.generation == gen {
			r.cache.Add(p.ID, g)
		}
		r.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*grants), nil
}

func (r *Resolver) fetch(ctx context.Context, userID uuid.UUID) (g *grants, err error) {
	ctx, span := observability.StartSpan(ctx, "rbac.resolve",
		attribute.String("user.id", userID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	var roles, permissions []string
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		start := time.Now()
		var err error
		roles, err = r.source.RoleNamesForUser(egCtx, userID)
		r.metrics.ObserveStore("roles_for_user", start, err)
		return err
	})
	eg.Go(func() error {
		start := time.Now()
		var err error
		permissions, err = r.source.PermissionNamesForUser(egCtx, userID)
		r.metrics.ObserveStore("permissions_for_user", start, err)
		return err
	})
	if err := eg.Wait(); err != nil {
		r.logger.WithError(err).WithField("user_id", userID.String()).Warn("Failed to resolve grants")
		return nil, fmt.Errorf("%w: resolving grants for %s: %w", ErrStoreUnavailable, userID, err)
	}

	return &grants{roles: NewSet(roles...), permissions: NewSet(permissions...)}, nil
}

func anyIn(s Set, names []string) bool {
	for _, n := range names {
		if s.Has(n) {
			return true
		}
	}
	return false
}

func allIn(s Set, names []string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}
