package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the authorization core.
type Metrics struct {
	// Ability layer
	AuthzDecisionsTotal *prometheus.CounterVec

	// RBAC resolver
	RBACCacheHitsTotal   prometheus.Counter
	RBACCacheMissesTotal prometheus.Counter
	RBACInvalidations    prometheus.Counter
	RBACStoreDuration    *prometheus.HistogramVec
	RBACStoreErrorsTotal *prometheus.CounterVec
	RBACRoleSyncsTotal   *prometheus.CounterVec

	// RSVP state machine
	RSVPTransitionsTotal  *prometheus.CounterVec
	RSVPPromotionsTotal   prometheus.Counter
	RSVPReconcileDuration prometheus.Histogram

	// Database pool
	DBConnectionsOpen prometheus.Gauge
	DBConnectionsIdle prometheus.Gauge
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontendmu_authz_decisions_total",
				Help: "Ability decisions by resource, ability, outcome and denial reason",
			},
			[]string{"resource", "ability", "outcome", "reason"},
		),

		RBACCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontendmu_rbac_cache_hits_total",
			Help: "Resolver lookups answered from the principal side-table",
		}),
		RBACCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontendmu_rbac_cache_misses_total",
			Help: "Resolver lookups that loaded roles and permissions from the store",
		}),
		RBACInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontendmu_rbac_cache_invalidations_total",
			Help: "Explicit principal cache invalidations",
		}),
		RBACStoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "frontendmu_rbac_store_duration_seconds",
				Help:    "Duration of role and permission store queries",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query"},
		),
		RBACStoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontendmu_rbac_store_errors_total",
				Help: "Failed role and permission store queries",
			},
			[]string{"query"},
		),
		RBACRoleSyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontendmu_rbac_role_syncs_total",
				Help: "Role assignment and role permission syncs",
			},
			[]string{"kind", "status"},
		),

		RSVPTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontendmu_rsvp_transitions_total",
				Help: "RSVP transitions by operation and resulting status or error kind",
			},
			[]string{"operation", "result"},
		),
		RSVPPromotionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frontendmu_rsvp_waitlist_promotions_total",
			Help: "Waitlisted RSVPs promoted to confirmed",
		}),
		RSVPReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "frontendmu_rsvp_reconcile_duration_seconds",
			Help:    "Duration of waitlist reconciliation runs",
			Buckets: prometheus.DefBuckets,
		}),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "frontendmu_db_connections_open",
			Help: "Open database connections",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "frontendmu_db_connections_idle",
			Help: "Idle database connections",
		}),
	}

	registry.MustRegister(
		m.AuthzDecisionsTotal,
		m.RBACCacheHitsTotal,
		m.RBACCacheMissesTotal,
		m.RBACInvalidations,
		m.RBACStoreDuration,
		m.RBACStoreErrorsTotal,
		m.RBACRoleSyncsTotal,
		m.RSVPTransitionsTotal,
		m.RSVPPromotionsTotal,
		m.RSVPReconcileDuration,
		m.DBConnectionsOpen,
		m.DBConnectionsIdle,
	)

	return m
}

// ObserveStore records one store query. Safe on a nil receiver so packages
// can run without metrics.
func (m *Metrics) ObserveStore(query string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.RBACStoreDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	if err != nil {
		m.RBACStoreErrorsTotal.WithLabelValues(query).Inc()
	}
}

// CacheHit records a resolver side-table hit.
func (m *Metrics) CacheHit() {
	if m != nil {
		m.RBACCacheHitsTotal.Inc()
	}
}

// CacheMiss records a resolver side-table miss.
func (m *Metrics) CacheMiss() {
	if m != nil {
		m.RBACCacheMissesTotal.Inc()
	}
}

// Invalidation records an explicit cache invalidation.
func (m *Metrics) Invalidation() {
	if m != nil {
		m.RBACInvalidations.Inc()
	}
}

// Decision records an ability decision; reason is empty for allowed outcomes.
func (m *Metrics) Decision(resource, ability string, allowed bool, reason string) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.AuthzDecisionsTotal.WithLabelValues(resource, ability, outcome, reason).Inc()
}

// RoleSync records a role sync attempt.
func (m *Metrics) RoleSync(kind string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.RBACRoleSyncsTotal.WithLabelValues(kind, status).Inc()
}

// Transition records an RSVP transition outcome.
func (m *Metrics) Transition(operation, result string) {
	if m != nil {
		m.RSVPTransitionsTotal.WithLabelValues(operation, result).Inc()
	}
}

// Promotion records a waitlist promotion.
func (m *Metrics) Promotion() {
	if m != nil {
		m.RSVPPromotionsTotal.Inc()
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
