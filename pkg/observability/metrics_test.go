package observability

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	assert.Panics(t, func() { NewMetrics(registry) }, "registering twice must fail")
}

func TestMetrics_Helpers(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.Decision("event", "edit", false, "missing_permission")
	m.Decision("event", "edit", true, "")
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.Invalidation()
	m.Transition("create", "waitlist")
	m.Promotion()
	m.RoleSync("user_roles", errors.New("x"))
	m.ObserveStore("user_roles", time.Now(), errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("event", "edit", "denied", "missing_permission")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("event", "edit", "allowed", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RBACCacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RBACCacheMissesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RBACInvalidations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RSVPTransitionsTotal.WithLabelValues("create", "waitlist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RSVPPromotionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RBACRoleSyncsTotal.WithLabelValues("user_roles", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RBACStoreErrorsTotal.WithLabelValues("user_roles")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Decision("event", "view", true, "")
		m.CacheHit()
		m.CacheMiss()
		m.Invalidation()
		m.Transition("cancel", "cancelled")
		m.Promotion()
		m.RoleSync("role_permissions", nil)
		m.ObserveStore("q", time.Now(), nil)
	})
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.Promotion()

	rec := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "frontendmu_rsvp_waitlist_promotions_total 1"))
}
