// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing and health probes for the authorization core.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithComponent("rsvp").WithField("event_id", id).Info("RSVP created")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.Decision("event", "edit", false, "missing_permission")
//
// All Metrics helpers accept a nil receiver, so packages may be constructed
// without metrics.
//
// # Tracing
//
//	ctx, span := observability.StartSpan(ctx, "rbac.load")
//	defer func() { observability.EndSpan(span, err) }()
//
// # Health
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(router, checker)
package observability
