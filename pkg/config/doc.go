// Package config loads application configuration from environment variables.
//
// Database:
//
//	FRONTENDMU_DB_DRIVER="postgres"        # postgres or sqlite3
//	FRONTENDMU_DATABASE_URL="postgres://localhost/frontendmu?sslmode=disable"
//	FRONTENDMU_DB_MAX_CONNS=20
//
// Redis (sessions and promotion notifications, optional):
//
//	FRONTENDMU_REDIS_URL="redis://localhost:6379/0"
//	FRONTENDMU_SESSION_PREFIX="session:"
//	FRONTENDMU_PROMOTION_CHANNEL="rsvp:promotions"
//
// Feature flags:
//
//	FEATURE_RSVP_PAST_EVENTS=false
//	FRONTENDMU_FEATURE_FLAGS_FILE="/etc/frontendmu/flags.yaml"
//
// Worker:
//
//	FRONTENDMU_WORKER_ADDR=":9090"
//	FRONTENDMU_RECONCILE_SCHEDULE="*/5 * * * *"
//	FRONTENDMU_VERIFY_SCHEDULE="0 * * * *"
//
// Observability:
//
//	FRONTENDMU_LOG_LEVEL="info"
//	FRONTENDMU_OTEL_ENABLED=false
//	FRONTENDMU_OTEL_ENDPOINT="localhost:4317"
package config
