// Command rsvp-worker keeps waitlists moving and the ability mapping honest.
// On a cron schedule it promotes waitlisted RSVPs into seats freed outside a
// cancellation (raised or removed seat limits) and verifies that every
// permission the ability layer maps to exists. It serves health probes,
// Prometheus metrics and, when sessions are available, organizer endpoints.
// Promotion notifications are delivered off the request path by a worker
// pool, over Redis pub/sub and an optional signed webhook.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/frontendmu/frontend.mu/pkg/ability"
	"github.com/frontendmu/frontend.mu/pkg/async"
	"github.com/frontendmu/frontend.mu/pkg/audit"
	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/config"
	"github.com/frontendmu/frontend.mu/pkg/featureflags"
	"github.com/frontendmu/frontend.mu/pkg/httputil"
	"github.com/frontendmu/frontend.mu/pkg/middleware"
	"github.com/frontendmu/frontend.mu/pkg/observability"
	"github.com/frontendmu/frontend.mu/pkg/rbac"
	"github.com/frontendmu/frontend.mu/pkg/rsvp"
	"github.com/frontendmu/frontend.mu/pkg/storage/postgres"
	"github.com/frontendmu/frontend.mu/pkg/storage/redis"
	"github.com/frontendmu/frontend.mu/pkg/webhooks"
)

func main() {
	runOnce := flag.Bool("run-once", false, "Reconcile upcoming events once and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.InfoLevel, os.Stderr).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).WithComponent("rsvp-worker")
	if err := run(cfg, logger, *runOnce); err != nil {
		logger.WithError(err).Error("rsvp-worker stopped with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger, runOnce bool) error {
	ctx := context.Background()

	otel, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	conn, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		Driver:      cfg.Database.Driver,
		URL:         cfg.Database.URL,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		return err
	}
	db := conn.DB()

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redis.NewClient(redis.Config{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			conn.Close()
			return err
		}
	}

	dbAudit, err := audit.NewDBLogger(ctx, db)
	if err != nil {
		conn.Close()
		return err
	}
	auditLogger := audit.NewMultiLogger(dbAudit, audit.NewLogLogger(logger))
	ctx = audit.WithLogger(ctx, auditLogger)

	var flags featureflags.Provider = featureflags.Static{RsvpPastEvents: cfg.Features.RsvpPastEvents}
	var fileFlags *featureflags.FileProvider
	if cfg.Features.FlagsFile != "" {
		fileFlags, err = featureflags.NewFileProvider(cfg.Features.FlagsFile, flags, logger)
		if err != nil {
			conn.Close()
			return err
		}
		flags = fileFlags
	}

	// The worker only reconciles, which never authorizes, so this gate (and
	// the long-lived resolver and flag file behind it) is not consulted by
	// the scheduled jobs. It is here so the service is complete for
	// Create/Cancel callers; organizer endpoints authorize through a
	// per-request resolver instead.
	rbacStore := rbac.NewStore(db)
	resolver := rbac.NewResolver(rbacStore, cfg.RBAC.CacheSize, rbac.WithMetrics(metrics), rbac.WithLogger(logger))
	gate := ability.NewGate(resolver, flags, ability.WithMetrics(metrics))

	notifyPool := async.NewWorkerPool(context.Background(), async.PoolConfig{
		Name:    "promotion-notifier",
		Workers: cfg.Notifications.Workers,
		Queue:   cfg.Notifications.Queue,
		Timeout: cfg.Notifications.Timeout,
	}, logger)
	notifier := rsvp.NewAsyncNotifier(promotionNotifiers(cfg, redisClient, logger), notifyPool, logger)

	store := rsvp.NewStore(db, conn.SupportsRowLocks())
	service := rsvp.NewService(store, gate,
		rsvp.WithNotifier(notifier),
		rsvp.WithMetrics(metrics),
		rsvp.WithLogger(logger),
	)

	w := &worker{
		service: service,
		rbac:    rbacStore,
		horizon: cfg.Worker.ReconcileHorizon,
		logger:  logger,
	}

	if runOnce {
		defer conn.Close()
		defer auditLogger.Close()
		err := w.reconcile(ctx)
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Notifications.Timeout)
		defer cancel()
		if perr := notifyPool.Shutdown(drainCtx); perr != nil {
			logger.WithError(perr).Warn("Promotion notifications not drained")
		}
		return err
	}

	router := mux.NewRouter()
	router.Use(
		middleware.RequestIDMiddleware(logger),
		traced,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	)
	var healthRedis *goredis.Client
	if redisClient != nil {
		healthRedis = redisClient.Raw()
	}
	observability.RegisterHealthRoutes(router, observability.NewHealthChecker(db, healthRedis))
	router.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)

	if redisClient != nil {
		sessions := middleware.NewSessionMiddleware(
			auth.NewSessionProvider(redisClient, auth.NewUserStore(db), cfg.Redis.SessionPrefix),
			middleware.SessionOptions{},
		)
		permissions := rbac.NewPermissionMiddleware(nil)
		admin := router.PathPrefix("/admin").Subrouter()
		admin.Use(
			sessions.Handler,
			rbac.ResolverMiddleware(rbacStore, rbac.WithMetrics(metrics)),
			withAudit(auditLogger),
		)
		handlers := &adminHandlers{service: service, store: store}
		handlers.register(admin,
			permissions.RequirePermission(rbac.PermViewRSVPs),
			permissions.RequirePermission(rbac.PermManageRSVPs),
		)
	} else {
		logger.Info("Redis not configured, organizer endpoints disabled")
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Worker.ReconcileSchedule, func() {
		if err := w.reconcile(ctx); err != nil {
			logger.WithError(err).Error("Scheduled reconcile failed")
		}
	}); err != nil {
		conn.Close()
		return err
	}
	if _, err := scheduler.AddFunc(cfg.Worker.VerifySchedule, func() {
		if err := w.verify(ctx); err != nil {
			logger.WithError(err).Error("Ability mapping verification failed")
		}
	}); err != nil {
		conn.Close()
		return err
	}
	if _, err := scheduler.AddFunc("@every 30s", func() { conn.RecordStats(metrics) }); err != nil {
		conn.Close()
		return err
	}

	server := &http.Server{
		Addr:              cfg.Worker.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Steps run in reverse registration order.
	shutdown := observability.NewShutdownManager(logger, server, 30*time.Second)
	if otel != nil {
		shutdown.Register("otel", otel.Shutdown)
	}
	shutdown.Register("database", func(context.Context) error { return conn.Close() })
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}
	shutdown.Register("audit", func(context.Context) error { return auditLogger.Close() })
	if fileFlags != nil {
		shutdown.Register("featureflags", func(context.Context) error { return fileFlags.Close() })
	}
	shutdown.Register("notifications", notifyPool.Shutdown)
	shutdown.Register("cron", func(context.Context) error {
		<-scheduler.Stop().Done()
		return nil
	})

	if err := w.verify(ctx); err != nil {
		logger.WithError(err).Warn("Ability mapping references missing permissions; run rbacctl seed")
	}

	scheduler.Start()
	go func() {
		logger.Infof("rsvp-worker listening on %s", cfg.Worker.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
		}
	}()

	return shutdown.WaitForSignal()
}

// worker holds the scheduled jobs.
type worker struct {
	service *rsvp.Service
	rbac    *rbac.Store
	horizon time.Duration
	logger  *observability.Logger
}

func (w *worker) reconcile(ctx context.Context) error {
	now := time.Now().UTC()
	promoted, err := w.service.ReconcileUpcoming(ctx, now, now.Add(w.horizon))
	if promoted > 0 {
		w.logger.Infof("Promoted %d waitlisted RSVPs", promoted)
	}
	return err
}

func (w *worker) verify(ctx context.Context) error {
	return ability.VerifyStore(ctx, w.rbac)
}

// promotionNotifiers builds the delivery chain: Redis pub/sub (or the log
// when Redis is absent), plus the webhook when one is configured.
func promotionNotifiers(cfg *config.Config, redisClient *redis.Client, logger *observability.Logger) rsvp.Notifier {
	var base rsvp.Notifier = rsvp.NewLogNotifier(logger)
	if redisClient != nil {
		base = rsvp.NewRedisNotifier(redisClient, cfg.Redis.PromotionChannel)
	}
	if cfg.Notifications.WebhookURL == "" {
		return base
	}

	sender := webhooks.NewSender(nil, webhooks.NewRetryPolicy(webhooks.RetryConfig{
		MaxAttempts: cfg.Notifications.MaxAttempts,
	}))
	return rsvp.MultiNotifier{
		base,
		rsvp.NewWebhookNotifier(sender, webhooks.Endpoint{
			URL:    cfg.Notifications.WebhookURL,
			Secret: cfg.Notifications.WebhookSecret,
		}),
	}
}

// traced starts a server span per request. Without InitOTel the global
// tracer provider is a no-op.
func traced(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http_request",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func withAudit(logger audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(audit.WithLogger(r.Context(), logger)))
		})
	}
}
