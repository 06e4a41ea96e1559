// Command fieldops runs the field operations API: approval workflows,
// liquidation reporting, and the role hierarchy endpoint, with health and
// metrics served on a separate listener so probes bypass auth.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/agroline/fieldops/pkg/api"
	"github.com/agroline/fieldops/pkg/approval"
	"github.com/agroline/fieldops/pkg/audit"
	"github.com/agroline/fieldops/pkg/auth"
	"github.com/agroline/fieldops/pkg/cache"
	"github.com/agroline/fieldops/pkg/config"
	"github.com/agroline/fieldops/pkg/liquidation"
	"github.com/agroline/fieldops/pkg/middleware"
	"github.com/agroline/fieldops/pkg/observability"
	"github.com/agroline/fieldops/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("Configuration load failed")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("OpenTelemetry init failed")
		os.Exit(1)
	}

	db, err := storage.OpenPostgres(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Error("Database connection failed")
		os.Exit(1)
	}
	defer db.Close()

	auditLog := audit.NewDBLogger(db)
	approvalStore := approval.NewStore(db)
	liquidationStore := liquidation.NewStore(db)
	authStore := auth.NewStore(db)

	for name, ensure := range map[string]func(context.Context) error{
		"approval":    approvalStore.EnsureSchema,
		"liquidation": liquidationStore.EnsureSchema,
		"auth":        authStore.EnsureSchema,
		"audit":       auditLog.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			logger.WithError(err).Errorf("Ensuring %s schema failed", name)
			os.Exit(1)
		}
	}

	var listCache *storage.RedisCache
	if cfg.Redis.URL != "" {
		listCache, err = storage.NewRedisCache(cfg.Redis)
		if err != nil {
			// Redis is a cache; start degraded rather than refuse to boot.
			logger.WithError(err).Warn("Redis unavailable, approval lists will not be shared across instances")
			listCache = nil
		} else {
			defer listCache.Close()
		}
	}

	templates := approval.DefaultTemplates()
	var stopWatch func()
	if cfg.Approvals.ChainTemplatePath != "" {
		templates, err = approval.LoadTemplates(cfg.Approvals.ChainTemplatePath)
		if err != nil {
			logger.WithError(err).Error("Loading chain templates failed")
			os.Exit(1)
		}
		if cfg.Approvals.WatchTemplates {
			watchLog := logrus.New()
			watchLog.SetFormatter(&logrus.JSONFormatter{})
			stopWatch, err = templates.Watch(cfg.Approvals.ChainTemplatePath, watchLog)
			if err != nil {
				logger.WithError(err).Warn("Template watch failed, continuing without hot reload")
			}
		}
	}

	approvals := approval.NewService(approvalStore, templates, auditLog, cache.New())
	approvals.SetCacheTTL(cfg.Approvals.CacheTTL)
	liq := liquidation.NewService(liquidationStore)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	serverOpts := []api.ServerOption{
		api.WithMetrics(metrics),
		api.WithRollups(liquidation.NewAggregator(db, logger)),
		api.WithUserDirectory(authStore),
	}
	if listCache != nil {
		serverOpts = append(serverOpts, api.WithListCache(listCache))
	}
	apiServer := api.NewServer(approvals, liq, logger, serverOpts...)

	authMW := middleware.NewAuthMiddleware(authStore, auditLog, false)
	var handler http.Handler = apiServer
	handler = authMW.Handler(handler)
	handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	handler = middleware.RequestID(handler)
	handler = otelhttp.NewHandler(handler, "fieldops-api")

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := buildHealthServer(cfg, db, listCache, registry)

	go pollDBStats(ctx, db, metrics)

	var group errgroup.Group
	group.Go(func() error {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(healthServer.Shutdown)
	if stopWatch != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			stopWatch()
			return nil
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return auditLog.Close()
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func buildHealthServer(cfg *config.Config, db *sql.DB, listCache *storage.RedisCache, registry *prometheus.Registry) *http.Server {
	var redisClient *redis.Client
	if listCache != nil {
		redisClient = listCache.Client()
	}
	checker := observability.NewHealthChecker(db, redisClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
	if cfg.Observability.MetricsEnabled {
		mux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	return &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: mux,
	}
}

// pollDBStats mirrors the connection pool state into gauges.
func pollDBStats(ctx context.Context, db *sql.DB, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.ObserveDBStats(db.Stats())
		}
	}
}
