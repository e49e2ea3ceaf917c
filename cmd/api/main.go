package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/campuscare/triage-service/internal/api/http"
	"github.com/campuscare/triage-service/internal/api/http/handlers"
	"github.com/campuscare/triage-service/internal/assignment"
	"github.com/campuscare/triage-service/internal/auth"
	"github.com/campuscare/triage-service/internal/config"
	"github.com/campuscare/triage-service/internal/events"
	"github.com/campuscare/triage-service/internal/observability"
	"github.com/campuscare/triage-service/internal/persistence"
	"github.com/campuscare/triage-service/internal/repository"
	"github.com/campuscare/triage-service/internal/service"
	"github.com/campuscare/triage-service/internal/storage"
	"github.com/campuscare/triage-service/internal/triage"
	"github.com/campuscare/triage-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	gateway := buildGateway(ctx, cfg.Storage, logger)

	pool := pg.PoolHandle()
	store := repository.NewStore(pool)
	categories := repository.NewCachedCategoryRepository(
		repository.NewCategoryRepository(pool), redis.Client, cfg.Triage.CategoryCacheTTL())

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	sink := service.NewRedisIntentSink(redis.Client, cfg.Notification.IntentQueueKey)
	notifications := service.NewNotificationService(sink, store.Staff, logger)
	worker.StartNotificationWorker(dispatcher, notifications)

	orchestrator := service.NewOrchestrator(service.OrchestratorDependencies{
		Tx:             persistence.NewPgxTxRunner(pool),
		Reads:          store,
		Categories:     categories,
		Gateway:        gateway,
		Detector:       triage.NewCrisisDetector(cfg.Triage.CrisisKeywords),
		Engine:         assignment.NewEngine(cfg.Triage.DefaultAssigneeRole, logger),
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		CrisisCategory: cfg.Triage.CrisisCategorySlug,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, 60)
	authMiddleware := auth.NewMiddleware(tokens)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(cfg.Storage.MaxUploadBytes) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	ticketsHandler := handlers.NewTicketsHandler(orchestrator, handlers.UploadPolicy{
		MaxBytes:          cfg.Storage.MaxUploadBytes,
		AllowedMimePrefix: cfg.Storage.AllowedMimePrefix,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Tickets:        ticketsHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildGateway wires the ordered attachment tiers: public bucket first,
// restricted bucket second, local disk last. Unreachable object storage
// degrades to the disk tier instead of failing startup.
func buildGateway(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) *storage.Gateway {
	tiers := make([]storage.Tier, 0, 3)

	client, err := storage.NewMinioClient(cfg)
	if err != nil {
		logger.Warn("object storage unavailable; using local tier only", zap.Error(err))
	} else {
		public := storage.NewMinioTier("minio-public", client, cfg.PublicBucket)
		if err := public.EnsureBucket(ctx, true); err != nil {
			logger.Warn("public bucket unavailable", zap.Error(err))
		} else {
			tiers = append(tiers, public)
		}
		restricted := storage.NewMinioTier("minio-restricted", client, cfg.RestrictedBucket)
		if err := restricted.EnsureBucket(ctx, false); err != nil {
			logger.Warn("restricted bucket unavailable", zap.Error(err))
		} else {
			tiers = append(tiers, restricted)
		}
	}

	tiers = append(tiers, storage.NewLocalTier("local-disk", cfg.LocalDir))
	return storage.NewGateway(logger, tiers...)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
