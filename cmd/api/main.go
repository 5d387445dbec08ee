package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sngor/bayon-backend/internal/events"
	apphttp "github.com/sngor/bayon-backend/internal/http"
	"github.com/sngor/bayon-backend/internal/http/router"
	"github.com/sngor/bayon-backend/internal/listings"
	"github.com/sngor/bayon-backend/internal/notification"
	"github.com/sngor/bayon-backend/internal/openhouse"
	openhouseservice "github.com/sngor/bayon-backend/internal/openhouse/service"
	"github.com/sngor/bayon-backend/internal/storage"
	"github.com/sngor/bayon-backend/platform/config"
	"github.com/sngor/bayon-backend/platform/db"
	"github.com/sngor/bayon-backend/platform/logger"
	"github.com/sngor/bayon-backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Storage for session QR codes (MinIO). Optional: without it the QR
	// endpoint reports unavailable and everything else still works.
	var objects openhouseservice.ObjectStore
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure qr bucket", 5, 2*time.Second, func() error {
			return storageSvc.EnsureBucketExists(ctx, cfg.GetMinioBucketSessionQR())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketSessionQR())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		objects = storageSvc
		log.Info("storage service initialized", "qrBucket", cfg.GetMinioBucketSessionQR())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; session QR codes disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Shared request validator instance.
	val := validator.New()

	// Notification module subscribes to domain events and serves the
	// in-app feed plus the SSE stream.
	notificationModule := notification.New(pool, log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Close()

	openhouseModule, err := openhouse.New(ctx, pool, cfg, eventBus, objects, val, log)
	if err != nil {
		log.Error("failed to initialize openhouse module", "error", err)
		panic("failed to initialize openhouse module: " + err.Error())
	}

	listingsModule := listings.New(pool, cfg, eventBus, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			openhouseModule,
			listingsModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
