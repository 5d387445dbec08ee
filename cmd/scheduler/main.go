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
	"github.com/sngor/bayon-backend/internal/listings"
	"github.com/sngor/bayon-backend/internal/notification"
	"github.com/sngor/bayon-backend/internal/openhouse"
	"github.com/sngor/bayon-backend/internal/scheduler"
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
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	val := validator.New()

	// Notifications are worker-side too: a failed touchpoint or a sold
	// listing detected here still lands in the user's in-app feed.
	notificationModule := notification.New(pool, log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Close()

	openhouseModule, err := openhouse.New(ctx, pool, cfg, eventBus, nil, val, log)
	if err != nil {
		log.Error("failed to initialize openhouse module", "error", err)
		panic("failed to initialize openhouse module: " + err.Error())
	}

	listingsModule := listings.New(pool, cfg, eventBus, val, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewPeriodicDispatcher(client, cfg.GetMLSSyncInterval(), log)
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, openhouseModule.Service(), listingsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
