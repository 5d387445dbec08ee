package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	listingstransport "github.com/sngor/bayon-backend/internal/listings/transport"
	openhousetransport "github.com/sngor/bayon-backend/internal/openhouse/transport"
	"github.com/sngor/bayon-backend/platform/config"
	"github.com/sngor/bayon-backend/platform/logger"
)

// TouchpointProcessor runs one bounded pass over due follow-up messages.
type TouchpointProcessor interface {
	ProcessAllPending(ctx context.Context) (openhousetransport.ProcessSummary, error)
}

// ListingSyncer reconciles local listing status against the MLS authority.
type ListingSyncer interface {
	SyncAllConnections(ctx context.Context, userID uuid.UUID) (listingstransport.SyncSummary, error)
	SyncEverything(ctx context.Context) (listingstransport.SyncSummary, error)
}

// Worker consumes queued tasks and drives the follow-up processor and
// the MLS reconciler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor TouchpointProcessor
	syncer    ListingSyncer
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor TouchpointProcessor, syncer ListingSyncer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		syncer:    syncer,
		log:       log,
	}

	mux.HandleFunc(TaskProcessTouchpoints, w.handleProcessTouchpoints)
	mux.HandleFunc(TaskSyncListings, w.handleSyncListings)

	return w, nil
}

func (w *Worker) handleProcessTouchpoints(ctx context.Context, task *asynq.Task) error {
	if w.processor == nil {
		return nil
	}

	if _, err := ParseProcessTouchpointsPayload(task); err != nil {
		return err
	}

	summary, err := w.processor.ProcessAllPending(ctx)
	if err != nil {
		return err
	}

	w.log.Info("touchpoint task completed",
		"processed", summary.Processed,
		"failed", summary.Failed,
	)
	return nil
}

func (w *Worker) handleSyncListings(ctx context.Context, task *asynq.Task) error {
	if w.syncer == nil {
		return nil
	}

	payload, err := ParseSyncListingsPayload(task)
	if err != nil {
		return err
	}

	var summary listingstransport.SyncSummary
	if payload.UserID == "" {
		summary, err = w.syncer.SyncEverything(ctx)
	} else {
		userID, parseErr := uuid.Parse(payload.UserID)
		if parseErr != nil {
			return parseErr
		}
		summary, err = w.syncer.SyncAllConnections(ctx, userID)
	}
	if err != nil {
		return err
	}

	w.log.Info("listing sync task completed",
		"connections", summary.Connections,
		"checked", summary.Checked,
		"changed", summary.Changed,
		"failed", summary.Failed,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
