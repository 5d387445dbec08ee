package scheduler

import (
	"context"
	"time"

	"github.com/sngor/bayon-backend/platform/logger"
)

// touchpointTick is how often a processor pass is queued. Due messages
// wait at most this long past their dueAt before dispatch.
const touchpointTick = time.Minute

// PeriodicDispatcher enqueues the recurring tasks: a touchpoint pass
// every minute and an MLS sweep every sync interval. Task uniqueness on
// the queue keeps multiple dispatcher replicas from stacking runs.
type PeriodicDispatcher struct {
	client       *Client
	syncInterval time.Duration
	log          *logger.Logger
}

func NewPeriodicDispatcher(client *Client, syncInterval time.Duration, log *logger.Logger) *PeriodicDispatcher {
	if syncInterval <= 0 {
		syncInterval = 15 * time.Minute
	}
	return &PeriodicDispatcher{
		client:       client,
		syncInterval: syncInterval,
		log:          log,
	}
}

func (d *PeriodicDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	touchpoints := time.NewTicker(touchpointTick)
	defer touchpoints.Stop()

	sync := time.NewTicker(d.syncInterval)
	defer sync.Stop()

	// Prime both loops so a fresh deployment does not sit idle for a
	// full interval.
	d.enqueueTouchpoints(ctx)
	d.enqueueSync(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-touchpoints.C:
			d.enqueueTouchpoints(ctx)
		case <-sync.C:
			d.enqueueSync(ctx)
		}
	}
}

func (d *PeriodicDispatcher) enqueueTouchpoints(ctx context.Context) {
	if err := d.client.EnqueueProcessTouchpoints(ctx); err != nil {
		d.log.Warn("failed to enqueue touchpoint pass", "error", err)
	}
}

func (d *PeriodicDispatcher) enqueueSync(ctx context.Context) {
	if err := d.client.EnqueueSyncListings(ctx, ""); err != nil {
		d.log.Warn("failed to enqueue listing sync", "error", err)
	}
}
