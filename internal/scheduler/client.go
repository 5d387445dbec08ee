package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sngor/bayon-backend/platform/config"
)

// Client enqueues background tasks onto the asynq queue.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueProcessTouchpoints schedules one processor pass. Unique per
// minute so overlapping cron triggers collapse into a single run.
func (c *Client) EnqueueProcessTouchpoints(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	// Truncated to the uniqueness window so concurrent triggers in the
	// same minute produce an identical payload.
	task, err := NewProcessTouchpointsTask(ProcessTouchpointsPayload{
		RequestedAt: time.Now().UTC().Truncate(time.Minute).Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.Unique(time.Minute),
	)
	if err != nil && !isDuplicateTask(err) {
		return err
	}
	return nil
}

// EnqueueSyncListings schedules an MLS status sweep. Pass an empty
// userID to sweep every active connection.
func (c *Client) EnqueueSyncListings(ctx context.Context, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewSyncListingsTask(SyncListingsPayload{UserID: userID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.Unique(time.Minute),
	)
	if err != nil && !isDuplicateTask(err) {
		return err
	}
	return nil
}

func isDuplicateTask(err error) bool {
	return errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict)
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
