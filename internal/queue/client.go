package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/speakpost/internal/config"
)

// UploadProcessTimeout covers the worst-case download plus every generation
// retry for both calls.
const UploadProcessTimeout = 30 * time.Minute

type Client struct {
	client *asynq.Client
}

// RedisOpt converts configuration into asynq connection options.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueUploadProcess schedules the upload flow once. The task is never
// retried by the queue since a retry could save the post twice.
func (c *Client) EnqueueUploadProcess(ctx context.Context, payload UploadProcessPayload) error {
	return c.enqueue(ctx, TypeUploadProcess, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(UploadProcessTimeout),
		asynq.TaskID(payload.JobID),
	)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
