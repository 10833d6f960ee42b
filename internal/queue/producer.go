package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	// Enqueue appends task to the stream and returns the stream message id.
	Enqueue(ctx context.Context, task Task) (string, error)
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task Task) (string, error) {
	if task.Attempt <= 0 {
		task.Attempt = 1
	}
	if err := task.validate(); err != nil {
		return "", fmt.Errorf("enqueue analysis: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: taskValues(task),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue analysis: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued analysis",
		"target_key", task.Target,
		"kind", task.Kind,
		"attempt", task.Attempt,
		"message_id", id)
	return id, nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func taskValues(task Task) map[string]any {
	values := map[string]any{
		"target":  task.Target,
		"kind":    string(task.Kind),
		"attempt": task.Attempt,
	}
	if task.TraceID != "" {
		values["trace_id"] = task.TraceID
	}
	return values
}
