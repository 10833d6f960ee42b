package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Claimer is the part of the consumer the reclaimer needs.
type Claimer interface {
	Pending(ctx context.Context, minIdle time.Duration, count int64) ([]redis.XPendingExt, error)
	Claim(ctx context.Context, minIdle time.Duration, ids ...string) ([]redis.XMessage, error)
	Ack(ctx context.Context, msg queue.Message) error
}

// Analyzer runs one analysis; *orchestrator.Orchestrator satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, raw string, kind model.TargetKind) (*model.AnalysisResult, error)
}
