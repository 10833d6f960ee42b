package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"rankwise.app/analyst/common/logger"
	"rankwise.app/analyst/internal/queue"
)

type ReclaimerConfig struct {
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// Reclaimer periodically claims stale pending messages. This handles the
// crash recovery case where a worker dies after XREADGROUP but before XACK.
type Reclaimer struct {
	claimer   Claimer
	cfg       ReclaimerConfig
	processor queue.MessageProcessor

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(claimer Claimer, cfg ReclaimerConfig, processor queue.MessageProcessor) *Reclaimer {
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = 10 * time.Minute
	}
	if cfg.Interval <= 0 {
		cfg.Interval = cfg.MinIdle / 2
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Reclaimer{
		claimer:   claimer,
		cfg:       cfg,
		processor: processor,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the reclaimer loop. Blocks until Stop is called or ctx ends.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "analyst.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce performs one reclaim cycle. Failures of single messages are
// logged and do not stop the cycle.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) error {
	pending, err := r.claimer.Pending(ctx, r.cfg.MinIdle, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "found stale pending messages", "count", len(pending))

	for _, p := range pending {
		if err := r.reclaimMessage(ctx, p); err != nil {
			slog.ErrorContext(ctx, "failed to reclaim message",
				"error", err,
				"message_id", p.ID,
				"original_consumer", p.Consumer,
				"idle_time", p.Idle)
		}
	}

	return nil
}

func (r *Reclaimer) reclaimMessage(ctx context.Context, pending redis.XPendingExt) error {
	msgID := pending.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msgID,
	})

	slog.InfoContext(ctx, "reclaiming stale message",
		"original_consumer", pending.Consumer,
		"idle_time", pending.Idle,
		"retry_count", pending.RetryCount)

	messages, err := r.claimer.Claim(ctx, r.cfg.MinIdle, pending.ID)
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		slog.DebugContext(ctx, "message already reclaimed by another worker")
		return nil
	}

	msg := messages[0]
	parsed, err := queue.ParseMessage(msg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse reclaimed message, acknowledging to prevent loop",
			"error", err)
		_ = r.claimer.Ack(ctx, queue.Message{ID: msg.ID, Raw: msg})
		return nil
	}

	start := time.Now()
	if err := r.processor(ctx, parsed); err != nil {
		return fmt.Errorf("processing reclaimed message: %w", err)
	}

	slog.InfoContext(ctx, "reclaimed message processed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
