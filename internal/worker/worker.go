package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rankwise.app/analyst/common/logger"
	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/queue"
)

type Config struct {
	MaxAttempts int
	// ErrorBackoff is slept after a failed read.
	ErrorBackoff time.Duration
}

type Worker struct {
	consumer Consumer
	analyzer Analyzer
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, analyzer Analyzer, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		consumer:  consumer,
		analyzer:  analyzer,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "analyst.worker"})
	slog.InfoContext(ctx, "worker started", "max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-w.stopCh:
				case <-time.After(w.cfg.ErrorBackoff):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.ProcessMessage(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID)
		}
	}
	return nil
}

// ProcessMessage runs the analysis for msg and settles it: ack on success or
// permanent failure, requeue on a retryable failure, DLQ once attempts run
// out. A message interrupted by shutdown is left pending for the reclaimer.
// Exported so the reclaimer can reuse it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	msgID := msg.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msgID,
		TargetKey: &msg.Target,
	})

	slog.InfoContext(ctx, "processing message",
		"kind", msg.Kind,
		"attempt", msg.Attempt,
		"trace_id", msg.TraceID)

	start := time.Now()
	res, err := w.analyzeSafe(ctx, msg)
	if err == nil {
		slog.InfoContext(ctx, "analysis finished",
			"status", res.Status,
			"snapshot_id", res.SnapshotID,
			"duration_ms", time.Since(start).Milliseconds())
		w.ack(ctx, msg)
		return nil
	}

	if ctx.Err() != nil {
		slog.WarnContext(ctx, "analysis interrupted by shutdown, leaving message pending", "error", err)
		return err
	}

	if orchestrator.KindOf(err) == orchestrator.KindInvalidTarget {
		slog.ErrorContext(ctx, "dropping message with invalid target", "error", err)
		w.ack(ctx, msg)
		return nil
	}

	w.handleFailedMessage(ctx, msg, err)
	return err
}

func (w *Worker) analyzeSafe(ctx context.Context, msg queue.Message) (res *model.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	res, err = w.analyzer.Analyze(ctx, msg.Target, msg.Kind)
	if err == nil && res == nil {
		err = errors.New("analyzer returned no result")
	}
	return res, err
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer will redeliver it; analyses are safe to repeat.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"attempts", msg.Attempt,
			"error_kind", orchestrator.KindOf(err))
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"attempt", msg.Attempt,
		"error_kind", orchestrator.KindOf(err))
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
