package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rankwise.app/analyst/common/id"
	"rankwise.app/analyst/common/logger"
	"rankwise.app/analyst/common/otel"
	"rankwise.app/analyst/core/config"
	"rankwise.app/analyst/internal/app"
	"rankwise.app/analyst/internal/metrics"
	"rankwise.app/analyst/internal/queue"
	"rankwise.app/analyst/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	slog.InfoContext(ctx, "analyst worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	if err := id.Init(id.NodeWorker); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := app.OpenDB(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisClient, err := app.OpenRedis(ctx, cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	collector := metrics.New()
	pipeline, err := app.NewPipeline(ctx, cfg, database, collector)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build analysis pipeline", "error", err)
		os.Exit(1)
	}

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // one analysis at a time per worker
		Block:        5 * time.Second,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, pipeline.Orchestrator, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewReclaimer(consumer, worker.ReclaimerConfig{
		MinIdle:   cfg.Pipeline.ReclaimIdle,
		Interval:  time.Minute,
		BatchSize: 10,
	}, w.ProcessMessage)

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(runCtx)
	}()
	go reclaimer.Run(runCtx)
	go pipeline.Memory.Run(runCtx)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           collector.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "metrics server error", "error", err)
		}
	}()

	slog.InfoContext(ctx, "worker initialized and running", "metrics_port", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Analysis.Timeout+cfg.Analysis.PersistTimeout)
	defer cancel()

	// Stop reclaimer first (quick), then let the in-flight analysis finish.
	reclaimer.Stop()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded, abandoning in-flight analysis")
	case <-done:
	}
	stopRun()

	select {
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	case <-time.After(time.Second):
	}

	_ = metricsServer.Shutdown(shutdownCtx)
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
   __ _ _ __   __ _| |_   _ ___| |_
  / _' | '_ \ / _' | | | | / __| __|
 | (_| | | | | (_| | | |_| \__ \ |_
  \__,_|_| |_|\__,_|_|\__, |___/\__|  worker
                      |___/
`
