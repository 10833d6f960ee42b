package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"rankwise.app/analyst/common/id"
	"rankwise.app/analyst/common/logger"
	"rankwise.app/analyst/common/otel"
	"rankwise.app/analyst/core/config"
	"rankwise.app/analyst/internal/app"
	"rankwise.app/analyst/internal/http/middleware"
	httprouter "rankwise.app/analyst/internal/http/router"
	"rankwise.app/analyst/internal/metrics"
	"rankwise.app/analyst/internal/queue"
	"rankwise.app/analyst/internal/service"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "analyst server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(id.NodeServer); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := app.OpenDB(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	// Async analysis is optional; without redis the sync API still works.
	var producer queue.Producer
	redisClient, err := app.OpenRedis(ctx, cfg.Pipeline.RedisURL)
	if err != nil {
		slog.WarnContext(ctx, "redis unavailable, async analyses disabled", "error", err)
	} else {
		producer = queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, slog.Default())
		defer producer.Close()
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)
	}

	collector := metrics.New()
	pipeline, err := app.NewPipeline(ctx, cfg, database, collector)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build analysis pipeline", "error", err)
		os.Exit(1)
	}

	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	go pipeline.Memory.Run(syncCtx)

	services := service.NewServices(pipeline.Stores, pipeline.Orchestrator, producer, pipeline.Memory)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, collector)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Synchronous analyses run up to ANALYSIS_TIMEOUT.
		WriteTimeout: cfg.Analysis.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")
	stopSync()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Analysis.PersistTimeout+10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, collector *metrics.Collector) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		TraceHeaderName: cfg.Pipeline.TraceHeaderName,
		Metrics:         collector.Handler(),
	})

	return router
}

const banner = `
   __ _ _ __   __ _| |_   _ ___| |_
  / _' | '_ \ / _' | | | | / __| __|
 | (_| | | | | (_| | | |_| \__ \ |_
  \__,_|_| |_|\__,_|_|\__, |___/\__|  server
                      |___/
`
