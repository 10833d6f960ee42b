// Package app assembles the analysis pipeline shared by the server and the
// worker process.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"rankwise.app/analyst/common/llm"
	"rankwise.app/analyst/core/config"
	"rankwise.app/analyst/core/db"
	"rankwise.app/analyst/internal/memory"
	"rankwise.app/analyst/internal/metrics"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/signal"
	"rankwise.app/analyst/internal/store"
	"rankwise.app/analyst/internal/synth"
)

type Pipeline struct {
	Stores       *store.Stores
	Memory       *memory.Memory
	Orchestrator *orchestrator.Orchestrator
	Metrics      *metrics.Collector
}

// OpenDB connects to postgres and, when enabled, applies pending migrations.
func OpenDB(ctx context.Context, cfg config.Config) (*db.DB, error) {
	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		slog.InfoContext(ctx, "database migrations applied")
	}
	return database, nil
}

func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// NewPipeline builds memory, providers, the synthesizer and the orchestrator.
// A memory that fails to load leaves the pipeline running in degraded mode.
func NewPipeline(ctx context.Context, cfg config.Config, database *db.DB, collector *metrics.Collector) (*Pipeline, error) {
	stores := store.NewStores(database.Queries())

	mem := memory.New(memory.ConfigFrom(cfg.Memory), stores.MemoryEntries(), collector)
	if err := mem.Load(ctx); err != nil {
		slog.WarnContext(ctx, "memory unavailable, continuing without it", "error", err)
	}

	providers, err := signal.NewProviders(ctx, cfg, collector)
	if err != nil {
		return nil, fmt.Errorf("building signal providers: %w", err)
	}

	client, err := llm.New(llm.Config{
		Provider: cfg.SynthesisLLM.Provider,
		APIKey:   cfg.SynthesisLLM.APIKey,
		BaseURL:  cfg.SynthesisLLM.BaseURL,
		Model:    cfg.SynthesisLLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("building synthesis client: %w", err)
	}
	synthesizer := synth.New(client, synth.ConfigFrom(cfg.SynthesisLLM), collector)

	orch, err := orchestrator.New(
		orchestrator.ConfigFrom(cfg),
		stores.Targets(),
		orchestrator.NewTxRunner(database),
		providers,
		synthesizer,
		mem,
		collector,
	)
	if err != nil {
		return nil, fmt.Errorf("building orchestrator: %w", err)
	}

	slog.InfoContext(ctx, "analysis pipeline ready",
		"providers", len(providers),
		"synthesis_model", client.Model(),
		"memory_entries", mem.Len(),
		"memory_degraded", mem.Degraded())

	return &Pipeline{
		Stores:       stores,
		Memory:       mem,
		Orchestrator: orch,
		Metrics:      collector,
	}, nil
}
