package memory

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"rankwise.app/analyst/common/logger"
)

// decayEpsilon skips write-back of negligible changes.
const decayEpsilon = 1e-6

// Decay recomputes every entry's importance as its initial importance
// halved once per half-life elapsed since the entry was written, and
// persists the changed scores.
func (m *Memory) Decay(ctx context.Context, now time.Time) error {
	if m.cfg.HalfLife <= 0 {
		return nil
	}

	m.mu.Lock()
	changed := map[int64]float64{}
	for _, it := range m.heap {
		age := now.Sub(it.entry.Timestamp)
		if age < 0 {
			age = 0
		}
		score := it.entry.BaseImportance * math.Pow(0.5, float64(age)/float64(m.cfg.HalfLife))
		if math.Abs(score-it.entry.Importance) < decayEpsilon {
			continue
		}
		it.entry.Importance = score
		changed[it.entry.ID] = score
	}
	if len(changed) > 0 {
		heap.Init(&m.heap)
	}
	m.mu.Unlock()

	if len(changed) == 0 {
		return nil
	}
	if err := m.entries.UpdateImportance(ctx, changed); err != nil {
		return fmt.Errorf("persisting decayed importance: %w", err)
	}
	slog.DebugContext(ctx, "memory importance decayed", "updated", len(changed))
	return nil
}

// Run keeps the index in step with the shared table until ctx is done: it
// reloads every RefreshInterval, which also retries a failed initial load,
// and decays importance every DecayInterval when a half-life is set.
func (m *Memory) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "analyst.memory.sync"})

	refresh := time.NewTicker(m.cfg.RefreshInterval)
	defer refresh.Stop()

	var decay <-chan time.Time
	if m.cfg.DecayInterval > 0 && m.cfg.HalfLife > 0 {
		t := time.NewTicker(m.cfg.DecayInterval)
		defer t.Stop()
		decay = t.C
	}

	slog.InfoContext(ctx, "memory sync started",
		"refresh_interval", m.cfg.RefreshInterval,
		"decay_interval", m.cfg.DecayInterval,
		"half_life", m.cfg.HalfLife)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "memory sync stopped")
			return
		case <-refresh.C:
			if err := m.Load(ctx); err != nil {
				slog.WarnContext(ctx, "memory refresh failed", "error", err, "degraded", m.Degraded())
			}
		case <-decay:
			if err := m.Decay(ctx, m.now()); err != nil {
				slog.WarnContext(ctx, "memory decay failed", "error", err)
			}
		}
	}
}
