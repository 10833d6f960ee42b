// Package memory keeps a bounded, importance-scored log of past analyses
// that later syntheses consult.
package memory

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"rankwise.app/analyst/common/id"
	"rankwise.app/analyst/common/logger"
	"rankwise.app/analyst/core/config"
	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/store"
)

const defaultRecurrenceThreshold = 2

type Config struct {
	Capacity        int
	BaseWeight      float64
	NoveltyBoost    float64
	RecurrenceBoost float64
	// RecurrenceThreshold is how many prior entries for the same context
	// must carry a finding before it counts as recurring.
	RecurrenceThreshold int
	HalfLife            time.Duration
	DecayInterval       time.Duration
	RefreshInterval     time.Duration // reload from the table every process shares
	RecallLimit         int
}

func ConfigFrom(cfg config.MemoryConfig) Config {
	return Config{
		Capacity:            cfg.Capacity,
		BaseWeight:          cfg.BaseWeight,
		NoveltyBoost:        cfg.NoveltyBoost,
		RecurrenceBoost:     cfg.RecurrenceBoost,
		RecurrenceThreshold: defaultRecurrenceThreshold,
		HalfLife:            cfg.HalfLife,
		DecayInterval:       cfg.DecayInterval,
		RefreshInterval:     cfg.RefreshInterval,
		RecallLimit:         cfg.RecallLimit,
	}
}

// Observer receives memory size changes. Implemented by the metrics collector.
type Observer interface {
	MemorySize(n int)
	MemoryEvicted(n int)
}

type noopObserver struct{}

func (noopObserver) MemorySize(int)    {}
func (noopObserver) MemoryEvicted(int) {}

// Memory is safe for concurrent use. The persisted table is authoritative:
// every process holds an index of its top Capacity rows, refreshed by Run,
// and writers prune the table to Capacity. Mutations of the in-process
// index are serialized by one mutex; persistence happens outside it.
type Memory struct {
	cfg      Config
	entries  store.MemoryEntryStore
	observer Observer
	now      func() time.Time

	mu       sync.Mutex
	heap     entryHeap
	counts   findingCounts
	loaded   bool
	degraded bool
}

func New(cfg Config, entries store.MemoryEntryStore, observer Observer) *Memory {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.BaseWeight == 0 {
		cfg.BaseWeight = 1.0
	}
	if cfg.RecurrenceThreshold <= 0 {
		cfg.RecurrenceThreshold = defaultRecurrenceThreshold
	}
	if cfg.RecallLimit <= 0 {
		cfg.RecallLimit = 10
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Memory{
		cfg:      cfg,
		entries:  entries,
		observer: observer,
		now:      time.Now,
		counts:   newFindingCounts(),
	}
}

// Load replaces the index with the most important persisted entries. A
// failure before any successful load leaves memory empty and degraded; a
// failed reload keeps the previous index.
func (m *Memory) Load(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "analyst.memory"})

	rows, err := m.entries.ListTop(ctx, m.cfg.Capacity)
	if err != nil {
		m.mu.Lock()
		m.degraded = !m.loaded
		m.mu.Unlock()
		return fmt.Errorf("loading memory entries: %w", err)
	}

	m.mu.Lock()
	m.heap = make(entryHeap, 0, len(rows))
	m.counts = newFindingCounts()
	for _, e := range rows {
		m.heap = append(m.heap, &item{entry: e, index: len(m.heap)})
		m.counts.add(e)
	}
	heap.Init(&m.heap)
	wasDegraded := m.degraded
	m.loaded, m.degraded = true, false
	size := len(m.heap)
	m.mu.Unlock()

	m.observer.MemorySize(size)
	if wasDegraded {
		slog.InfoContext(ctx, "memory recovered", "entries", size, "capacity", m.cfg.Capacity)
	} else {
		slog.DebugContext(ctx, "memory loaded", "entries", size, "capacity", m.cfg.Capacity)
	}
	return nil
}

// Degraded reports whether memory has not been loaded yet because the store
// failed. Run retries until a load succeeds.
func (m *Memory) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.heap)
}

func (m *Memory) Capacity() int { return m.cfg.Capacity }

// Score builds an entry for the observation with its initial importance:
// the base weight, plus the novelty boost when any finding appears in no
// retained entry, plus the recurrence boost when any finding already
// appears in RecurrenceThreshold or more entries for the same context.
func (m *Memory) Score(contextLabel string, obs model.Observation, action string, result model.MemoryResult) model.MemoryEntry {
	m.mu.Lock()
	novel, recurring := false, false
	perCtx := m.counts.byContext[contextLabel]
	for _, f := range distinct(obs.Findings) {
		if m.counts.global[f] == 0 {
			novel = true
		}
		if perCtx[f] >= m.cfg.RecurrenceThreshold {
			recurring = true
		}
	}
	m.mu.Unlock()

	importance := m.cfg.BaseWeight
	if novel {
		importance += m.cfg.NoveltyBoost
	}
	if recurring {
		importance += m.cfg.RecurrenceBoost
	}

	return model.MemoryEntry{
		ID:             id.New(),
		Context:        contextLabel,
		Observation:    obs,
		Action:         action,
		Result:         result,
		Timestamp:      m.now().UTC(),
		BaseImportance: importance,
		Importance:     importance,
	}
}

// Admit inserts an already persisted entry and evicts down to capacity.
// An entry that scores below every retained one is itself the one evicted.
// Evicted rows are deleted best-effort.
func (m *Memory) Admit(ctx context.Context, entry model.MemoryEntry) []model.MemoryEntry {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "analyst.memory"})

	m.mu.Lock()
	heap.Push(&m.heap, &item{entry: entry})
	m.counts.add(entry)

	var evicted []model.MemoryEntry
	for len(m.heap) > m.cfg.Capacity {
		it := heap.Pop(&m.heap).(*item)
		m.counts.remove(it.entry)
		evicted = append(evicted, it.entry)
	}
	size := len(m.heap)
	m.mu.Unlock()

	m.observer.MemorySize(size)
	if len(evicted) == 0 {
		return nil
	}
	m.observer.MemoryEvicted(len(evicted))

	ids := make([]int64, len(evicted))
	for i, e := range evicted {
		ids[i] = e.ID
	}
	if err := m.entries.DeleteByIDs(ctx, ids); err != nil {
		slog.WarnContext(ctx, "failed to delete evicted memory entries", "error", err, "count", len(ids))
	}
	slog.DebugContext(ctx, "memory entries evicted", "count", len(evicted), "size", size)
	return evicted
}

// Record scores, persists and admits one entry, pruning the table back to
// capacity. A failed prune is retried by the next writer.
func (m *Memory) Record(ctx context.Context, contextLabel string, obs model.Observation, action string, result model.MemoryResult) (model.MemoryEntry, error) {
	entry := m.Score(contextLabel, obs, action, result)
	if err := m.entries.Create(ctx, &entry); err != nil {
		return model.MemoryEntry{}, fmt.Errorf("persisting memory entry: %w", err)
	}
	if _, err := m.entries.Prune(ctx, m.cfg.Capacity); err != nil {
		slog.WarnContext(ctx, "failed to prune memory entries", "error", err)
	}
	m.Admit(ctx, entry)
	return entry, nil
}

// Recall returns up to limit entries for contextLabel, most important first
// and most recent among equals. An empty label recalls across all contexts.
// It never fails; an empty or unavailable memory yields an empty slice.
func (m *Memory) Recall(contextLabel string, limit int) []model.MemoryEntry {
	if limit <= 0 {
		limit = m.cfg.RecallLimit
	}

	m.mu.Lock()
	out := make([]model.MemoryEntry, 0, len(m.heap))
	for _, it := range m.heap {
		if contextLabel == "" || it.entry.Context == contextLabel {
			out = append(out, it.entry)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
