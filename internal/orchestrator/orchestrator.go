// Package orchestrator runs the analysis pipeline: resolve the target,
// collect signals, synthesize recommendations, persist, and feed memory.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"rankwise.app/analyst/common/id"
	"rankwise.app/analyst/common/logger"
	"rankwise.app/analyst/core/config"
	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/signal"
	"rankwise.app/analyst/internal/store"
	"rankwise.app/analyst/internal/synth"
)

// Synthesizer turns collected metrics into recommendations. It reports
// failures inside the outcome rather than as an error.
type Synthesizer interface {
	Synthesize(ctx context.Context, in synth.Input) synth.Outcome
}

// Memory is the advisory analysis log consulted before synthesis and fed
// after persistence.
type Memory interface {
	Score(contextLabel string, obs model.Observation, action string, result model.MemoryResult) model.MemoryEntry
	Admit(ctx context.Context, entry model.MemoryEntry) []model.MemoryEntry
	Recall(contextLabel string, limit int) []model.MemoryEntry
	Degraded() bool
	Capacity() int
}

// Observer receives one call per finished analysis. Implemented by metrics.
type Observer interface {
	Analysis(kind model.TargetKind, status string, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) Analysis(model.TargetKind, string, time.Duration) {}

type Config struct {
	// Timeout bounds one whole run; 0 leaves only the caller's deadline.
	Timeout time.Duration
	// ProviderTimeout is the default per-provider budget, retries included.
	ProviderTimeout  time.Duration
	CategoryTimeouts map[model.Category]time.Duration
	PersistTimeout   time.Duration
	RecallLimit      int
}

// ConfigFrom derives per-provider budgets that cover the configured retry
// attempts of the resilience wrapper.
func ConfigFrom(cfg config.Config) Config {
	a := cfg.Analysis
	attempts := time.Duration(a.RetryAttempts + 1)
	slack := time.Duration(a.RetryAttempts) * time.Second
	budget := func(d time.Duration) time.Duration { return d*attempts + slack }

	return Config{
		Timeout:         a.Timeout,
		ProviderTimeout: budget(a.ProviderTimeout),
		CategoryTimeouts: map[model.Category]time.Duration{
			model.CategoryTechnical:   budget(a.TechnicalTimeout),
			model.CategoryKeyword:     budget(a.KeywordTimeout),
			model.CategoryCompetition: budget(a.CompetitionTimeout),
			model.CategoryContent:     budget(a.ContentTimeout),
		},
		PersistTimeout: a.PersistTimeout,
		RecallLimit:    cfg.Memory.RecallLimit,
	}
}

func (c Config) timeoutFor(category model.Category) time.Duration {
	if d, ok := c.CategoryTimeouts[category]; ok && d > 0 {
		return d
	}
	return c.ProviderTimeout
}

type Orchestrator struct {
	cfg       Config
	targets   store.TargetStore
	tx        TxRunner
	providers map[model.TargetKind]map[model.Category]signal.Provider
	synth     Synthesizer
	memory    Memory
	observer  Observer
	flight    *flightGroup
	now       func() time.Time
}

// New indexes providers by the kinds they support. Two providers for the
// same category and kind are a configuration error.
func New(
	cfg Config,
	targets store.TargetStore,
	tx TxRunner,
	providers []signal.Provider,
	synthesizer Synthesizer,
	memory Memory,
	observer Observer,
) (*Orchestrator, error) {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 15 * time.Second
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	if cfg.RecallLimit <= 0 {
		cfg.RecallLimit = 10
	}
	if observer == nil {
		observer = noopObserver{}
	}

	byKind := map[model.TargetKind]map[model.Category]signal.Provider{}
	for _, kind := range []model.TargetKind{model.TargetKindWebsite, model.TargetKindNiche} {
		byKind[kind] = map[model.Category]signal.Provider{}
		for _, p := range providers {
			if !p.Supports(kind) {
				continue
			}
			if existing, ok := byKind[kind][p.Category()]; ok {
				return nil, fmt.Errorf("providers %s and %s both serve %s for %s targets",
					existing.Name(), p.Name(), p.Category(), kind)
			}
			byKind[kind][p.Category()] = p
		}
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	slog.InfoContext(context.Background(), "orchestrator initialized",
		"providers", names,
		"persist_timeout", cfg.PersistTimeout)

	return &Orchestrator{
		cfg:       cfg,
		targets:   targets,
		tx:        tx,
		providers: byKind,
		synth:     synthesizer,
		memory:    memory,
		observer:  observer,
		flight:    newFlightGroup(),
		now:       time.Now,
	}, nil
}

// Analyze runs the pipeline for raw. Concurrent calls for keys that
// normalize equal share one run and its result. A degraded result is a
// success; only invalid input, store outages, cancellation and a run with
// no signals at all fail, as an *Error. A panicking run is returned as a
// plain error.
func (o *Orchestrator) Analyze(ctx context.Context, raw string, kind model.TargetKind) (*model.AnalysisResult, error) {
	start := time.Now()

	spec, err := ParseTarget(raw, kind)
	if err != nil {
		o.observer.Analysis(kind, "failed", time.Since(start))
		return nil, err
	}

	res, err, shared := o.flight.Do(ctx, spec.Key, func(runCtx context.Context) (*model.AnalysisResult, error) {
		return o.run(runCtx, spec)
	})
	if shared {
		slog.DebugContext(ctx, "joined in-flight analysis", "target_key", spec.Key)
	}
	if err != nil {
		if KindOf(err) == "" && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			err = newError(KindCanceled, err)
		}
		if !shared {
			o.observer.Analysis(spec.Kind, "failed", time.Since(start))
		}
		return nil, err
	}

	if !shared {
		o.observer.Analysis(spec.Kind, string(res.Status), time.Since(start))
	}
	out := *res
	return &out, nil
}

func (o *Orchestrator) run(ctx context.Context, spec TargetSpec) (*model.AnalysisResult, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TargetKey: logger.Ptr(spec.Key),
		Component: "analyst.orchestrator",
	})
	span := logger.StartSpan(ctx, "orchestrator.analyze")
	defer span.End()
	ctx = span.Context()

	slog.InfoContext(ctx, "analysis started", "kind", spec.Kind)

	target, err := o.targets.GetOrCreate(ctx, spec.Key, spec.Kind)
	if err != nil {
		span.RecordError(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, newError(KindCanceled, ctxErr)
		}
		return nil, newError(KindStoreUnavailable, fmt.Errorf("resolving target: %w: %w", ErrStoreUnavailable, err))
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{TargetID: &target.ID})

	outcomes := o.collect(ctx, spec)
	b := merge(outcomes)

	var warnings []model.Warning
	warnings = append(warnings, b.warnings...)

	if o.memory.Degraded() {
		warnings = append(warnings, model.Warning{
			Kind:   model.WarningMemoryUnavailable,
			Reason: "memory could not be loaded; synthesized without it",
		})
	}
	recalled := o.memory.Recall(spec.Key, o.cfg.RecallLimit)

	synthOut := o.synthesize(ctx, spec, b, recalled)
	if !synthOut.OK() {
		warnings = append(warnings, synthesisWarning(synthOut.Failure))
		if len(b.metrics) == 0 {
			err := fmt.Errorf("%w: %s", ErrNoSignals, synthOut.Failure.Reason)
			span.RecordError(err)
			slog.ErrorContext(ctx, "analysis failed: no signals and no recommendations", "error", err)
			kind := KindProviderUnavailable
			if synthOut.Failure.Kind == synth.FailureMalformed {
				kind = KindSynthesisMalformed
			}
			return nil, newError(kind, err)
		}
	}

	// Nothing is written for a run canceled before persistence.
	if err := ctx.Err(); err != nil {
		slog.InfoContext(ctx, "analysis canceled before persistence", "error", err)
		return nil, newError(KindCanceled, err)
	}

	status := model.StatusOK
	if len(warnings) > 0 {
		status = model.StatusDegraded
	}

	result := &model.AnalysisResult{
		TargetKey:       spec.Key,
		Kind:            spec.Kind,
		Status:          status,
		Warnings:        warnings,
		AnalyzedAt:      o.now().UTC(),
		Metrics:         b.metrics,
		Recommendations: synthOut.Set,
	}

	if err := o.persist(ctx, target, result, b); err != nil {
		span.RecordError(err)
		return nil, err
	}

	slog.InfoContext(ctx, "analysis completed",
		"status", status,
		"warnings", len(warnings),
		"recommendations", result.Recommendations.Count(),
		"snapshot_id", result.SnapshotID)
	return result, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, spec TargetSpec, b bundle, recalled []model.MemoryEntry) synth.Outcome {
	return o.synth.Synthesize(ctx, synth.Input{
		TargetKey:   spec.Key,
		Kind:        spec.Kind,
		Metrics:     b.metrics,
		Unavailable: b.unavailable,
		Memory:      recalled,
	})
}

func synthesisWarning(f *synth.Failure) model.Warning {
	kind := model.WarningSynthesisUnavailable
	if f.Kind == synth.FailureMalformed {
		kind = model.WarningSynthesisMalformed
	}
	return model.Warning{Kind: kind, Reason: f.Reason}
}

// bundle is the merged per-category view of one collection.
type bundle struct {
	metrics     map[model.Category]json.RawMessage
	unavailable map[model.Category]string
	warnings    []model.Warning
	keywords    []signal.KeywordObservation
	findings    []string
	collected   []model.Category
}

func merge(outcomes []signal.Outcome) bundle {
	b := bundle{
		metrics:     map[model.Category]json.RawMessage{},
		unavailable: map[model.Category]string{},
	}
	seen := map[string]bool{}

	for _, out := range outcomes {
		if !out.OK() {
			b.unavailable[out.Category] = out.Unavailable.Reason
			if out.Provider == "" {
				b.unavailable[out.Category] = "not configured"
			}
			b.warnings = append(b.warnings, warningFor(out))
			continue
		}

		data := out.Metrics.Data
		if data == nil {
			data = struct{}{}
		}
		raw, err := json.Marshal(data)
		if err != nil {
			reason := fmt.Sprintf("%s returned unencodable metrics: %v", out.Provider, err)
			b.unavailable[out.Category] = reason
			b.warnings = append(b.warnings, model.Warning{
				Category: out.Category,
				Kind:     model.WarningProviderUnavailable,
				Reason:   reason,
			})
			continue
		}

		b.metrics[out.Category] = raw
		b.collected = append(b.collected, out.Category)
		b.keywords = append(b.keywords, out.Metrics.Keywords...)
		for _, f := range out.Metrics.Findings {
			if !seen[f] {
				seen[f] = true
				b.findings = append(b.findings, f)
			}
		}
	}
	sort.Strings(b.findings)
	return b
}

// persist writes the snapshot, keyword records, last-analyzed time and
// memory row in one transaction, then admits the memory entry. It runs
// detached from caller cancellation so a started write always finishes.
func (o *Orchestrator) persist(ctx context.Context, target *model.Target, result *model.AnalysisResult, b bundle) error {
	span := logger.StartSpan(ctx, "orchestrator.persist")
	defer span.End()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(span.Context()), o.cfg.PersistTimeout)
	defer cancel()

	snapshot := &model.Snapshot{
		ID:              id.New(),
		TargetID:        target.ID,
		AnalyzedAt:      result.AnalyzedAt,
		Status:          result.Status,
		Metrics:         result.Metrics,
		Recommendations: result.Recommendations,
		Warnings:        result.Warnings,
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{SnapshotID: &snapshot.ID})

	warningKinds := make([]model.WarningKind, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warningKinds = append(warningKinds, w.Kind)
	}
	entry := o.memory.Score(result.TargetKey, model.Observation{
		Categories: b.collected,
		Findings:   b.findings,
		Warnings:   warningKinds,
	}, model.MemoryActionAnalyze, model.MemoryResult{
		Status:          result.Status,
		SnapshotID:      snapshot.ID,
		Recommendations: result.Recommendations.Count(),
	})

	err := o.tx.WithTx(ctx, func(s StoreProvider) error {
		if err := s.Snapshots().Create(ctx, snapshot); err != nil {
			return fmt.Errorf("creating snapshot: %w", err)
		}
		for _, kw := range b.keywords {
			record := &model.KeywordRecord{
				TargetID:     target.ID,
				Keyword:      kw.Keyword,
				SearchVolume: kw.SearchVolume,
				Difficulty:   kw.Difficulty,
				Position:     kw.Position,
				LastUpdated:  result.AnalyzedAt,
			}
			if err := s.Keywords().Upsert(ctx, record); err != nil {
				return fmt.Errorf("upserting keyword %q: %w", kw.Keyword, err)
			}
		}
		if err := s.Targets().MarkAnalyzed(ctx, target.ID, result.AnalyzedAt); err != nil {
			return fmt.Errorf("marking target analyzed: %w", err)
		}
		if err := s.MemoryEntries().Create(ctx, &entry); err != nil {
			return fmt.Errorf("recording memory entry: %w", err)
		}
		pruned, err := s.MemoryEntries().Prune(ctx, o.memory.Capacity())
		if err != nil {
			return fmt.Errorf("pruning memory entries: %w", err)
		}
		if pruned > 0 {
			slog.DebugContext(ctx, "memory entries pruned", "count", pruned)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(ctx, "persisting analysis failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("persist timed out after %s: %w", o.cfg.PersistTimeout, err)
		}
		return newError(KindStoreUnavailable, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}

	o.memory.Admit(ctx, entry)
	result.SnapshotID = snapshot.ID
	return nil
}
