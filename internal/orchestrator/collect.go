package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rankwise.app/analyst/common/logger"
	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/signal"
)

var errNotConfigured = errors.New("no provider configured")

// collect queries every provider for the target's kind concurrently, each
// under its own timeout, and returns one outcome per expected category in
// presentation order. It never fails: a provider error, timeout or panic
// becomes an Unavailable outcome.
func (o *Orchestrator) collect(ctx context.Context, spec TargetSpec) []signal.Outcome {
	span := logger.StartSpan(ctx, "orchestrator.collect")
	defer span.End()
	ctx = span.Context()

	req := signal.Request{
		Key:      spec.Key,
		Kind:     spec.Kind,
		URL:      spec.URL,
		Keywords: spec.Keywords,
	}

	categories := spec.Kind.Categories()
	outcomes := make([]signal.Outcome, len(categories))
	providers := o.providers[spec.Kind]

	var wg sync.WaitGroup
	for i, category := range categories {
		p, ok := providers[category]
		if !ok {
			outcomes[i] = signal.Failure(category, "", errNotConfigured)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = o.fetch(ctx, p, req)
		}()
	}
	wg.Wait()

	return outcomes
}

func (o *Orchestrator) fetch(ctx context.Context, p signal.Provider, req signal.Request) signal.Outcome {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Category: logger.Ptr(string(p.Category())),
		Provider: logger.Ptr(p.Name()),
	})

	timeout := o.cfg.timeoutFor(p.Category())
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		metrics *signal.Metrics
		err     error
	}
	ch := make(chan result, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("%s panicked: %v", p.Name(), r)}
			}
		}()
		m, err := p.Fetch(fetchCtx, req)
		ch <- result{metrics: m, err: err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-fetchCtx.Done():
		// The provider ignored its context; stop waiting for it.
		res = result{err: fmt.Errorf("%s: %w", p.Name(), fetchCtx.Err())}
	}

	if res.err != nil {
		slog.WarnContext(ctx, "signal provider unavailable",
			"error", res.err,
			"timeout", timeout,
			"duration_ms", time.Since(start).Milliseconds())
		return signal.Failure(p.Category(), p.Name(), res.err)
	}

	slog.DebugContext(ctx, "signal collected",
		"findings", len(resultFindings(res.metrics)),
		"duration_ms", time.Since(start).Milliseconds())
	return signal.Success(p, res.metrics)
}

func resultFindings(m *signal.Metrics) []string {
	if m == nil {
		return nil
	}
	return m.Findings
}

func warningFor(o signal.Outcome) model.Warning {
	if o.Provider == "" {
		return model.Warning{
			Category: o.Category,
			Kind:     model.WarningProviderMissing,
			Reason:   fmt.Sprintf("no %s provider is configured", o.Category),
		}
	}
	return model.Warning{
		Category: o.Category,
		Kind:     model.WarningProviderUnavailable,
		Reason:   o.Unavailable.Reason,
	}
}
