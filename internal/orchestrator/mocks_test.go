package orchestrator_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/signal"
	"rankwise.app/analyst/internal/store/storetest"
	"rankwise.app/analyst/internal/synth"
)

type mockProvider struct {
	name      string
	category  model.Category
	kinds     []model.TargetKind
	fetchFunc func(ctx context.Context, req signal.Request) (*signal.Metrics, error)

	calls atomic.Int32
}

func (m *mockProvider) Name() string             { return m.name }
func (m *mockProvider) Category() model.Category { return m.category }

func (m *mockProvider) Supports(kind model.TargetKind) bool {
	for _, k := range m.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (m *mockProvider) Fetch(ctx context.Context, req signal.Request) (*signal.Metrics, error) {
	m.calls.Add(1)
	return m.fetchFunc(ctx, req)
}

func (m *mockProvider) Calls() int { return int(m.calls.Load()) }

type mockSynthesizer struct {
	synthesizeFunc func(ctx context.Context, in synth.Input) synth.Outcome

	mu     sync.Mutex
	inputs []synth.Input
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, in synth.Input) synth.Outcome {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()
	return m.synthesizeFunc(ctx, in)
}

func (m *mockSynthesizer) Inputs() []synth.Input {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]synth.Input(nil), m.inputs...)
}

// storetestRunner adapts the in-memory database to orchestrator.TxRunner.
type storetestRunner struct {
	db *storetest.DB
}

func (r storetestRunner) WithTx(ctx context.Context, fn func(stores orchestrator.StoreProvider) error) error {
	return r.db.WithTx(ctx, func(tx *storetest.Tx) error {
		return fn(tx)
	})
}

// hookedRunner calls before ahead of every transaction.
type hookedRunner struct {
	next   orchestrator.TxRunner
	before func(ctx context.Context)
}

func (r hookedRunner) WithTx(ctx context.Context, fn func(stores orchestrator.StoreProvider) error) error {
	if r.before != nil {
		r.before(ctx)
	}
	return r.next.WithTx(ctx, fn)
}

type analysisCall struct {
	kind   model.TargetKind
	status string
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []analysisCall
}

func (r *recordingObserver) Analysis(kind model.TargetKind, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, analysisCall{kind: kind, status: status})
}

func (r *recordingObserver) Calls() []analysisCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]analysisCall(nil), r.calls...)
}
