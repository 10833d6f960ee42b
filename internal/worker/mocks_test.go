package worker_test

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/queue"
)

type settled struct {
	action string // ack, requeue, dlq
	id     string
	reason string
}

type mockConsumer struct {
	mu       sync.Mutex
	batches  [][]queue.Message
	readErr  error
	ackErr   error
	settled  []settled
	pending  []redis.XPendingExt
	claimed  map[string]redis.XMessage
	claimErr error
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	m.mu.Lock()
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return nil, err
	}
	if len(m.batches) > 0 {
		batch := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return batch, nil
	}
	m.mu.Unlock()

	// Mimic a blocking XREADGROUP with nothing new.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (m *mockConsumer) record(s settled) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settled = append(m.settled, s)
}

func (m *mockConsumer) Ack(_ context.Context, msg queue.Message) error {
	m.record(settled{action: "ack", id: msg.ID})
	return m.ackErr
}

func (m *mockConsumer) Requeue(_ context.Context, msg queue.Message, errMsg string) error {
	m.record(settled{action: "requeue", id: msg.ID, reason: errMsg})
	return nil
}

func (m *mockConsumer) SendDLQ(_ context.Context, msg queue.Message, errMsg string) error {
	m.record(settled{action: "dlq", id: msg.ID, reason: errMsg})
	return nil
}

func (m *mockConsumer) Pending(context.Context, time.Duration, int64) ([]redis.XPendingExt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, nil
}

func (m *mockConsumer) Claim(_ context.Context, _ time.Duration, ids ...string) ([]redis.XMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	var out []redis.XMessage
	for _, id := range ids {
		if msg, ok := m.claimed[id]; ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockConsumer) Settled() []settled {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]settled(nil), m.settled...)
}

type mockAnalyzer struct {
	mu          sync.Mutex
	analyzeFunc func(ctx context.Context, raw string, kind model.TargetKind) (*model.AnalysisResult, error)
	targets     []string
}

func (m *mockAnalyzer) Analyze(ctx context.Context, raw string, kind model.TargetKind) (*model.AnalysisResult, error) {
	m.mu.Lock()
	m.targets = append(m.targets, raw)
	m.mu.Unlock()
	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, raw, kind)
	}
	return &model.AnalysisResult{TargetKey: raw, Kind: kind, Status: model.StatusOK, SnapshotID: 1}, nil
}

func (m *mockAnalyzer) Targets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.targets...)
}
