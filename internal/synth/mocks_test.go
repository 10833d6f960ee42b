package synth_test

import (
	"context"
	"sync"
	"time"

	"rankwise.app/analyst/common/llm"
)

type mockLLMClient struct {
	completeFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	mu       sync.Mutex
	requests []llm.Request
}

func (m *mockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.completeFunc(ctx, req)
}

func (m *mockLLMClient) Model() string { return "mock-model" }

func (m *mockLLMClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

func replying(content string) func(context.Context, llm.Request) (*llm.Response, error) {
	return func(context.Context, llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: content}, nil
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) Synthesis(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}
