package service

import (
	"context"
	"errors"
	"fmt"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/queue"
)

// ErrAsyncUnavailable is returned by Enqueue when no queue is configured.
var ErrAsyncUnavailable = errors.New("async analysis is not configured")

// Analyzer runs one analysis; *orchestrator.Orchestrator satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, raw string, kind model.TargetKind) (*model.AnalysisResult, error)
}

// Enqueued identifies an accepted async request.
type Enqueued struct {
	TargetKey string
	Kind      model.TargetKind
	MessageID string
}

type AnalysisService interface {
	Analyze(ctx context.Context, target string, kind model.TargetKind) (*model.AnalysisResult, error)
	// Enqueue validates and normalizes target, then hands it to the worker.
	Enqueue(ctx context.Context, target string, kind model.TargetKind, traceID string) (*Enqueued, error)
}

type analysisService struct {
	analyzer Analyzer
	producer queue.Producer
}

// NewAnalysisService builds the service. producer may be nil, in which case
// Enqueue fails with ErrAsyncUnavailable.
func NewAnalysisService(analyzer Analyzer, producer queue.Producer) AnalysisService {
	return &analysisService{analyzer: analyzer, producer: producer}
}

func (s *analysisService) Analyze(ctx context.Context, target string, kind model.TargetKind) (*model.AnalysisResult, error) {
	return s.analyzer.Analyze(ctx, target, kind)
}

func (s *analysisService) Enqueue(ctx context.Context, target string, kind model.TargetKind, traceID string) (*Enqueued, error) {
	spec, err := orchestrator.ParseTarget(target, kind)
	if err != nil {
		return nil, err
	}
	if s.producer == nil {
		return nil, ErrAsyncUnavailable
	}

	id, err := s.producer.Enqueue(ctx, queue.Task{
		Target:  spec.Key,
		Kind:    spec.Kind,
		Attempt: 1,
		TraceID: traceID,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueueing %s: %w", spec.Key, err)
	}

	return &Enqueued{TargetKey: spec.Key, Kind: spec.Kind, MessageID: id}, nil
}
