package handler_test

import (
	"context"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/service"
)

type mockAnalysisService struct {
	analyzeFn func(ctx context.Context, target string, kind model.TargetKind) (*model.AnalysisResult, error)
	enqueueFn func(ctx context.Context, target string, kind model.TargetKind, traceID string) (*service.Enqueued, error)
}

func (m *mockAnalysisService) Analyze(ctx context.Context, target string, kind model.TargetKind) (*model.AnalysisResult, error) {
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, target, kind)
	}
	return nil, nil
}

func (m *mockAnalysisService) Enqueue(ctx context.Context, target string, kind model.TargetKind, traceID string) (*service.Enqueued, error) {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, target, kind, traceID)
	}
	return nil, nil
}

type mockTargetService struct {
	getFn       func(ctx context.Context, key string) (*model.Target, error)
	snapshotsFn func(ctx context.Context, key string, limit int) ([]model.Snapshot, error)
	keywordsFn  func(ctx context.Context, key string) ([]model.KeywordRecord, error)
}

func (m *mockTargetService) Get(ctx context.Context, key string) (*model.Target, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockTargetService) Snapshots(ctx context.Context, key string, limit int) ([]model.Snapshot, error) {
	if m.snapshotsFn != nil {
		return m.snapshotsFn(ctx, key, limit)
	}
	return nil, nil
}

func (m *mockTargetService) Keywords(ctx context.Context, key string) ([]model.KeywordRecord, error) {
	if m.keywordsFn != nil {
		return m.keywordsFn(ctx, key)
	}
	return nil, nil
}

type mockMemoryService struct {
	recallFn func(ctx context.Context, contextLabel string, limit int) []model.MemoryEntry
}

func (m *mockMemoryService) Recall(ctx context.Context, contextLabel string, limit int) []model.MemoryEntry {
	if m.recallFn != nil {
		return m.recallFn(ctx, contextLabel, limit)
	}
	return nil
}
