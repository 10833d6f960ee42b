package service

import (
	"context"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
)

// Recaller is the read side of *memory.Memory.
type Recaller interface {
	Recall(contextLabel string, limit int) []model.MemoryEntry
}

type MemoryService interface {
	// Recall returns the most important entries for contextLabel, or across
	// all contexts when it is empty.
	Recall(ctx context.Context, contextLabel string, limit int) []model.MemoryEntry
}

type memoryService struct {
	recaller Recaller
}

func NewMemoryService(recaller Recaller) MemoryService {
	return &memoryService{recaller: recaller}
}

func (s *memoryService) Recall(_ context.Context, contextLabel string, limit int) []model.MemoryEntry {
	// Labels are target keys; accept the same raw forms analyses do.
	if contextLabel != "" {
		if spec, err := orchestrator.ParseTarget(contextLabel, ""); err == nil {
			contextLabel = spec.Key
		}
	}
	return s.recaller.Recall(contextLabel, limit)
}
