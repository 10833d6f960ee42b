package store

import (
	"context"
	"encoding/json"
	"fmt"

	"rankwise.app/analyst/core/db/queries"
	"rankwise.app/analyst/internal/model"
)

type memoryEntryStore struct {
	queries *queries.Queries
}

func newMemoryEntryStore(q *queries.Queries) MemoryEntryStore {
	return &memoryEntryStore{queries: q}
}

func (s *memoryEntryStore) Create(ctx context.Context, entry *model.MemoryEntry) error {
	observation, err := json.Marshal(entry.Observation)
	if err != nil {
		return fmt.Errorf("encoding observation: %w", err)
	}
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	_, err = s.queries.CreateMemoryEntry(ctx, queries.CreateMemoryEntryParams{
		ID:             entry.ID,
		Context:        entry.Context,
		Observation:    observation,
		Action:         entry.Action,
		Result:         result,
		CreatedAt:      timestamptz(entry.Timestamp),
		BaseImportance: entry.BaseImportance,
		Importance:     entry.Importance,
	})
	return err
}

func (s *memoryEntryStore) ListTop(ctx context.Context, limit int) ([]model.MemoryEntry, error) {
	rows, err := s.queries.ListMemoryEntries(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	result := make([]model.MemoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := model.MemoryEntry{
			ID:             row.ID,
			Context:        row.Context,
			Action:         row.Action,
			Timestamp:      row.CreatedAt.Time,
			BaseImportance: row.BaseImportance,
			Importance:     row.Importance,
		}
		if err := json.Unmarshal(row.Observation, &entry.Observation); err != nil {
			return nil, fmt.Errorf("decoding memory entry %d observation: %w", row.ID, err)
		}
		if err := json.Unmarshal(row.Result, &entry.Result); err != nil {
			return nil, fmt.Errorf("decoding memory entry %d result: %w", row.ID, err)
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *memoryEntryStore) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.queries.DeleteMemoryEntries(ctx, ids)
}

func (s *memoryEntryStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, fmt.Errorf("prune keep must be positive, got %d", keep)
	}
	n, err := s.queries.PruneMemoryEntries(ctx, int32(keep))
	return int(n), err
}

func (s *memoryEntryStore) UpdateImportance(ctx context.Context, importance map[int64]float64) error {
	if len(importance) == 0 {
		return nil
	}
	params := queries.UpdateMemoryImportanceParams{
		IDs:         make([]int64, 0, len(importance)),
		Importances: make([]float64, 0, len(importance)),
	}
	for entryID, score := range importance {
		params.IDs = append(params.IDs, entryID)
		params.Importances = append(params.Importances, score)
	}
	return s.queries.UpdateMemoryImportance(ctx, params)
}
