package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"rankwise.app/analyst/core/db/queries"
	"rankwise.app/analyst/internal/model"
)

const defaultSnapshotLimit = 20

type snapshotStore struct {
	queries *queries.Queries
}

func newSnapshotStore(q *queries.Queries) SnapshotStore {
	return &snapshotStore{queries: q}
}

func (s *snapshotStore) Create(ctx context.Context, snapshot *model.Snapshot) error {
	metrics, err := json.Marshal(snapshot.Metrics)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	recs, err := json.Marshal(snapshot.Recommendations)
	if err != nil {
		return fmt.Errorf("encoding recommendations: %w", err)
	}
	warnings := snapshot.Warnings
	if warnings == nil {
		warnings = []model.Warning{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("encoding warnings: %w", err)
	}

	row, err := s.queries.CreateSnapshot(ctx, queries.CreateSnapshotParams{
		ID:              snapshot.ID,
		TargetID:        snapshot.TargetID,
		AnalyzedAt:      timestamptz(snapshot.AnalyzedAt),
		Status:          string(snapshot.Status),
		Metrics:         metrics,
		Recommendations: recs,
		Warnings:        warningsJSON,
	})
	if err != nil {
		return err
	}

	created, err := toSnapshotModel(row)
	if err != nil {
		return err
	}
	*snapshot = *created
	return nil
}

func (s *snapshotStore) ListByTarget(ctx context.Context, targetID int64, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	rows, err := s.queries.ListSnapshotsByTarget(ctx, queries.ListSnapshotsByTargetParams{
		TargetID: targetID,
		Limit:    int32(limit),
	})
	if err != nil {
		return nil, err
	}

	result := make([]model.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := toSnapshotModel(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *snap)
	}
	return result, nil
}

func (s *snapshotStore) GetLatest(ctx context.Context, targetID int64) (*model.Snapshot, error) {
	row, err := s.queries.GetLatestSnapshot(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toSnapshotModel(row)
}

func toSnapshotModel(row queries.AnalysisSnapshot) (*model.Snapshot, error) {
	snap := &model.Snapshot{
		ID:         row.ID,
		TargetID:   row.TargetID,
		AnalyzedAt: row.AnalyzedAt.Time,
		Status:     model.AnalysisStatus(row.Status),
	}
	if err := json.Unmarshal(row.Metrics, &snap.Metrics); err != nil {
		return nil, fmt.Errorf("decoding snapshot %d metrics: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Recommendations, &snap.Recommendations); err != nil {
		return nil, fmt.Errorf("decoding snapshot %d recommendations: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Warnings, &snap.Warnings); err != nil {
		return nil, fmt.Errorf("decoding snapshot %d warnings: %w", row.ID, err)
	}
	return snap, nil
}
