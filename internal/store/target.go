package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"rankwise.app/analyst/common/id"
	"rankwise.app/analyst/core/db/queries"
	"rankwise.app/analyst/internal/model"
)

type targetStore struct {
	queries *queries.Queries
}

func newTargetStore(q *queries.Queries) TargetStore {
	return &targetStore{queries: q}
}

func (s *targetStore) GetOrCreate(ctx context.Context, key string, kind model.TargetKind) (*model.Target, error) {
	row, err := s.queries.UpsertTarget(ctx, queries.UpsertTargetParams{
		ID:        id.New(),
		TargetKey: key,
		Kind:      string(kind),
	})
	if err != nil {
		return nil, err
	}
	return toTargetModel(row), nil
}

func (s *targetStore) GetByKey(ctx context.Context, key string) (*model.Target, error) {
	row, err := s.queries.GetTargetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTargetModel(row), nil
}

func (s *targetStore) MarkAnalyzed(ctx context.Context, targetID int64, at time.Time) error {
	n, err := s.queries.MarkTargetAnalyzed(ctx, queries.MarkTargetAnalyzedParams{
		ID:             targetID,
		LastAnalyzedAt: timestamptz(at),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func toTargetModel(row queries.AnalysisTarget) *model.Target {
	return &model.Target{
		ID:             row.ID,
		Key:            row.TargetKey,
		Kind:           model.TargetKind(row.Kind),
		CreatedAt:      row.CreatedAt.Time,
		LastAnalyzedAt: timePtr(row.LastAnalyzedAt),
	}
}
