package store

import (
	"context"
	"time"

	"rankwise.app/analyst/common/id"
	"rankwise.app/analyst/core/db/queries"
	"rankwise.app/analyst/internal/model"
)

type keywordStore struct {
	queries *queries.Queries
}

func newKeywordStore(q *queries.Queries) KeywordStore {
	return &keywordStore{queries: q}
}

func (s *keywordStore) Upsert(ctx context.Context, record *model.KeywordRecord) error {
	if record.ID == 0 {
		record.ID = id.New()
	}
	if record.LastUpdated.IsZero() {
		record.LastUpdated = time.Now()
	}

	row, err := s.queries.UpsertKeyword(ctx, queries.UpsertKeywordParams{
		ID:           record.ID,
		TargetID:     record.TargetID,
		Keyword:      record.Keyword,
		SearchVolume: int32Ptr(record.SearchVolume),
		Difficulty:   record.Difficulty,
		Position:     int32Ptr(record.Position),
		LastUpdated:  timestamptz(record.LastUpdated),
	})
	if err != nil {
		return err
	}
	*record = toKeywordModel(row)
	return nil
}

func (s *keywordStore) ListByTarget(ctx context.Context, targetID int64) ([]model.KeywordRecord, error) {
	rows, err := s.queries.ListKeywordsByTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	result := make([]model.KeywordRecord, len(rows))
	for i, row := range rows {
		result[i] = toKeywordModel(row)
	}
	return result, nil
}

func toKeywordModel(row queries.KeywordRecord) model.KeywordRecord {
	return model.KeywordRecord{
		ID:           row.ID,
		TargetID:     row.TargetID,
		Keyword:      row.Keyword,
		SearchVolume: intPtr(row.SearchVolume),
		Difficulty:   row.Difficulty,
		Position:     intPtr(row.Position),
		LastUpdated:  row.LastUpdated.Time,
	}
}
