package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertTarget = `
INSERT INTO analysis_targets (id, target_key, kind)
VALUES ($1, $2, $3)
ON CONFLICT (target_key) DO UPDATE SET target_key = EXCLUDED.target_key
RETURNING id, target_key, kind, created_at, last_analyzed_at
`

type UpsertTargetParams struct {
	ID        int64
	TargetKey string
	Kind      string
}

// UpsertTarget returns the existing row for the key, or inserts one with the
// given id. The no-op update makes RETURNING yield the row in both cases.
func (q *Queries) UpsertTarget(ctx context.Context, arg UpsertTargetParams) (AnalysisTarget, error) {
	row := q.db.QueryRow(ctx, upsertTarget, arg.ID, arg.TargetKey, arg.Kind)
	var i AnalysisTarget
	err := row.Scan(&i.ID, &i.TargetKey, &i.Kind, &i.CreatedAt, &i.LastAnalyzedAt)
	return i, err
}

const getTargetByKey = `
SELECT id, target_key, kind, created_at, last_analyzed_at
FROM analysis_targets
WHERE target_key = $1
`

func (q *Queries) GetTargetByKey(ctx context.Context, targetKey string) (AnalysisTarget, error) {
	row := q.db.QueryRow(ctx, getTargetByKey, targetKey)
	var i AnalysisTarget
	err := row.Scan(&i.ID, &i.TargetKey, &i.Kind, &i.CreatedAt, &i.LastAnalyzedAt)
	return i, err
}

const markTargetAnalyzed = `
UPDATE analysis_targets
SET last_analyzed_at = $2
WHERE id = $1
`

type MarkTargetAnalyzedParams struct {
	ID             int64
	LastAnalyzedAt pgtype.Timestamptz
}

// MarkTargetAnalyzed returns the number of rows touched.
func (q *Queries) MarkTargetAnalyzed(ctx context.Context, arg MarkTargetAnalyzedParams) (int64, error) {
	tag, err := q.db.Exec(ctx, markTargetAnalyzed, arg.ID, arg.LastAnalyzedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
