package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const snapshotColumns = `id, target_id, analyzed_at, status, metrics, recommendations, warnings`

const createSnapshot = `
INSERT INTO analysis_snapshots (id, target_id, analyzed_at, status, metrics, recommendations, warnings)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + snapshotColumns

type CreateSnapshotParams struct {
	ID              int64
	TargetID        int64
	AnalyzedAt      pgtype.Timestamptz
	Status          string
	Metrics         []byte
	Recommendations []byte
	Warnings        []byte
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (AnalysisSnapshot, error) {
	row := q.db.QueryRow(ctx, createSnapshot,
		arg.ID,
		arg.TargetID,
		arg.AnalyzedAt,
		arg.Status,
		arg.Metrics,
		arg.Recommendations,
		arg.Warnings,
	)
	var i AnalysisSnapshot
	err := row.Scan(&i.ID, &i.TargetID, &i.AnalyzedAt, &i.Status, &i.Metrics, &i.Recommendations, &i.Warnings)
	return i, err
}

const listSnapshotsByTarget = `
SELECT ` + snapshotColumns + `
FROM analysis_snapshots
WHERE target_id = $1
ORDER BY analyzed_at DESC, id DESC
LIMIT $2
`

type ListSnapshotsByTargetParams struct {
	TargetID int64
	Limit    int32
}

func (q *Queries) ListSnapshotsByTarget(ctx context.Context, arg ListSnapshotsByTargetParams) ([]AnalysisSnapshot, error) {
	rows, err := q.db.Query(ctx, listSnapshotsByTarget, arg.TargetID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AnalysisSnapshot
	for rows.Next() {
		var i AnalysisSnapshot
		if err := rows.Scan(&i.ID, &i.TargetID, &i.AnalyzedAt, &i.Status, &i.Metrics, &i.Recommendations, &i.Warnings); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getLatestSnapshot = `
SELECT ` + snapshotColumns + `
FROM analysis_snapshots
WHERE target_id = $1
ORDER BY analyzed_at DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLatestSnapshot(ctx context.Context, targetID int64) (AnalysisSnapshot, error) {
	row := q.db.QueryRow(ctx, getLatestSnapshot, targetID)
	var i AnalysisSnapshot
	err := row.Scan(&i.ID, &i.TargetID, &i.AnalyzedAt, &i.Status, &i.Metrics, &i.Recommendations, &i.Warnings)
	return i, err
}
