package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// Volume and difficulty keep their previous value when the new observation
// did not measure them; position always reflects the latest observation.
const upsertKeyword = `
INSERT INTO keyword_records (id, target_id, keyword, search_volume, difficulty, position, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (target_id, keyword) DO UPDATE SET
    search_volume = COALESCE(EXCLUDED.search_volume, keyword_records.search_volume),
    difficulty    = COALESCE(EXCLUDED.difficulty, keyword_records.difficulty),
    position      = EXCLUDED.position,
    last_updated  = EXCLUDED.last_updated
RETURNING id, target_id, keyword, search_volume, difficulty, position, last_updated
`

type UpsertKeywordParams struct {
	ID           int64
	TargetID     int64
	Keyword      string
	SearchVolume *int32
	Difficulty   *float64
	Position     *int32
	LastUpdated  pgtype.Timestamptz
}

func (q *Queries) UpsertKeyword(ctx context.Context, arg UpsertKeywordParams) (KeywordRecord, error) {
	row := q.db.QueryRow(ctx, upsertKeyword,
		arg.ID,
		arg.TargetID,
		arg.Keyword,
		arg.SearchVolume,
		arg.Difficulty,
		arg.Position,
		arg.LastUpdated,
	)
	var i KeywordRecord
	err := row.Scan(&i.ID, &i.TargetID, &i.Keyword, &i.SearchVolume, &i.Difficulty, &i.Position, &i.LastUpdated)
	return i, err
}

const listKeywordsByTarget = `
SELECT id, target_id, keyword, search_volume, difficulty, position, last_updated
FROM keyword_records
WHERE target_id = $1
ORDER BY position ASC NULLS LAST, keyword ASC
`

func (q *Queries) ListKeywordsByTarget(ctx context.Context, targetID int64) ([]KeywordRecord, error) {
	rows, err := q.db.Query(ctx, listKeywordsByTarget, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []KeywordRecord
	for rows.Next() {
		var i KeywordRecord
		if err := rows.Scan(&i.ID, &i.TargetID, &i.Keyword, &i.SearchVolume, &i.Difficulty, &i.Position, &i.LastUpdated); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
