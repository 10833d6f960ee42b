package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const memoryColumns = `id, context, observation, action, result, created_at, base_importance, importance`

const createMemoryEntry = `
INSERT INTO memory_entries (id, context, observation, action, result, created_at, base_importance, importance)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + memoryColumns

type CreateMemoryEntryParams struct {
	ID             int64
	Context        string
	Observation    []byte
	Action         string
	Result         []byte
	CreatedAt      pgtype.Timestamptz
	BaseImportance float64
	Importance     float64
}

func (q *Queries) CreateMemoryEntry(ctx context.Context, arg CreateMemoryEntryParams) (MemoryEntry, error) {
	row := q.db.QueryRow(ctx, createMemoryEntry,
		arg.ID,
		arg.Context,
		arg.Observation,
		arg.Action,
		arg.Result,
		arg.CreatedAt,
		arg.BaseImportance,
		arg.Importance,
	)
	var i MemoryEntry
	err := row.Scan(&i.ID, &i.Context, &i.Observation, &i.Action, &i.Result, &i.CreatedAt, &i.BaseImportance, &i.Importance)
	return i, err
}

const listMemoryEntries = `
SELECT ` + memoryColumns + `
FROM memory_entries
ORDER BY importance DESC, created_at DESC, id DESC
LIMIT $1
`

func (q *Queries) ListMemoryEntries(ctx context.Context, limit int32) ([]MemoryEntry, error) {
	rows, err := q.db.Query(ctx, listMemoryEntries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MemoryEntry
	for rows.Next() {
		var i MemoryEntry
		if err := rows.Scan(&i.ID, &i.Context, &i.Observation, &i.Action, &i.Result, &i.CreatedAt, &i.BaseImportance, &i.Importance); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteMemoryEntries = `
DELETE FROM memory_entries
WHERE id = ANY($1::bigint[])
`

func (q *Queries) DeleteMemoryEntries(ctx context.Context, ids []int64) error {
	_, err := q.db.Exec(ctx, deleteMemoryEntries, ids)
	return err
}

const updateMemoryImportance = `
UPDATE memory_entries AS m
SET importance = u.importance
FROM unnest($1::bigint[], $2::double precision[]) AS u(id, importance)
WHERE m.id = u.id
`

type UpdateMemoryImportanceParams struct {
	IDs         []int64
	Importances []float64
}

func (q *Queries) UpdateMemoryImportance(ctx context.Context, arg UpdateMemoryImportanceParams) error {
	_, err := q.db.Exec(ctx, updateMemoryImportance, arg.IDs, arg.Importances)
	return err
}

const pruneMemoryEntries = `
DELETE FROM memory_entries
WHERE id NOT IN (
    SELECT id FROM memory_entries
    ORDER BY importance DESC, created_at DESC, id DESC
    LIMIT $1
)
`

// PruneMemoryEntries keeps the keep most important rows and deletes the rest.
func (q *Queries) PruneMemoryEntries(ctx context.Context, keep int32) (int64, error) {
	tag, err := q.db.Exec(ctx, pruneMemoryEntries, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
