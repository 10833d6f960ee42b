package orchestrator

import (
	"context"

	"rankwise.app/analyst/core/db"
	"rankwise.app/analyst/core/db/queries"
	"rankwise.app/analyst/internal/store"
)

// StoreProvider exposes the stores one analysis writes in its transaction.
// This is a local interface to avoid import cycles (service → orchestrator).
type StoreProvider interface {
	Targets() store.TargetStore
	Snapshots() store.SnapshotStore
	Keywords() store.KeywordStore
	MemoryEntries() store.MemoryEntryStore
}

// TxRunner runs functions within a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner creates a TxRunner backed by the given database.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q *queries.Queries) error {
		return fn(store.NewStores(q))
	})
}
