package store

import (
	"context"
	"errors"
	"time"

	"rankwise.app/analyst/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// TargetStore defines the contract for analysis target data access
type TargetStore interface {
	// GetOrCreate returns the target for key, inserting it with a fresh id on
	// first sight. Concurrent callers with the same key get the same row.
	GetOrCreate(ctx context.Context, key string, kind model.TargetKind) (*model.Target, error)
	GetByKey(ctx context.Context, key string) (*model.Target, error)
	MarkAnalyzed(ctx context.Context, id int64, at time.Time) error
}

// SnapshotStore defines the contract for snapshot data access. Snapshots are
// append-only.
type SnapshotStore interface {
	Create(ctx context.Context, snapshot *model.Snapshot) error
	ListByTarget(ctx context.Context, targetID int64, limit int) ([]model.Snapshot, error)
	GetLatest(ctx context.Context, targetID int64) (*model.Snapshot, error)
}

// KeywordStore defines the contract for keyword record data access
type KeywordStore interface {
	// Upsert inserts or updates the record in place by (target, keyword).
	Upsert(ctx context.Context, record *model.KeywordRecord) error
	ListByTarget(ctx context.Context, targetID int64) ([]model.KeywordRecord, error)
}

// MemoryEntryStore defines the contract for persisted memory entries
type MemoryEntryStore interface {
	Create(ctx context.Context, entry *model.MemoryEntry) error
	// ListTop returns at most limit entries, most important first.
	ListTop(ctx context.Context, limit int) ([]model.MemoryEntry, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
	// Prune deletes every entry outside the keep most important, ordered
	// like ListTop, and returns how many it removed.
	Prune(ctx context.Context, keep int) (int, error)
	UpdateImportance(ctx context.Context, importance map[int64]float64) error
}
