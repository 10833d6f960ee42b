package store

import (
	"rankwise.app/analyst/core/db/queries"
)

type Stores struct {
	queries *queries.Queries
}

func NewStores(q *queries.Queries) *Stores {
	return &Stores{queries: q}
}

func (s *Stores) Targets() TargetStore {
	return newTargetStore(s.queries)
}

func (s *Stores) Snapshots() SnapshotStore {
	return newSnapshotStore(s.queries)
}

func (s *Stores) Keywords() KeywordStore {
	return newKeywordStore(s.queries)
}

func (s *Stores) MemoryEntries() MemoryEntryStore {
	return newMemoryEntryStore(s.queries)
}
