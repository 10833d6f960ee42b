// Package storetest is an in-process implementation of the store contracts
// with transaction semantics, for tests of packages that persist analyses.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"rankwise.app/analyst/common/id"
	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/store"
)

type state struct {
	targets   map[int64]model.Target
	byKey     map[string]int64
	snapshots []model.Snapshot
	keywords  map[int64]model.KeywordRecord
	memory    map[int64]model.MemoryEntry
}

func newState() *state {
	return &state{
		targets:  map[int64]model.Target{},
		byKey:    map[string]int64{},
		keywords: map[int64]model.KeywordRecord{},
		memory:   map[int64]model.MemoryEntry{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.targets {
		c.targets[k] = v
	}
	for k, v := range s.byKey {
		c.byKey[k] = v
	}
	c.snapshots = append(c.snapshots, s.snapshots...)
	for k, v := range s.keywords {
		c.keywords[k] = v
	}
	for k, v := range s.memory {
		c.memory[k] = v
	}
	return c
}

// DB holds committed state. Operations outside WithTx commit immediately.
type DB struct {
	mu    sync.Mutex
	state *state

	// Fail, when set, is consulted before every operation; a non-nil return
	// fails it. Ops are named "<store>.<method>", e.g. "snapshots.create".
	Fail func(op string) error
}

func New() *DB {
	return &DB{state: newState()}
}

// Tx exposes stores bound to one transaction.
type Tx struct {
	*stores
}

// WithTx runs fn against a private copy of the state and publishes it only
// if fn returns nil. Transactions are serialized.
func (d *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	draft := d.state.clone()
	tx := &Tx{stores: &stores{db: d, st: func() *state { return draft }, lock: func() func() { return func() {} }}}
	if err := fn(tx); err != nil {
		return err
	}
	d.state = draft
	return nil
}

func (d *DB) auto() *stores {
	return &stores{
		db: d,
		st: func() *state { return d.state },
		lock: func() func() {
			d.mu.Lock()
			return d.mu.Unlock
		},
	}
}

func (d *DB) Targets() store.TargetStore            { return targetView{d.auto()} }
func (d *DB) Snapshots() store.SnapshotStore        { return snapshotView{d.auto()} }
func (d *DB) Keywords() store.KeywordStore          { return keywordView{d.auto()} }
func (d *DB) MemoryEntries() store.MemoryEntryStore { return memoryView{d.auto()} }

// SnapshotCount is the number of committed snapshots for a target.
func (d *DB) SnapshotCount(targetID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.state.snapshots {
		if s.TargetID == targetID {
			n++
		}
	}
	return n
}

// TargetCount is the number of committed targets.
func (d *DB) TargetCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.state.targets)
}

// MemoryCount is the number of committed memory entries.
func (d *DB) MemoryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.state.memory)
}

type stores struct {
	db   *DB
	st   func() *state
	lock func() (unlock func())
}

func (s *stores) fail(op string) error {
	if s.db.Fail == nil {
		return nil
	}
	return s.db.Fail(op)
}

func (s *stores) Targets() store.TargetStore            { return targetView{s} }
func (s *stores) Snapshots() store.SnapshotStore        { return snapshotView{s} }
func (s *stores) Keywords() store.KeywordStore          { return keywordView{s} }
func (s *stores) MemoryEntries() store.MemoryEntryStore { return memoryView{s} }

type targetView struct{ *stores }

func (v targetView) GetOrCreate(_ context.Context, key string, kind model.TargetKind) (*model.Target, error) {
	if err := v.fail("targets.get_or_create"); err != nil {
		return nil, err
	}
	defer v.lock()()
	st := v.st()
	if tid, ok := st.byKey[key]; ok {
		t := st.targets[tid]
		return &t, nil
	}
	t := model.Target{ID: id.New(), Key: key, Kind: kind, CreatedAt: time.Now()}
	st.targets[t.ID] = t
	st.byKey[key] = t.ID
	return &t, nil
}

func (v targetView) GetByKey(_ context.Context, key string) (*model.Target, error) {
	if err := v.fail("targets.get_by_key"); err != nil {
		return nil, err
	}
	defer v.lock()()
	st := v.st()
	tid, ok := st.byKey[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	t := st.targets[tid]
	return &t, nil
}

func (v targetView) MarkAnalyzed(_ context.Context, targetID int64, at time.Time) error {
	if err := v.fail("targets.mark_analyzed"); err != nil {
		return err
	}
	defer v.lock()()
	st := v.st()
	t, ok := st.targets[targetID]
	if !ok {
		return store.ErrNotFound
	}
	t.LastAnalyzedAt = &at
	st.targets[targetID] = t
	return nil
}

type snapshotView struct{ *stores }

func (v snapshotView) Create(_ context.Context, snapshot *model.Snapshot) error {
	if err := v.fail("snapshots.create"); err != nil {
		return err
	}
	defer v.lock()()
	st := v.st()
	if _, ok := st.targets[snapshot.TargetID]; !ok {
		return store.ErrNotFound
	}
	// Store a deep copy so later caller mutations cannot rewrite history.
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	var stored model.Snapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	st.snapshots = append(st.snapshots, stored)
	return nil
}

func (v snapshotView) ListByTarget(_ context.Context, targetID int64, limit int) ([]model.Snapshot, error) {
	if err := v.fail("snapshots.list_by_target"); err != nil {
		return nil, err
	}
	defer v.lock()()
	var out []model.Snapshot
	for _, s := range v.st().snapshots {
		if s.TargetID == targetID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AnalyzedAt.After(out[j].AnalyzedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v snapshotView) GetLatest(ctx context.Context, targetID int64) (*model.Snapshot, error) {
	list, err := v.ListByTarget(ctx, targetID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrNotFound
	}
	return &list[0], nil
}

type keywordView struct{ *stores }

func (v keywordView) Upsert(_ context.Context, record *model.KeywordRecord) error {
	if err := v.fail("keywords.upsert"); err != nil {
		return err
	}
	defer v.lock()()
	st := v.st()
	if record.LastUpdated.IsZero() {
		record.LastUpdated = time.Now()
	}
	for rid, existing := range st.keywords {
		if existing.TargetID != record.TargetID || existing.Keyword != record.Keyword {
			continue
		}
		if record.SearchVolume != nil {
			existing.SearchVolume = record.SearchVolume
		}
		if record.Difficulty != nil {
			existing.Difficulty = record.Difficulty
		}
		existing.Position = record.Position
		existing.LastUpdated = record.LastUpdated
		st.keywords[rid] = existing
		*record = existing
		return nil
	}
	if record.ID == 0 {
		record.ID = id.New()
	}
	st.keywords[record.ID] = *record
	return nil
}

func (v keywordView) ListByTarget(_ context.Context, targetID int64) ([]model.KeywordRecord, error) {
	if err := v.fail("keywords.list_by_target"); err != nil {
		return nil, err
	}
	defer v.lock()()
	var out []model.KeywordRecord
	for _, r := range v.st().keywords {
		if r.TargetID == targetID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out, nil
}

type memoryView struct{ *stores }

func (v memoryView) Create(_ context.Context, entry *model.MemoryEntry) error {
	if err := v.fail("memory.create"); err != nil {
		return err
	}
	defer v.lock()()
	v.st().memory[entry.ID] = *entry
	return nil
}

func (v memoryView) ListTop(_ context.Context, limit int) ([]model.MemoryEntry, error) {
	if err := v.fail("memory.list_top"); err != nil {
		return nil, err
	}
	defer v.lock()()
	out := v.ranked()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ranked orders entries most important first, newest then highest id among
// equals. Callers hold the lock.
func (v memoryView) ranked() []model.MemoryEntry {
	out := make([]model.MemoryEntry, 0, len(v.st().memory))
	for _, e := range v.st().memory {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (v memoryView) Prune(_ context.Context, keep int) (int, error) {
	if err := v.fail("memory.prune"); err != nil {
		return 0, err
	}
	if keep <= 0 {
		return 0, fmt.Errorf("prune keep must be positive, got %d", keep)
	}
	defer v.lock()()
	ranked := v.ranked()
	if len(ranked) <= keep {
		return 0, nil
	}
	for _, e := range ranked[keep:] {
		delete(v.st().memory, e.ID)
	}
	return len(ranked) - keep, nil
}

func (v memoryView) DeleteByIDs(_ context.Context, ids []int64) error {
	if err := v.fail("memory.delete"); err != nil {
		return err
	}
	defer v.lock()()
	for _, eid := range ids {
		delete(v.st().memory, eid)
	}
	return nil
}

func (v memoryView) UpdateImportance(_ context.Context, importance map[int64]float64) error {
	if err := v.fail("memory.update_importance"); err != nil {
		return err
	}
	defer v.lock()()
	st := v.st()
	for eid, score := range importance {
		if e, ok := st.memory[eid]; ok {
			e.Importance = score
			st.memory[eid] = e
		}
	}
	return nil
}
