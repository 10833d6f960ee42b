package service

import (
	"context"
	"fmt"

	"rankwise.app/analyst/internal/model"
	"rankwise.app/analyst/internal/orchestrator"
	"rankwise.app/analyst/internal/store"
)

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 100
)

// ReadStores is the read side of the analysis store.
type ReadStores interface {
	Targets() store.TargetStore
	Snapshots() store.SnapshotStore
	Keywords() store.KeywordStore
}

// TargetService reads targets and their history. Keys are accepted in any
// form that normalizes to a stored key, e.g. "https://www.Bakery.test/".
type TargetService interface {
	Get(ctx context.Context, key string) (*model.Target, error)
	Snapshots(ctx context.Context, key string, limit int) ([]model.Snapshot, error)
	Keywords(ctx context.Context, key string) ([]model.KeywordRecord, error)
}

type targetService struct {
	stores ReadStores
}

func NewTargetService(stores ReadStores) TargetService {
	return &targetService{stores: stores}
}

func (s *targetService) Get(ctx context.Context, key string) (*model.Target, error) {
	spec, err := orchestrator.ParseTarget(key, "")
	if err != nil {
		return nil, err
	}
	target, err := s.stores.Targets().GetByKey(ctx, spec.Key)
	if err != nil {
		return nil, fmt.Errorf("getting target %s: %w", spec.Key, err)
	}
	return target, nil
}

func (s *targetService) Snapshots(ctx context.Context, key string, limit int) ([]model.Snapshot, error) {
	target, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	limit = min(limit, maxSnapshotLimit)

	snapshots, err := s.stores.Snapshots().ListByTarget(ctx, target.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	if snapshots == nil {
		snapshots = []model.Snapshot{}
	}
	return snapshots, nil
}

func (s *targetService) Keywords(ctx context.Context, key string) ([]model.KeywordRecord, error) {
	target, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	records, err := s.stores.Keywords().ListByTarget(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	if records == nil {
		records = []model.KeywordRecord{}
	}
	return records, nil
}
