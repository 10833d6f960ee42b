package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rankwise.app/analyst/core/db/queries"
)

// DB wraps a pgxpool.Pool and provides transaction support.
type DB struct {
	pool *pgxpool.Pool
}

type Config struct {
	DSN string

	// Per replica; keep low behind PgBouncer.
	MaxConns int32

	MinConns int32
}

// New opens the pool and verifies connectivity.
func New(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = 2
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Queries returns a Queries bound to the pool, for non-transactional reads.
func (db *DB) Queries() *queries.Queries {
	return queries.New(db.pool)
}

// WithTx runs fn inside one transaction. fn's error rolls it back; a nil
// return commits.
//
//	err := db.WithTx(ctx, func(q *queries.Queries) error {
//	    if _, err := q.CreateSnapshot(ctx, ...); err != nil {
//	        return err
//	    }
//	    _, err := q.MarkTargetAnalyzed(ctx, ...)
//	    return err
//	})
func (db *DB) WithTx(ctx context.Context, fn func(q *queries.Queries) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	// no-op after commit
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(queries.New(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
