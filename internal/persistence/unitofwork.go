package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuscare/triage-service/internal/repository"
)

// TxRunner executes a function against a transaction-bound Store. The
// function's error rolls the transaction back; nil commits it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(store *repository.Store) error) error
}

// PgxTxRunner runs units of work on a pgx pool with read-committed
// isolation; the relational store's row locking is the only concurrency
// guard for same-ticket operations.
type PgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewPgxTxRunner builds a runner over the pool.
func NewPgxTxRunner(pool *pgxpool.Pool) *PgxTxRunner {
	return &PgxTxRunner{pool: pool}
}

// InTx opens a transaction, hands a tx-bound Store to fn, and commits or
// rolls back based on fn's error.
func (r *PgxTxRunner) InTx(ctx context.Context, fn func(store *repository.Store) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	store := repository.NewStore(tx)
	if err := fn(store); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
