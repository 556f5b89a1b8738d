package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL data access layer. Read paths go straight
// through the pool; mutations that must be atomic run inside a
// Transaction obtained from Begin.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (*Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

// Transaction wraps a pgx transaction. Rollback after Commit is a no-op,
// so callers can `defer tx.Rollback(ctx)` unconditionally.
type Transaction struct {
	tx       pgx.Tx
	finished bool
}

// Commit commits the transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.finished {
		return fmt.Errorf("transaction already finished")
	}
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.finished = true
	return nil
}

// Rollback rolls back the transaction if it has not been committed.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Rollback(ctx)
}
