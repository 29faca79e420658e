package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTxTimeout bounds every transaction started by RunInTx.
const DefaultTxTimeout = 5 * time.Second

// Store provides access to queries and transaction scoping.
type Store struct {
	db        *pgxpool.Pool
	queries   *Queries
	txTimeout time.Duration
}

// NewStore creates a store wrapper around a pgx connection pool.
func NewStore(db *pgxpool.Pool, txTimeout time.Duration) *Store {
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}
	return &Store{
		db:        db,
		queries:   New(db),
		txTimeout: txTimeout,
	}
}

// Queries returns the non-transactional query set.
func (s *Store) Queries() Querier {
	return s.queries
}

// RunInTx executes fn within a database transaction. Once started, the
// transaction ignores the caller's cancellation; fn receives the detached
// context and must use it for every query.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.txTimeout)
	defer cancel()

	tx, err := s.db.Begin(txCtx)
	if err != nil {
		return timeoutOr(txCtx, fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(context.WithoutCancel(txCtx))

	if err := fn(txCtx, s.queries.WithTx(tx)); err != nil {
		return timeoutOr(txCtx, err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return timeoutOr(txCtx, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}
