package service

import (
	"context"

	"github.com/ayo6706/wallet-ledger/internal/repository"
)

// QueryStore defines the minimal data access contract required by services.
type QueryStore interface {
	Queries() repository.Querier
	RunInTx(ctx context.Context, fn func(ctx context.Context, q repository.Querier) error) error
}
