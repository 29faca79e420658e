package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	storeReadTimeout = 5 * time.Second
	defaultPageSize  = 50
	maxPageSize      = 500
)

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

// requirePending turns a status-guarded UPDATE that matched nothing into a
// conflict: another reviewer got there first.
func requirePending(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%w: %s matched no pending row", domain.ErrConflict, operation)
	}
	return nil
}

func readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeReadTimeout)
}

func notFoundOr(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

func pageBounds(limit, offset int) (int32, int32, error) {
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit < 0 || limit > maxPageSize {
		return 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidRequest, maxPageSize)
	}
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidRequest)
	}
	return int32(limit), int32(offset), nil
}

func textParam(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// publish hands events to the publisher after commit. Failures are logged
// and never returned.
func publish(ctx context.Context, p events.Publisher, evts ...events.Event) {
	if p == nil || len(evts) == 0 {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), evts...); err != nil {
		zap.L().Warn("publish ledger events", zap.Int("events", len(evts)), zap.Error(err))
	}
}
