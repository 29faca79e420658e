// Package memstore is an in-memory stand-in for the Postgres store. It
// serialises transactions behind one mutex and applies a transaction's
// writes only when fn returns nil, which is enough to exercise the locking
// and rollback contracts the services rely on.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type state struct {
	accounts    map[uuid.UUID]repository.Account
	entries     []repository.LedgerEntry
	orders      []repository.Order
	reports     []repository.PaymentReport
	withdrawals []repository.WithdrawalRequest
	audit       []repository.AuditLog
	idem        map[string]repository.IdempotencyKey
}

func (s *state) clone() *state {
	c := &state{
		accounts:    make(map[uuid.UUID]repository.Account, len(s.accounts)),
		entries:     append([]repository.LedgerEntry(nil), s.entries...),
		orders:      append([]repository.Order(nil), s.orders...),
		reports:     append([]repository.PaymentReport(nil), s.reports...),
		withdrawals: append([]repository.WithdrawalRequest(nil), s.withdrawals...),
		audit:       append([]repository.AuditLog(nil), s.audit...),
		idem:        make(map[string]repository.IdempotencyKey, len(s.idem)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.idem {
		c.idem[k] = v
	}
	return c
}

// Store implements the service QueryStore contract in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	clock time.Time

	hooksMu sync.Mutex
	failOn  map[string]error
}

func New() *Store {
	return &Store{
		state: &state{
			accounts: make(map[uuid.UUID]repository.Account),
			idem:     make(map[string]repository.IdempotencyKey),
		},
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		failOn: make(map[string]error),
	}
}

// Queries returns a query set that operates on committed state.
func (s *Store) Queries() repository.Querier {
	return &querier{store: s}
}

// RunInTx runs fn against a private copy of the state and publishes it only
// when fn succeeds.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, q repository.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(context.WithoutCancel(ctx), &querier{store: s, tx: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// FailOn makes every later call of the named Querier method return err.
// A nil err clears the hook.
func (s *Store) FailOn(method string, err error) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	if err == nil {
		delete(s.failOn, method)
		return
	}
	s.failOn[method] = err
}

func (s *Store) hook(method string) error {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	return s.failOn[method]
}

// tick returns a strictly increasing timestamp. Callers hold mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// SeedAccount creates an active account. A positive opening balance is
// posted as a DEPOSIT entry so balance and entries stay in agreement.
func (s *Store) SeedAccount(id uuid.UUID, cents int64) repository.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	acct := repository.Account{
		ID:        id,
		Currency:  domain.DefaultReferenceCurrency,
		Status:    domain.AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cents > 0 {
		acct.Balance = cents
		acct.LastSeq = 1
		s.state.entries = append(s.state.entries, repository.LedgerEntry{
			ID:        uuid.New(),
			AccountID: id,
			Seq:       1,
			Amount:    cents,
			Kind:      string(domain.EntryDeposit),
			Note:      "opening balance",
			CreatedAt: now,
		})
	}
	s.state.accounts[id] = acct
	return acct
}

// SetAccountStatus flips an account between ACTIVE and INACTIVE.
func (s *Store) SetAccountStatus(id uuid.UUID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.state.accounts[id]; ok {
		acct.Status = status
		s.state.accounts[id] = acct
	}
}

// ForceBalance overwrites the stored balance without writing an entry. It
// exists to exercise reconciliation.
func (s *Store) ForceBalance(id uuid.UUID, cents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.state.accounts[id]; ok {
		acct.Balance = cents
		s.state.accounts[id] = acct
	}
}

func (s *Store) Account(id uuid.UUID) (repository.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.state.accounts[id]
	return acct, ok
}

// Entries returns an account's entries in sequence order.
func (s *Store) Entries(accountID uuid.UUID) []repository.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.LedgerEntry
	for _, e := range s.state.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// EntrySum is the signed sum of an account's entries.
func (s *Store) EntrySum(accountID uuid.UUID) int64 {
	var sum int64
	for _, e := range s.Entries(accountID) {
		sum += e.Amount
	}
	return sum
}

func (s *Store) Orders() []repository.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.Order(nil), s.state.orders...)
}

func (s *Store) AuditLog() []repository.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.AuditLog(nil), s.state.audit...)
}

func noRows() error {
	return pgx.ErrNoRows
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func checkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23514", ConstraintName: constraint, Message: "new row violates check constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "insert or update violates foreign key constraint"}
}
