package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/events"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/observability"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService is the only writer of account balances and ledger entries.
// Every posting locks the account row, moves the balance and appends one
// entry inside the same transaction.
type LedgerService struct {
	store  QueryStore
	audit  *AuditService
	events events.Publisher
}

func NewLedgerService(store QueryStore, publisher events.Publisher) *LedgerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &LedgerService{store: store, audit: NewAuditService(store), events: publisher}
}

// Posting describes one balance movement. Amount is always positive; the
// entry kind decides the sign.
type Posting struct {
	AccountID     uuid.UUID
	Amount        int64
	Kind          domain.EntryKind
	Note          string
	ReferenceType string
	ReferenceID   *uuid.UUID
}

// EntryFilter narrows ListEntries. Zero values mean no filter.
type EntryFilter struct {
	Kind      domain.EntryKind
	Since     *time.Time
	Until     *time.Time
	BeforeSeq int64
	Limit     int
}

// EntryPage is one page of entries, newest first. NextBeforeSeq is set when
// more entries may follow.
type EntryPage struct {
	Entries       []models.LedgerEntry `json:"entries"`
	NextBeforeSeq *int64               `json:"next_before_seq,omitempty"`
}

// ManualCreditRequest adds funds to a wallet outside the deposit workflow.
type ManualCreditRequest struct {
	AccountID   uuid.UUID
	AmountCents int64
	Note        string
}

// AllEntriesFilter narrows ListAllEntries. Query matches note text and
// reference type case-insensitively, or an account or reference id exactly.
type AllEntriesFilter struct {
	Kind   domain.EntryKind
	Query  string
	Cursor string
	Limit  int
}

// AllEntriesPage is one page of the ledger-wide feed, newest first.
type AllEntriesPage struct {
	Entries    []models.LedgerEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

const maxNoteLength = 500

// Debit removes funds in its own transaction.
func (s *LedgerService) Debit(ctx context.Context, p Posting) (*models.LedgerEntry, error) {
	return s.postInTx(ctx, p, domain.DirectionDebit)
}

// Credit adds funds in its own transaction.
func (s *LedgerService) Credit(ctx context.Context, p Posting) (*models.LedgerEntry, error) {
	return s.postInTx(ctx, p, domain.DirectionCredit)
}

// ManualCredit posts an operator DEPOSIT credit and records who made it.
func (s *LedgerService) ManualCredit(ctx context.Context, actor authz.Actor, req ManualCreditRequest) (*models.LedgerEntry, error) {
	if err := authz.Require(actor, authz.ManageAccounts); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(req.Note)
	if note == "" {
		return nil, fmt.Errorf("%w: note is required for a manual credit", domain.ErrInvalidRequest)
	}
	if len(note) > maxNoteLength {
		return nil, fmt.Errorf("%w: note exceeds %d characters", domain.ErrInvalidRequest, maxNoteLength)
	}

	p := Posting{
		AccountID:     req.AccountID,
		Amount:        req.AmountCents,
		Kind:          domain.EntryDeposit,
		Note:          note,
		ReferenceType: domain.ReferenceManualCredit,
		ReferenceID:   &actor.ID,
	}
	var entry repository.LedgerEntry
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		var err error
		entry, err = s.creditTx(ctx, qtx, p)
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, auditEntityAccount, req.AccountID, &actor.ID, "credited", "", "",
			auditMetadata(map[string]any{"amount_cents": req.AmountCents, "entry_id": entry.ID, "note": note}))
	})
	if err != nil {
		s.failed(p, err)
		return nil, err
	}

	s.committed(ctx, entry)
	out := toLedgerEntry(entry)
	publish(ctx, s.events, events.New(events.TypeAccountCredited, entry.AccountID, entry.ID, out))
	zap.L().Info("manual credit posted",
		zap.String("account_id", req.AccountID.String()),
		zap.Int64("amount_cents", req.AmountCents),
		zap.String("actor_id", actor.ID.String()),
	)
	return &out, nil
}

func (s *LedgerService) postInTx(ctx context.Context, p Posting, dir domain.Direction) (*models.LedgerEntry, error) {
	var entry repository.LedgerEntry
	err := s.store.RunInTx(ctx, func(ctx context.Context, qtx repository.Querier) error {
		var err error
		entry, err = s.post(ctx, qtx, p, dir)
		return err
	})
	if err != nil {
		s.failed(p, err)
		return nil, err
	}
	s.committed(ctx, entry)
	out := toLedgerEntry(entry)
	return &out, nil
}

// debitTx posts a debit inside a caller-owned transaction.
func (s *LedgerService) debitTx(ctx context.Context, qtx repository.Querier, p Posting) (repository.LedgerEntry, error) {
	return s.post(ctx, qtx, p, domain.DirectionDebit)
}

// creditTx posts a credit inside a caller-owned transaction.
func (s *LedgerService) creditTx(ctx context.Context, qtx repository.Querier, p Posting) (repository.LedgerEntry, error) {
	return s.post(ctx, qtx, p, domain.DirectionCredit)
}

func (s *LedgerService) post(ctx context.Context, qtx repository.Querier, p Posting, dir domain.Direction) (repository.LedgerEntry, error) {
	if err := domain.ValidateCents(p.Amount); err != nil {
		return repository.LedgerEntry{}, err
	}
	if p.Kind.Direction() != dir {
		return repository.LedgerEntry{}, fmt.Errorf("%w: %s cannot be posted as a %s", domain.ErrInvalidRequest, p.Kind, dir)
	}

	account, err := qtx.GetAccountForUpdate(ctx, p.AccountID)
	if err != nil {
		return repository.LedgerEntry{}, notFoundOr(err, "account %s", p.AccountID)
	}

	delta := p.Amount
	switch dir {
	case domain.DirectionDebit:
		if account.Status != domain.AccountStatusActive {
			return repository.LedgerEntry{}, fmt.Errorf("%w: account %s is %s", domain.ErrAccountInactive, p.AccountID, strings.ToLower(account.Status))
		}
		if account.Balance < p.Amount {
			return repository.LedgerEntry{}, fmt.Errorf("%w: balance %s, requested %s",
				domain.ErrInsufficientFunds, domain.FormatCents(account.Balance), domain.FormatCents(p.Amount))
		}
		delta = -p.Amount
	case domain.DirectionCredit:
		if account.Balance > domain.MaxAmountCents-p.Amount {
			return repository.LedgerEntry{}, fmt.Errorf("%w: credit would exceed the maximum balance", domain.ErrInvalidAmount)
		}
	}

	balance, err := qtx.ApplyAccountDelta(ctx, repository.ApplyAccountDeltaParams{
		ID:    p.AccountID,
		Delta: delta,
	})
	if err != nil {
		if isCheckViolation(err) {
			return repository.LedgerEntry{}, fmt.Errorf("%w: %v", domain.ErrInsufficientFunds, err)
		}
		return repository.LedgerEntry{}, fmt.Errorf("apply account delta: %w", err)
	}

	var referenceType *string
	if p.ReferenceType != "" {
		referenceType = &p.ReferenceType
	}
	entry, err := qtx.InsertLedgerEntry(ctx, repository.InsertLedgerEntryParams{
		ID:            uuid.New(),
		AccountID:     p.AccountID,
		Seq:           balance.LastSeq,
		Amount:        delta,
		Kind:          string(p.Kind),
		Note:          p.Note,
		ReferenceType: referenceType,
		ReferenceID:   p.ReferenceID,
	})
	if err != nil {
		return repository.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}
	return entry, nil
}

// committed records metrics and emits events for entries whose transaction
// has committed.
func (s *LedgerService) committed(ctx context.Context, entries ...repository.LedgerEntry) {
	evts := make([]events.Event, 0, len(entries))
	for _, e := range entries {
		observability.IncrementLedgerPosting(e.Kind, "success")
		zap.L().Info("ledger entry posted",
			zap.String("account_id", e.AccountID.String()),
			zap.String("entry_id", e.ID.String()),
			zap.String("kind", e.Kind),
			zap.Int64("seq", e.Seq),
			zap.Int64("amount_cents", e.Amount),
		)
		evts = append(evts, events.New(events.TypeEntryPosted, e.AccountID, e.ID, toLedgerEntry(e)))
	}
	publish(ctx, s.events, evts...)
}

func (s *LedgerService) failed(p Posting, err error) {
	observability.IncrementLedgerPosting(string(p.Kind), strings.ToLower(string(domain.CodeOf(err))))
}

// GetBalance returns the latest committed state of an account.
func (s *LedgerService) GetBalance(ctx context.Context, actor authz.Actor, accountID uuid.UUID) (*models.Account, error) {
	if err := authz.RequireAccount(actor, accountID, authz.ViewAnyAccount); err != nil {
		return nil, err
	}
	ctx, cancel := readContext(ctx)
	defer cancel()

	row, err := s.store.Queries().GetAccount(ctx, accountID)
	if err != nil {
		return nil, notFoundOr(err, "account %s", accountID)
	}
	return toAccount(row), nil
}

// ListEntries pages an account's entries newest first. Pass the returned
// NextBeforeSeq as BeforeSeq to continue.
func (s *LedgerService) ListEntries(ctx context.Context, actor authz.Actor, accountID uuid.UUID, filter EntryFilter) (*EntryPage, error) {
	if err := authz.RequireAccount(actor, accountID, authz.ViewAnyAccount); err != nil {
		return nil, err
	}
	limit, _, err := pageBounds(filter.Limit, 0)
	if err != nil {
		return nil, err
	}
	if filter.Since != nil && filter.Until != nil && !filter.Since.Before(*filter.Until) {
		return nil, fmt.Errorf("%w: since must be before until", domain.ErrInvalidRequest)
	}
	if filter.BeforeSeq < 0 {
		return nil, fmt.Errorf("%w: before_seq must not be negative", domain.ErrInvalidRequest)
	}

	params := repository.ListLedgerEntriesParams{
		AccountID: accountID,
		Since:     filter.Since,
		Until:     filter.Until,
		Limit:     limit,
	}
	if filter.Kind != "" {
		if _, err := domain.ParseEntryKind(string(filter.Kind)); err != nil {
			return nil, err
		}
		kind := string(filter.Kind)
		params.Kind = &kind
	}
	if filter.BeforeSeq > 0 {
		before := filter.BeforeSeq
		params.BeforeSeq = &before
	}

	ctx, cancel := readContext(ctx)
	defer cancel()

	queries := s.store.Queries()
	if _, err := queries.GetAccount(ctx, accountID); err != nil {
		return nil, notFoundOr(err, "account %s", accountID)
	}
	rows, err := queries.ListLedgerEntries(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	page := &EntryPage{Entries: make([]models.LedgerEntry, 0, len(rows))}
	for _, row := range rows {
		page.Entries = append(page.Entries, toLedgerEntry(row))
	}
	if len(rows) == int(limit) {
		next := rows[len(rows)-1].Seq
		page.NextBeforeSeq = &next
	}
	return page, nil
}

// ListAllEntries pages entries across every account. Pass NextCursor back as
// Cursor to continue.
func (s *LedgerService) ListAllEntries(ctx context.Context, actor authz.Actor, filter AllEntriesFilter) (*AllEntriesPage, error) {
	if err := authz.Require(actor, authz.ViewLedgerReports); err != nil {
		return nil, err
	}
	limit, _, err := pageBounds(filter.Limit, 0)
	if err != nil {
		return nil, err
	}

	params := repository.ListAllLedgerEntriesParams{Limit: limit}
	if filter.Kind != "" {
		if _, err := domain.ParseEntryKind(string(filter.Kind)); err != nil {
			return nil, err
		}
		kind := string(filter.Kind)
		params.Kind = &kind
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		params.Query = &q
	}
	if filter.Cursor != "" {
		at, id, err := decodeEntryCursor(filter.Cursor)
		if err != nil {
			return nil, err
		}
		params.BeforeCreatedAt = &at
		params.BeforeID = &id
	}

	ctx, cancel := readContext(ctx)
	defer cancel()

	rows, err := s.store.Queries().ListAllLedgerEntries(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list all ledger entries: %w", err)
	}

	page := &AllEntriesPage{Entries: make([]models.LedgerEntry, 0, len(rows))}
	for _, row := range rows {
		page.Entries = append(page.Entries, toLedgerEntry(row))
	}
	if len(rows) == int(limit) {
		last := rows[len(rows)-1]
		page.NextCursor = encodeEntryCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func encodeEntryCursor(at time.Time, id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(at.UTC().Format(time.RFC3339Nano) + "|" + id.String()))
}

func decodeEntryCursor(cursor string) (time.Time, uuid.UUID, error) {
	invalid := fmt.Errorf("%w: invalid cursor", domain.ErrInvalidRequest)
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, invalid
	}
	ts, idText, ok := strings.Cut(string(raw), "|")
	if !ok {
		return time.Time{}, uuid.Nil, invalid
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, uuid.Nil, invalid
	}
	id, err := uuid.Parse(idText)
	if err != nil {
		return time.Time{}, uuid.Nil, invalid
	}
	return at, id, nil
}

// Totals aggregates every entry by kind.
func (s *LedgerService) Totals(ctx context.Context, actor authz.Actor) (*models.LedgerTotals, error) {
	if err := authz.Require(actor, authz.ViewLedgerReports); err != nil {
		return nil, err
	}
	ctx, cancel := readContext(ctx)
	defer cancel()

	rows, err := s.store.Queries().SumLedgerByKind(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum ledger by kind: %w", err)
	}

	totals := &models.LedgerTotals{Kinds: make([]models.KindTotal, 0, len(rows))}
	for _, row := range rows {
		kind := domain.EntryKind(row.Kind)
		totals.Kinds = append(totals.Kinds, models.KindTotal{
			Kind:       kind,
			TotalCents: row.Total,
			Total:      domain.FormatCents(row.Total),
			Entries:    row.Entries,
		})
		totals.NetCents += row.Total
		switch kind {
		case domain.EntryDeposit:
			totals.DepositedCents += row.Total
		case domain.EntryWithdrawalHold, domain.EntryWithdrawalRefund:
			totals.WithdrawnCents -= row.Total
		}
	}
	return totals, nil
}
