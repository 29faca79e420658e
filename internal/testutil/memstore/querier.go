package memstore

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type querier struct {
	store *Store
	tx    *state
}

var _ repository.Querier = (*querier)(nil)

func (q *querier) run(method string, fn func(st *state) error) error {
	if err := q.store.hook(method); err != nil {
		return err
	}
	if q.tx != nil {
		return fn(q.tx)
	}
	q.store.mu.Lock()
	defer q.store.mu.Unlock()
	return fn(q.store.state)
}

func page[T any](items []T, limit, offset int32) []T {
	if offset < 0 {
		offset = 0
	}
	if int(offset) >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

func (q *querier) CreateAccount(_ context.Context, arg repository.CreateAccountParams) (repository.Account, error) {
	var out repository.Account
	err := q.run("CreateAccount", func(st *state) error {
		if _, ok := st.accounts[arg.ID]; ok {
			return uniqueViolation("accounts_pkey")
		}
		now := q.store.tick()
		out = repository.Account{
			ID:        arg.ID,
			Currency:  arg.Currency,
			Status:    arg.Status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		st.accounts[arg.ID] = out
		return nil
	})
	return out, err
}

func (q *querier) getAccount(method string, id uuid.UUID) (repository.Account, error) {
	var out repository.Account
	err := q.run(method, func(st *state) error {
		acct, ok := st.accounts[id]
		if !ok {
			return noRows()
		}
		out = acct
		return nil
	})
	return out, err
}

func (q *querier) GetAccount(_ context.Context, id uuid.UUID) (repository.Account, error) {
	return q.getAccount("GetAccount", id)
}

func (q *querier) GetAccountForUpdate(_ context.Context, id uuid.UUID) (repository.Account, error) {
	return q.getAccount("GetAccountForUpdate", id)
}

func (q *querier) ApplyAccountDelta(_ context.Context, arg repository.ApplyAccountDeltaParams) (repository.ApplyAccountDeltaRow, error) {
	var out repository.ApplyAccountDeltaRow
	err := q.run("ApplyAccountDelta", func(st *state) error {
		acct, ok := st.accounts[arg.ID]
		if !ok {
			return noRows()
		}
		if acct.Balance+arg.Delta < 0 {
			return checkViolation("accounts_balance_non_negative")
		}
		acct.Balance += arg.Delta
		acct.LastSeq++
		acct.UpdatedAt = q.store.tick()
		st.accounts[arg.ID] = acct
		out = repository.ApplyAccountDeltaRow{Balance: acct.Balance, LastSeq: acct.LastSeq}
		return nil
	})
	return out, err
}

func (q *querier) UpdateAccountStatus(_ context.Context, arg repository.UpdateAccountStatusParams) (int64, error) {
	var rows int64
	err := q.run("UpdateAccountStatus", func(st *state) error {
		acct, ok := st.accounts[arg.ID]
		if !ok {
			return nil
		}
		acct.Status = arg.Status
		acct.UpdatedAt = q.store.tick()
		st.accounts[arg.ID] = acct
		rows = 1
		return nil
	})
	return rows, err
}

func (q *querier) ListAccounts(_ context.Context, arg repository.ListAccountsParams) ([]repository.Account, error) {
	var out []repository.Account
	err := q.run("ListAccounts", func(st *state) error {
		for id, acct := range st.accounts {
			if bytes.Compare(id[:], arg.AfterID[:]) > 0 {
				out = append(out, acct)
			}
		}
		sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
		out = page(out, arg.Limit, 0)
		return nil
	})
	return out, err
}

func (q *querier) GetAccountLedgerSummary(_ context.Context, accountID uuid.UUID) (repository.GetAccountLedgerSummaryRow, error) {
	var out repository.GetAccountLedgerSummaryRow
	err := q.run("GetAccountLedgerSummary", func(st *state) error {
		for _, e := range st.entries {
			if e.AccountID != accountID {
				continue
			}
			out.EntryCount++
			out.EntrySum += e.Amount
			if e.Seq > out.MaxSeq {
				out.MaxSeq = e.Seq
			}
		}
		return nil
	})
	return out, err
}

func (q *querier) InsertLedgerEntry(_ context.Context, arg repository.InsertLedgerEntryParams) (repository.LedgerEntry, error) {
	var out repository.LedgerEntry
	err := q.run("InsertLedgerEntry", func(st *state) error {
		if _, ok := st.accounts[arg.AccountID]; !ok {
			return foreignKeyViolation("ledger_entries_account_id_fkey")
		}
		if arg.Amount == 0 {
			return checkViolation("ledger_entries_amount_non_zero")
		}
		if _, err := domain.ParseEntryKind(arg.Kind); err != nil {
			return checkViolation("ledger_entries_kind_valid")
		}
		for _, e := range st.entries {
			if e.ID == arg.ID {
				return uniqueViolation("ledger_entries_pkey")
			}
			if e.AccountID == arg.AccountID && e.Seq == arg.Seq {
				return uniqueViolation("ledger_entries_account_seq_unique")
			}
		}
		out = repository.LedgerEntry{
			ID:            arg.ID,
			AccountID:     arg.AccountID,
			Seq:           arg.Seq,
			Amount:        arg.Amount,
			Kind:          arg.Kind,
			Note:          arg.Note,
			ReferenceType: arg.ReferenceType,
			ReferenceID:   arg.ReferenceID,
			CreatedAt:     q.store.tick(),
		}
		st.entries = append(st.entries, out)
		return nil
	})
	return out, err
}

func (q *querier) GetLedgerEntry(_ context.Context, id uuid.UUID) (repository.LedgerEntry, error) {
	var out repository.LedgerEntry
	err := q.run("GetLedgerEntry", func(st *state) error {
		for _, e := range st.entries {
			if e.ID == id {
				out = e
				return nil
			}
		}
		return noRows()
	})
	return out, err
}

func (q *querier) ListLedgerEntries(_ context.Context, arg repository.ListLedgerEntriesParams) ([]repository.LedgerEntry, error) {
	var out []repository.LedgerEntry
	err := q.run("ListLedgerEntries", func(st *state) error {
		for _, e := range st.entries {
			switch {
			case e.AccountID != arg.AccountID:
			case arg.Kind != nil && e.Kind != *arg.Kind:
			case arg.Since != nil && e.CreatedAt.Before(*arg.Since):
			case arg.Until != nil && !e.CreatedAt.Before(*arg.Until):
			case arg.BeforeSeq != nil && e.Seq >= *arg.BeforeSeq:
			default:
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Seq > out[j].Seq })
		out = page(out, arg.Limit, 0)
		return nil
	})
	return out, err
}

func (q *querier) ListAllLedgerEntries(_ context.Context, arg repository.ListAllLedgerEntriesParams) ([]repository.LedgerEntry, error) {
	var out []repository.LedgerEntry
	err := q.run("ListAllLedgerEntries", func(st *state) error {
		for _, e := range st.entries {
			switch {
			case arg.Kind != nil && e.Kind != *arg.Kind:
			case arg.Query != nil && !entryMatches(e, *arg.Query):
			case arg.BeforeCreatedAt != nil && arg.BeforeID != nil && !entryBefore(e, *arg.BeforeCreatedAt, *arg.BeforeID):
			default:
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			return entryBefore(out[j], out[i].CreatedAt, out[i].ID)
		})
		out = page(out, arg.Limit, 0)
		return nil
	})
	return out, err
}

// entryBefore orders entries the way (created_at, id) < (at, id) does in SQL.
func entryBefore(e repository.LedgerEntry, at time.Time, id uuid.UUID) bool {
	if !e.CreatedAt.Equal(at) {
		return e.CreatedAt.Before(at)
	}
	return bytes.Compare(e.ID[:], id[:]) < 0
}

func entryMatches(e repository.LedgerEntry, query string) bool {
	query = strings.ToLower(query)
	switch {
	case strings.Contains(strings.ToLower(e.Note), query):
	case e.ReferenceType != nil && strings.Contains(strings.ToLower(*e.ReferenceType), query):
	case e.AccountID.String() == query:
	case e.ReferenceID != nil && e.ReferenceID.String() == query:
	default:
		return false
	}
	return true
}

func (q *querier) SumLedgerByKind(_ context.Context) ([]repository.SumLedgerByKindRow, error) {
	var out []repository.SumLedgerByKindRow
	err := q.run("SumLedgerByKind", func(st *state) error {
		byKind := make(map[string]*repository.SumLedgerByKindRow)
		for _, e := range st.entries {
			row, ok := byKind[e.Kind]
			if !ok {
				row = &repository.SumLedgerByKindRow{Kind: e.Kind}
				byKind[e.Kind] = row
			}
			row.Total += e.Amount
			row.Entries++
		}
		for _, row := range byKind {
			out = append(out, *row)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
		return nil
	})
	return out, err
}

func entryExists(st *state, id uuid.UUID) bool {
	for _, e := range st.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (q *querier) InsertOrder(_ context.Context, arg repository.InsertOrderParams) (repository.Order, error) {
	var out repository.Order
	err := q.run("InsertOrder", func(st *state) error {
		if !entryExists(st, arg.EntryID) {
			return foreignKeyViolation("orders_entry_id_fkey")
		}
		if arg.Amount <= 0 {
			return checkViolation("orders_amount_positive")
		}
		for _, o := range st.orders {
			if o.ID == arg.ID {
				return uniqueViolation("orders_pkey")
			}
			if o.EntryID == arg.EntryID {
				return uniqueViolation("orders_entry_unique")
			}
		}
		out = repository.Order{
			ID:        arg.ID,
			AccountID: arg.AccountID,
			Amount:    arg.Amount,
			Status:    arg.Status,
			Note:      arg.Note,
			EntryID:   arg.EntryID,
			CreatedAt: q.store.tick(),
		}
		st.orders = append(st.orders, out)
		return nil
	})
	return out, err
}

func (q *querier) GetOrder(_ context.Context, id uuid.UUID) (repository.Order, error) {
	var out repository.Order
	err := q.run("GetOrder", func(st *state) error {
		for _, o := range st.orders {
			if o.ID == id {
				out = o
				return nil
			}
		}
		return noRows()
	})
	return out, err
}

func (q *querier) ListOrdersByAccount(_ context.Context, arg repository.ListOrdersByAccountParams) ([]repository.Order, error) {
	var out []repository.Order
	err := q.run("ListOrdersByAccount", func(st *state) error {
		for i := len(st.orders) - 1; i >= 0; i-- {
			if st.orders[i].AccountID == arg.AccountID {
				out = append(out, st.orders[i])
			}
		}
		out = page(out, arg.Limit, arg.Offset)
		return nil
	})
	return out, err
}

func (q *querier) InsertPaymentReport(_ context.Context, arg repository.InsertPaymentReportParams) (repository.PaymentReport, error) {
	var out repository.PaymentReport
	err := q.run("InsertPaymentReport", func(st *state) error {
		if _, ok := st.accounts[arg.AccountID]; !ok {
			return foreignKeyViolation("payment_reports_account_id_fkey")
		}
		if !arg.ClaimedAmount.IsPositive() {
			return checkViolation("payment_reports_claimed_positive")
		}
		now := q.store.tick()
		out = repository.PaymentReport{
			ID:            arg.ID,
			AccountID:     arg.AccountID,
			ClaimedAmount: arg.ClaimedAmount,
			Currency:      arg.Currency,
			Method:        arg.Method,
			ProofRef:      arg.ProofRef,
			Note:          arg.Note,
			Status:        domain.ReportPending.String(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		st.reports = append(st.reports, out)
		return nil
	})
	return out, err
}

func (q *querier) getPaymentReport(method string, id uuid.UUID) (repository.PaymentReport, error) {
	var out repository.PaymentReport
	err := q.run(method, func(st *state) error {
		for _, r := range st.reports {
			if r.ID == id {
				out = r
				return nil
			}
		}
		return noRows()
	})
	return out, err
}

func (q *querier) GetPaymentReport(_ context.Context, id uuid.UUID) (repository.PaymentReport, error) {
	return q.getPaymentReport("GetPaymentReport", id)
}

func (q *querier) GetPaymentReportForUpdate(_ context.Context, id uuid.UUID) (repository.PaymentReport, error) {
	return q.getPaymentReport("GetPaymentReportForUpdate", id)
}

func (q *querier) updatePendingReport(method string, id uuid.UUID, apply func(st *state, r *repository.PaymentReport, now time.Time) error) (int64, error) {
	var rows int64
	err := q.run(method, func(st *state) error {
		for i := range st.reports {
			r := st.reports[i]
			if r.ID != id || r.Status != domain.ReportPending.String() {
				continue
			}
			now := q.store.tick()
			if err := apply(st, &r, now); err != nil {
				return err
			}
			r.UpdatedAt = now
			st.reports[i] = r
			rows = 1
		}
		return nil
	})
	return rows, err
}

func (q *querier) ApprovePaymentReport(_ context.Context, arg repository.ApprovePaymentReportParams) (int64, error) {
	return q.updatePendingReport("ApprovePaymentReport", arg.ID, func(st *state, r *repository.PaymentReport, now time.Time) error {
		if !entryExists(st, arg.EntryID) {
			return foreignKeyViolation("payment_reports_entry_id_fkey")
		}
		for _, other := range st.reports {
			if other.EntryID != nil && *other.EntryID == arg.EntryID {
				return uniqueViolation("payment_reports_entry_unique")
			}
		}
		credited := arg.CreditedAmount
		entryID := arg.EntryID
		approver := arg.ApproverID
		r.Status = domain.ReportApproved.String()
		r.Rate = decimal.NullDecimal{Decimal: arg.Rate, Valid: true}
		r.CreditedAmount = &credited
		r.EntryID = &entryID
		r.ApproverID = &approver
		r.ApprovedAt = &now
		return nil
	})
}

func (q *querier) RejectPaymentReport(_ context.Context, arg repository.RejectPaymentReportParams) (int64, error) {
	return q.updatePendingReport("RejectPaymentReport", arg.ID, func(_ *state, r *repository.PaymentReport, now time.Time) error {
		rejecter := arg.RejecterID
		r.Status = domain.ReportRejected.String()
		r.RejecterID = &rejecter
		r.RejectReason = arg.RejectReason
		r.RejectedAt = &now
		return nil
	})
}

func (q *querier) ListPaymentReports(_ context.Context, arg repository.ListPaymentReportsParams) ([]repository.PaymentReport, error) {
	var out []repository.PaymentReport
	err := q.run("ListPaymentReports", func(st *state) error {
		for i := len(st.reports) - 1; i >= 0; i-- {
			r := st.reports[i]
			if arg.AccountID != nil && r.AccountID != *arg.AccountID {
				continue
			}
			if arg.Status != nil && r.Status != *arg.Status {
				continue
			}
			out = append(out, r)
		}
		out = page(out, arg.Limit, arg.Offset)
		return nil
	})
	return out, err
}

func (q *querier) InsertWithdrawalRequest(_ context.Context, arg repository.InsertWithdrawalRequestParams) (repository.WithdrawalRequest, error) {
	var out repository.WithdrawalRequest
	err := q.run("InsertWithdrawalRequest", func(st *state) error {
		if !entryExists(st, arg.HoldEntryID) {
			return foreignKeyViolation("withdrawal_requests_hold_entry_id_fkey")
		}
		if arg.Amount <= 0 {
			return checkViolation("withdrawal_requests_amount_positive")
		}
		for _, w := range st.withdrawals {
			if w.HoldEntryID == arg.HoldEntryID {
				return uniqueViolation("withdrawal_requests_hold_unique")
			}
		}
		now := q.store.tick()
		out = repository.WithdrawalRequest{
			ID:          arg.ID,
			AccountID:   arg.AccountID,
			Amount:      arg.Amount,
			Destination: append([]byte(nil), arg.Destination...),
			Status:      domain.WithdrawalPending.String(),
			HoldEntryID: arg.HoldEntryID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		st.withdrawals = append(st.withdrawals, out)
		return nil
	})
	return out, err
}

func (q *querier) getWithdrawal(method string, id uuid.UUID) (repository.WithdrawalRequest, error) {
	var out repository.WithdrawalRequest
	err := q.run(method, func(st *state) error {
		for _, w := range st.withdrawals {
			if w.ID == id {
				out = w
				return nil
			}
		}
		return noRows()
	})
	return out, err
}

func (q *querier) GetWithdrawalRequest(_ context.Context, id uuid.UUID) (repository.WithdrawalRequest, error) {
	return q.getWithdrawal("GetWithdrawalRequest", id)
}

func (q *querier) GetWithdrawalRequestForUpdate(_ context.Context, id uuid.UUID) (repository.WithdrawalRequest, error) {
	return q.getWithdrawal("GetWithdrawalRequestForUpdate", id)
}

func (q *querier) updatePendingWithdrawal(method string, id uuid.UUID, apply func(w *repository.WithdrawalRequest, now time.Time)) (int64, error) {
	var rows int64
	err := q.run(method, func(st *state) error {
		for i := range st.withdrawals {
			w := st.withdrawals[i]
			if w.ID != id || w.Status != domain.WithdrawalPending.String() {
				continue
			}
			now := q.store.tick()
			apply(&w, now)
			w.UpdatedAt = now
			st.withdrawals[i] = w
			rows = 1
		}
		return nil
	})
	return rows, err
}

func (q *querier) ConfirmWithdrawalRequest(_ context.Context, arg repository.ConfirmWithdrawalRequestParams) (int64, error) {
	return q.updatePendingWithdrawal("ConfirmWithdrawalRequest", arg.ID, func(w *repository.WithdrawalRequest, now time.Time) {
		confirmer := arg.ConfirmerID
		w.Status = domain.WithdrawalConfirmed.String()
		w.ConfirmerID = &confirmer
		w.ConfirmedAt = &now
	})
}

func (q *querier) RejectWithdrawalRequest(_ context.Context, arg repository.RejectWithdrawalRequestParams) (int64, error) {
	return q.updatePendingWithdrawal("RejectWithdrawalRequest", arg.ID, func(w *repository.WithdrawalRequest, now time.Time) {
		rejecter := arg.RejecterID
		refund := arg.RefundEntryID
		w.Status = domain.WithdrawalRejected.String()
		w.RejecterID = &rejecter
		w.RejectReason = arg.RejectReason
		w.RefundEntryID = &refund
		w.RejectedAt = &now
	})
}

func (q *querier) ListWithdrawalRequests(_ context.Context, arg repository.ListWithdrawalRequestsParams) ([]repository.WithdrawalRequest, error) {
	var out []repository.WithdrawalRequest
	err := q.run("ListWithdrawalRequests", func(st *state) error {
		for i := len(st.withdrawals) - 1; i >= 0; i-- {
			w := st.withdrawals[i]
			if arg.AccountID != nil && w.AccountID != *arg.AccountID {
				continue
			}
			if arg.Status != nil && w.Status != *arg.Status {
				continue
			}
			out = append(out, w)
		}
		out = page(out, arg.Limit, arg.Offset)
		return nil
	})
	return out, err
}

func (q *querier) ListPendingWithdrawalRequests(_ context.Context, limit int32) ([]repository.WithdrawalRequest, error) {
	var out []repository.WithdrawalRequest
	err := q.run("ListPendingWithdrawalRequests", func(st *state) error {
		for _, w := range st.withdrawals {
			if w.Status == domain.WithdrawalPending.String() {
				out = append(out, w)
			}
		}
		out = page(out, limit, 0)
		return nil
	})
	return out, err
}

func (q *querier) CountPendingWithdrawalRequests(_ context.Context) (int64, error) {
	var count int64
	err := q.run("CountPendingWithdrawalRequests", func(st *state) error {
		for _, w := range st.withdrawals {
			if w.Status == domain.WithdrawalPending.String() {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (q *querier) InsertAuditLog(_ context.Context, arg repository.InsertAuditLogParams) (repository.AuditLog, error) {
	var out repository.AuditLog
	err := q.run("InsertAuditLog", func(st *state) error {
		out = repository.AuditLog{
			ID:         int64(len(st.audit) + 1),
			EntityType: arg.EntityType,
			EntityID:   arg.EntityID,
			ActorID:    arg.ActorID,
			Action:     arg.Action,
			PrevState:  arg.PrevState,
			NextState:  arg.NextState,
			Metadata:   append([]byte(nil), arg.Metadata...),
			CreatedAt:  q.store.tick(),
		}
		st.audit = append(st.audit, out)
		return nil
	})
	return out, err
}

func (q *querier) ListAuditLogByEntity(_ context.Context, arg repository.ListAuditLogByEntityParams) ([]repository.AuditLog, error) {
	var out []repository.AuditLog
	err := q.run("ListAuditLogByEntity", func(st *state) error {
		for _, a := range st.audit {
			if a.EntityType == arg.EntityType && a.EntityID == arg.EntityID {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

func (q *querier) GetIdempotencyKey(_ context.Context, key string) (repository.IdempotencyKey, error) {
	var out repository.IdempotencyKey
	err := q.run("GetIdempotencyKey", func(st *state) error {
		row, ok := st.idem[key]
		if !ok {
			return noRows()
		}
		out = row
		return nil
	})
	return out, err
}

func (q *querier) ReserveIdempotencyKey(_ context.Context, arg repository.ReserveIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	var out repository.IdempotencyKey
	err := q.run("ReserveIdempotencyKey", func(st *state) error {
		if _, ok := st.idem[arg.IdempotencyKey]; ok {
			return noRows()
		}
		now := q.store.tick()
		out = repository.IdempotencyKey{
			IdempotencyKey: arg.IdempotencyKey,
			RequestHash:    arg.RequestHash,
			Method:         arg.Method,
			Path:           arg.Path,
			ContentType:    "application/json",
			InProgress:     true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		st.idem[arg.IdempotencyKey] = out
		return nil
	})
	return out, err
}

func (q *querier) FinalizeIdempotencyKey(_ context.Context, arg repository.FinalizeIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	var out repository.IdempotencyKey
	err := q.run("FinalizeIdempotencyKey", func(st *state) error {
		row, ok := st.idem[arg.IdempotencyKey]
		if !ok || row.RequestHash != arg.RequestHash {
			return noRows()
		}
		row.ResponseStatus = arg.ResponseStatus
		row.ResponseBody = append([]byte(nil), arg.ResponseBody...)
		row.ContentType = arg.ContentType
		row.InProgress = false
		row.UpdatedAt = q.store.tick()
		st.idem[arg.IdempotencyKey] = row
		out = row
		return nil
	})
	return out, err
}

func (q *querier) DeleteExpiredIdempotencyKeys(_ context.Context, before time.Time) (int64, error) {
	var rows int64
	err := q.run("DeleteExpiredIdempotencyKeys", func(st *state) error {
		for key, row := range st.idem {
			if !row.InProgress && row.UpdatedAt.Before(before) {
				delete(st.idem, key)
				rows++
			}
		}
		return nil
	})
	return rows, err
}

func (q *querier) ReleaseIdempotencyKey(_ context.Context, arg repository.ReleaseIdempotencyKeyParams) (int64, error) {
	var rows int64
	err := q.run("ReleaseIdempotencyKey", func(st *state) error {
		row, ok := st.idem[arg.IdempotencyKey]
		if ok && row.InProgress && row.RequestHash == arg.RequestHash {
			delete(st.idem, arg.IdempotencyKey)
			rows = 1
		}
		return nil
	})
	return rows, err
}
