package handler

import (
	"net/http"
	"strings"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/shopspring/decimal"
)

// AdminHandler exposes ledger-wide reports to operators.
type AdminHandler struct {
	ledger         *service.LedgerService
	reconciliation *service.ReconciliationService
}

func NewAdminHandler(ledger *service.LedgerService, reconciliation *service.ReconciliationService) *AdminHandler {
	return &AdminHandler{ledger: ledger, reconciliation: reconciliation}
}

// Totals handles GET /v1/admin/ledger/totals.
func (h *AdminHandler) Totals(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	totals, err := h.ledger.Totals(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err, "ledger totals")
		return
	}
	RespondJSON(w, http.StatusOK, totals)
}

// Reconcile handles POST /v1/admin/reconciliation.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	report, err := h.reconciliation.Check(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err, "reconciliation")
		return
	}
	RespondJSON(w, http.StatusOK, report)
}

type manualCreditRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// Credit handles POST /v1/admin/accounts/{id}/credits.
func (h *AdminHandler) Credit(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	accountID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req manualCreditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cents, err := domain.CentsFromDecimal(req.Amount)
	if err != nil {
		respondServiceError(w, r, err, "manual credit")
		return
	}

	entry, err := h.ledger.ManualCredit(r.Context(), actor, service.ManualCreditRequest{
		AccountID:   accountID,
		AmountCents: cents,
		Note:        req.Note,
	})
	if err != nil {
		respondServiceError(w, r, err, "manual credit")
		return
	}
	RespondJSON(w, http.StatusCreated, entry)
}

// ListEntries handles GET /v1/admin/ledger/entries?kind=&q=&cursor=&limit=.
func (h *AdminHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondServiceError(w, r, err, "list all entries")
		return
	}
	q := r.URL.Query()
	page, err := h.ledger.ListAllEntries(r.Context(), actor, service.AllEntriesFilter{
		Kind:   domain.EntryKind(strings.ToUpper(strings.TrimSpace(q.Get("kind")))),
		Query:  q.Get("q"),
		Cursor: strings.TrimSpace(q.Get("cursor")),
		Limit:  limit,
	})
	if err != nil {
		respondServiceError(w, r, err, "list all entries")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"items":       page.Entries,
		"count":       len(page.Entries),
		"next_cursor": page.NextCursor,
	})
}
