package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/authz"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/google/uuid"
)

type AccountHandler struct {
	accounts *service.AccountService
	ledger   *service.LedgerService
	orders   *service.OrderService
}

func NewAccountHandler(accounts *service.AccountService, ledger *service.LedgerService, orders *service.OrderService) *AccountHandler {
	return &AccountHandler{accounts: accounts, ledger: ledger, orders: orders}
}

type provisionAccountRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// Provision handles POST /v1/accounts.
func (h *AccountHandler) Provision(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	var req provisionAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, err := h.accounts.Provision(r.Context(), actor, req.UserID)
	if err != nil {
		respondServiceError(w, r, err, "provision account")
		return
	}
	RespondJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.accounts.Deactivate)
}

func (h *AccountHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.accounts.Activate)
}

func (h *AccountHandler) setStatus(w http.ResponseWriter, r *http.Request, apply func(context.Context, authz.Actor, uuid.UUID) (*models.Account, error)) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	accountID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	account, err := apply(r.Context(), actor, accountID)
	if err != nil {
		respondServiceError(w, r, err, "update account status")
		return
	}
	RespondJSON(w, http.StatusOK, account)
}

// GetBalance handles GET /v1/accounts/{id}/balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	accountID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.ledger.GetBalance(r.Context(), actor, accountID)
	if err != nil {
		respondServiceError(w, r, err, "get balance")
		return
	}
	RespondJSON(w, http.StatusOK, account)
}

// ListEntries handles GET /v1/accounts/{id}/entries?kind=&since=&until=&before_seq=&limit=.
func (h *AccountHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	accountID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	filter, err := entryFilter(r)
	if err != nil {
		respondServiceError(w, r, err, "list entries")
		return
	}
	page, err := h.ledger.ListEntries(r.Context(), actor, accountID, filter)
	if err != nil {
		respondServiceError(w, r, err, "list entries")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"items":           page.Entries,
		"count":           len(page.Entries),
		"next_before_seq": page.NextBeforeSeq,
	})
}

// ListOrders handles GET /v1/accounts/{id}/orders.
func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	accountID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		respondServiceError(w, r, err, "list orders")
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), actor, accountID, limit, offset)
	if err != nil {
		respondServiceError(w, r, err, "list orders")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  orders,
		"limit":  limit,
		"offset": offset,
		"count":  len(orders),
	})
}

func entryFilter(r *http.Request) (service.EntryFilter, error) {
	q := r.URL.Query()
	filter := service.EntryFilter{Kind: domain.EntryKind(strings.ToUpper(strings.TrimSpace(q.Get("kind"))))}

	var err error
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return filter, err
	}
	beforeSeq, err := queryInt(r, "before_seq")
	if err != nil {
		return filter, err
	}
	filter.BeforeSeq = int64(beforeSeq)

	for name, dst := range map[string]**time.Time{"since": &filter.Since, "until": &filter.Until} {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", domain.ErrInvalidRequest, name)
		}
		*dst = &t
	}
	return filter, nil
}
