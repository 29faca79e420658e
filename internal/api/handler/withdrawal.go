package handler

import (
	"net/http"
	"strings"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/models"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WithdrawalHandler struct {
	withdrawals *service.WithdrawalService
}

func NewWithdrawalHandler(withdrawals *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

type requestWithdrawalRequest struct {
	AccountID   uuid.UUID                    `json:"account_id"`
	Amount      decimal.Decimal              `json:"amount"`
	Destination models.WithdrawalDestination `json:"destination"`
}

// Request handles POST /v1/withdrawals and returns 202: the funds are held
// until a reviewer confirms or rejects.
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	var req requestWithdrawalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cents, err := domain.CentsFromDecimal(req.Amount)
	if err != nil {
		respondServiceError(w, r, err, "request withdrawal")
		return
	}

	withdrawal, err := h.withdrawals.Request(r.Context(), actor, service.RequestWithdrawalRequest{
		AccountID:   req.AccountID,
		AmountCents: cents,
		Destination: req.Destination,
	})
	if err != nil {
		respondServiceError(w, r, err, "request withdrawal")
		return
	}
	RespondJSON(w, http.StatusAccepted, withdrawal)
}

func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}

	filter := service.WithdrawalFilter{}
	var err error
	if filter.AccountID, err = queryUUID(r, "account_id"); err != nil {
		respondServiceError(w, r, err, "list withdrawals")
		return
	}
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		status, err := domain.ParseWithdrawalStatus(v)
		if err != nil {
			respondServiceError(w, r, err, "list withdrawals")
			return
		}
		filter.Status = &status
	}
	if filter.Limit, filter.Offset, err = pagination(r); err != nil {
		respondServiceError(w, r, err, "list withdrawals")
		return
	}

	items, err := h.withdrawals.List(r.Context(), actor, filter)
	if err != nil {
		respondServiceError(w, r, err, "list withdrawals")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  filter.Limit,
		"offset": filter.Offset,
		"count":  len(items),
	})
}

// ListPending handles GET /v1/withdrawals/pending, the reviewer queue.
func (h *WithdrawalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondServiceError(w, r, err, "list pending withdrawals")
		return
	}
	items, err := h.withdrawals.ListPending(r.Context(), actor, limit)
	if err != nil {
		respondServiceError(w, r, err, "list pending withdrawals")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	withdrawalID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	withdrawal, err := h.withdrawals.Get(r.Context(), actor, withdrawalID)
	if err != nil {
		respondServiceError(w, r, err, "get withdrawal")
		return
	}
	RespondJSON(w, http.StatusOK, withdrawal)
}

func (h *WithdrawalHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	withdrawalID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	withdrawal, err := h.withdrawals.Confirm(r.Context(), actor, withdrawalID)
	if err != nil {
		respondServiceError(w, r, err, "confirm withdrawal")
		return
	}
	RespondJSON(w, http.StatusOK, withdrawal)
}

func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	withdrawalID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	withdrawal, err := h.withdrawals.Reject(r.Context(), actor, withdrawalID, req.Reason)
	if err != nil {
		respondServiceError(w, r, err, "reject withdrawal")
		return
	}
	RespondJSON(w, http.StatusOK, withdrawal)
}
