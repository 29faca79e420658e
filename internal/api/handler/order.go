package handler

import (
	"net/http"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type placeOrderRequest struct {
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
}

// PlaceOrder handles POST /v1/orders. Amount is in the reference currency
// with at most two decimal places.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cents, err := domain.CentsFromDecimal(req.Amount)
	if err != nil {
		respondServiceError(w, r, err, "place order")
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), actor, service.PlaceOrderRequest{
		AccountID:   req.AccountID,
		AmountCents: cents,
		Note:        req.Note,
	})
	if err != nil {
		respondServiceError(w, r, err, "place order")
		return
	}
	RespondJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := withActor(w, r)
	if !ok {
		return
	}
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		respondServiceError(w, r, err, "get order")
		return
	}
	RespondJSON(w, http.StatusOK, order)
}
