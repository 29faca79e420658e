package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/rates"
	"github.com/shopspring/decimal"
)

// RateSource is what the public rate endpoints read from.
type RateSource interface {
	rates.Provider
	rates.Lister
}

// RatesHandler publishes the exchange table and a recharge calculator.
type RatesHandler struct {
	source  RateSource
	timeout time.Duration
}

func NewRatesHandler(source RateSource, timeout time.Duration) *RatesHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RatesHandler{source: source, timeout: timeout}
}

// List handles GET /v1/rates.
func (h *RatesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	table, err := h.source.Rates(ctx)
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("%w: %w", domain.ErrExternalService, err), "list rates")
		return
	}
	RespondJSON(w, http.StatusOK, table)
}

// Quote handles GET /v1/rates/quote?amount=&currency=, pricing a reference
// amount in a local currency.
func (h *RatesHandler) Quote(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.URL.Query().Get("amount")))
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("%w: amount must be a decimal number", domain.ErrInvalidAmount), "quote")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	quote, err := rates.QuoteAmount(ctx, h.source, amount, r.URL.Query().Get("currency"))
	if err != nil {
		if domain.CodeOf(err) == domain.CodeInternal || domain.CodeOf(err) == domain.CodeTimeout {
			err = fmt.Errorf("%w: %w", domain.ErrExternalService, err)
		}
		respondServiceError(w, r, err, "quote")
		return
	}
	RespondJSON(w, http.StatusOK, quote)
}
