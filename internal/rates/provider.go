// Package rates supplies exchange rates against the reference currency.
// A rate r for currency C means 1 reference unit equals r units of C.
package rates

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Provider resolves the rate for one currency.
type Provider interface {
	Rate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Lister exposes the full rate table.
type Lister interface {
	Rates(ctx context.Context) (Table, error)
}

type Table struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Quote is the local-currency price of a reference amount.
type Quote struct {
	Currency        string          `json:"currency"`
	ReferenceAmount decimal.Decimal `json:"reference_amount"`
	Rate            decimal.Decimal `json:"rate"`
	LocalAmount     decimal.Decimal `json:"local_amount"`
}

// QuoteAmount converts a reference amount into currency.
func QuoteAmount(ctx context.Context, p Provider, amount decimal.Decimal, currency string) (Quote, error) {
	if err := domain.ValidateDecimalAmount(amount); err != nil {
		return Quote{}, err
	}
	code, err := domain.NormalizeCurrency(currency)
	if err != nil {
		return Quote{}, err
	}
	rate, err := p.Rate(ctx, code)
	if err != nil {
		if errors.Is(err, ErrUnknownCurrency) {
			return Quote{}, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, err.Error())
		}
		return Quote{}, err
	}
	return Quote{
		Currency:        code,
		ReferenceAmount: amount,
		Rate:            rate,
		LocalAmount:     domain.FromReference(amount, rate),
	}, nil
}
