package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places kept for every amount.
const AmountScale int32 = 2

// MaxAmountCents bounds a single amount or balance well inside int64.
const MaxAmountCents int64 = 100_000_000_000_000_000

var (
	one            = decimal.NewFromInt(1)
	maxAmountCents = decimal.NewFromInt(MaxAmountCents)
)

// FormatCents renders cents as a fixed two-place decimal string.
func FormatCents(cents int64) string {
	return decimal.New(cents, -AmountScale).StringFixed(AmountScale)
}

// ValidateCents rejects non-positive and out-of-range amounts.
func ValidateCents(cents int64) error {
	if cents <= 0 {
		return fmt.Errorf("%w: %d must be positive", ErrInvalidAmount, cents)
	}
	if cents > MaxAmountCents {
		return fmt.Errorf("%w: %d exceeds maximum", ErrInvalidAmount, cents)
	}
	return nil
}

// ValidateDecimalAmount checks that d is positive, in range and has at most
// two decimal places.
func ValidateDecimalAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, d.String())
	}
	if !d.Equal(d.Truncate(AmountScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, d.String(), AmountScale)
	}
	if d.Shift(AmountScale).GreaterThan(maxAmountCents) {
		return fmt.Errorf("%w: %s exceeds maximum", ErrInvalidAmount, d.String())
	}
	return nil
}

// CentsFromDecimal converts an exact two-place amount to cents.
func CentsFromDecimal(d decimal.Decimal) (int64, error) {
	if err := ValidateDecimalAmount(d); err != nil {
		return 0, err
	}
	return d.Shift(AmountScale).IntPart(), nil
}

// ConvertToReference turns a claimed external amount into the reference
// currency. Rates above 1 divide; anything else leaves the amount as is.
// The result is rounded half-to-even to AmountScale places.
func ConvertToReference(claimed, rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(one) {
		return claimed.Div(rate).RoundBank(AmountScale)
	}
	return claimed.RoundBank(AmountScale)
}

// FromReference prices a reference amount in a local currency.
func FromReference(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).RoundBank(AmountScale)
}

// NormalizeCurrency upper-cases and validates a three-letter currency code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: currency %q must be a 3-letter code", ErrInvalidRequest, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: currency %q must be a 3-letter code", ErrInvalidRequest, code)
		}
	}
	return code, nil
}
