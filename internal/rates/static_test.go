package rates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProviderDefaults(t *testing.T) {
	p, err := NewStaticProvider("USD", DefaultRates)
	require.NoError(t, err)

	ctx := context.Background()
	rate, err := p.Rate(ctx, "cop")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(4000)))

	rate, err = p.Rate(ctx, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "0.9", rate.String())

	_, err = p.Rate(ctx, "ARS")
	require.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestStaticProviderRejectsNonPositiveRates(t *testing.T) {
	_, err := NewStaticProvider("USD", map[string]string{"COP": "0"})
	require.Error(t, err)
}

func TestStaticProviderRejectsMalformedRates(t *testing.T) {
	_, err := NewStaticProvider("USD", map[string]string{"COP": "four thousand"})
	require.Error(t, err)
}

func TestLoadFileKeepsEveryDigit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rates:\n  COP: 4123.456789012345678901\n  VES: \"36.123456789012345678\"\n"), 0o600))

	p, err := LoadFile(path, "USD")
	require.NoError(t, err)

	ctx := context.Background()
	rate, err := p.Rate(ctx, "COP")
	require.NoError(t, err)
	assert.Equal(t, "4123.456789012345678901", rate.String())

	rate, err = p.Rate(ctx, "VES")
	require.NoError(t, err)
	assert.Equal(t, "36.123456789012345678", rate.String())
}

func TestLoadFileAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base: USD\nrates:\n  COP: 4100\n  VES: 36.5\n"), 0o600))

	p, err := LoadFile(path, "USD")
	require.NoError(t, err)

	ctx := context.Background()
	rate, err := p.Rate(ctx, "COP")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(4100)))

	usd, err := p.Rate(ctx, "USD")
	require.NoError(t, err)
	assert.True(t, usd.Equal(decimal.NewFromInt(1)))

	require.NoError(t, os.WriteFile(path, []byte("rates:\n  COP: 4200\n"), 0o600))
	require.NoError(t, p.Reload())

	rate, err = p.Rate(ctx, "COP")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(4200)))
	_, err = p.Rate(ctx, "VES")
	require.ErrorIs(t, err, ErrUnknownCurrency)

	table, err := p.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", table.Base)
	assert.Len(t, table.Rates, 2)
}

func TestLoadFileBaseMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base: EUR\nrates:\n  COP: 4100\n"), 0o600))

	_, err := LoadFile(path, "USD")
	require.Error(t, err)
}

func TestQuoteAmount(t *testing.T) {
	p, err := NewStaticProvider("USD", DefaultRates)
	require.NoError(t, err)

	q, err := QuoteAmount(context.Background(), p, decimal.RequireFromString("12.50"), "ves")
	require.NoError(t, err)
	assert.Equal(t, "VES", q.Currency)
	assert.Equal(t, "500.00", q.LocalAmount.StringFixed(2))

	_, err = QuoteAmount(context.Background(), p, decimal.RequireFromString("1.005"), "VES")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = QuoteAmount(context.Background(), p, decimal.NewFromInt(1), "ARS")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
