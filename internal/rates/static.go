package rates

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultRates is the table used when no rates file is configured.
var DefaultRates = map[string]string{
	"USD": "1",
	"COP": "4000",
	"VES": "40",
	"MXN": "17",
	"EUR": "0.9",
}

// Rates decode through decimal's UnmarshalText, so file values keep every
// digit as written.
type fileFormat struct {
	Base  string                     `yaml:"base"`
	Rates map[string]decimal.Decimal `yaml:"rates"`
}

// StaticProvider serves rates from memory, optionally backed by a YAML file.
type StaticProvider struct {
	mu    sync.RWMutex
	path  string
	base  string
	rates map[string]decimal.Decimal
}

// NewStaticProvider builds a provider from decimal strings such as "4000.25".
func NewStaticProvider(base string, table map[string]string) (*StaticProvider, error) {
	parsed := make(map[string]decimal.Decimal, len(table))
	for code, v := range table {
		rate, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		parsed[code] = rate
	}
	p := &StaticProvider{}
	if err := p.Replace(base, parsed); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadFile builds a provider from a YAML file of the form
//
//	base: USD
//	rates:
//	  COP: 4000
//
// A base in the file must match base.
func LoadFile(path, base string) (*StaticProvider, error) {
	p := &StaticProvider{path: path}
	p.base = strings.ToUpper(base)
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the backing file. Providers without a file are unchanged.
func (p *StaticProvider) Reload() error {
	if p.path == "" {
		return nil
	}
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read rates file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse rates file: %w", err)
	}

	p.mu.RLock()
	base := p.base
	p.mu.RUnlock()
	if f.Base != "" && !strings.EqualFold(f.Base, base) {
		return fmt.Errorf("rates file base %s does not match reference currency %s", f.Base, base)
	}
	return p.Replace(base, f.Rates)
}

// Replace swaps the table atomically. Every rate must be positive.
func (p *StaticProvider) Replace(base string, table map[string]decimal.Decimal) error {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return fmt.Errorf("rates base currency is required")
	}
	next := make(map[string]decimal.Decimal, len(table)+1)
	for code, rate := range table {
		if !rate.IsPositive() {
			return fmt.Errorf("rate for %s must be positive, got %s", code, rate)
		}
		next[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	next[base] = decimal.NewFromInt(1)

	p.mu.Lock()
	p.base = base
	p.rates = next
	p.mu.Unlock()
	return nil
}

func (p *StaticProvider) Rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	code := strings.ToUpper(strings.TrimSpace(currency))

	p.mu.RLock()
	defer p.mu.RUnlock()
	rate, ok := p.rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	return rate, nil
}

func (p *StaticProvider) Rates(ctx context.Context) (Table, error) {
	if err := ctx.Err(); err != nil {
		return Table{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(p.rates))
	for k, v := range p.rates {
		out[k] = v
	}
	return Table{Base: p.base, Rates: out}, nil
}
