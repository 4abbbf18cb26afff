// Package price serves the curated daily energy price table.
package price

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/energy-price-forecast/internal/common"
)

// ErrPriceUnavailable is returned for dates missing from the table.
var ErrPriceUnavailable = errors.New("price unavailable")

//go:embed prices.yaml
var embeddedTable []byte

// Record is one daily price observation.
type Record struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Table is an immutable date -> price mapping.
type Table struct {
	currency string
	prices   map[string]decimal.Decimal
}

type tableFile struct {
	Currency string `yaml:"currency"`
	Prices   []struct {
		Date  string `yaml:"date"`
		Price string `yaml:"price"`
	} `yaml:"prices"`
}

// Load parses a price table document. Dates must be unique.
func Load(r io.Reader) (*Table, error) {
	var doc tableFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse price table: %w", err)
	}

	t := &Table{currency: doc.Currency, prices: make(map[string]decimal.Decimal, len(doc.Prices))}
	for _, p := range doc.Prices {
		d, err := common.ParseDate(p.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid price date %q: %w", p.Date, err)
		}
		key := d.Format(common.DateLayout)
		if _, dup := t.prices[key]; dup {
			return nil, fmt.Errorf("duplicate price date %s", key)
		}
		v, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for %s: %w", p.Price, key, err)
		}
		t.prices[key] = v
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the compiled-in table, parsed once per process.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Load(bytes.NewReader(embeddedTable))
	})
	return defaultTable, defaultErr
}

// Currency returns the currency code of the prices.
func (t *Table) Currency() string {
	return t.currency
}

// All returns a copy of the full mapping keyed by YYYY-MM-DD.
func (t *Table) All() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(t.prices))
	for k, v := range t.prices {
		out[k] = v
	}
	return out
}

// Lookup returns the price of the calendar date of d.
func (t *Table) Lookup(d time.Time) (decimal.Decimal, error) {
	key := common.CalendarDate(d).Format(common.DateLayout)
	v, ok := t.prices[key]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: energy price for %s is not available", ErrPriceUnavailable, key)
	}
	return v, nil
}

// Records returns the table as a series ordered by date ascending.
func (t *Table) Records() []Record {
	out := make([]Record, 0, len(t.prices))
	for k, v := range t.prices {
		d, _ := common.ParseDate(k)
		out = append(out, Record{Date: d, Price: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
