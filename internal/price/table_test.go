package price

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableLookup(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "SEK", table.Currency())

	t.Run("known date", func(t *testing.T) {
		p, err := table.Lookup(time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("13.09").Equal(p), "got %s", p)
	})

	t.Run("time of day and zone are ignored", func(t *testing.T) {
		p, err := table.Lookup(time.Date(2026, 1, 6, 23, 10, 0, 0, time.FixedZone("CET", 3600)))
		require.NoError(t, err)
		assert.Equal(t, "1177.5", p.String())
	})

	t.Run("absent date", func(t *testing.T) {
		_, err := table.Lookup(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrPriceUnavailable))
		assert.Contains(t, err.Error(), "2025-11-01")
	})
}

func TestAllReturnsCopy(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	all := table.All()
	assert.Len(t, all, 14)
	assert.Equal(t, "25.8", all["2025-12-28"].String())

	delete(all, "2025-12-25")
	_, err = table.Lookup(time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err, "mutating the copy must not touch the table")
}

func TestRecordsSorted(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)

	recs := table.Records()
	require.Len(t, recs, 14)
	assert.Equal(t, time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC), recs[0].Date)
	assert.Equal(t, time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), recs[len(recs)-1].Date)
	for i := 1; i < len(recs); i++ {
		assert.True(t, recs[i].Date.After(recs[i-1].Date))
	}
}

func TestLoadRejectsBadTables(t *testing.T) {
	tests := map[string]string{
		"duplicate date": `prices: [{date: "2026-01-01", price: "1"}, {date: "2026-01-01", price: "2"}]`,
		"bad date":       `prices: [{date: "01/01/2026", price: "1"}]`,
		"bad price":      `prices: [{date: "2026-01-01", price: "cheap"}]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
