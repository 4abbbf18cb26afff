package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("ZERO_RESULTS returned", "zero_results"))
	assert.True(t, HasAny("no match", "foo", "MATCH"))
	assert.False(t, HasAny("ok", "fail", "error"))
	assert.False(t, HasAny("anything"))
}

func TestCalendarDateKeepsLocalWallClockDate(t *testing.T) {
	stockholm := time.FixedZone("CET", 3600)

	// 00:30 local on the 25th is still the 24th in UTC.
	local := time.Date(2025, 12, 25, 0, 30, 0, 0, stockholm)
	got := CalendarDate(local)

	assert.Equal(t, time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), got)
	assert.True(t, got.Equal(CalendarDate(time.Date(2025, 12, 25, 23, 59, 0, 0, time.UTC))))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-01-06 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("06/01/2026")
	assert.Error(t, err)
}
