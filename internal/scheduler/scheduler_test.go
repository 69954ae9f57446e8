package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(Config{
		Symbols:         []string{"AAPL"},
		IntervalSeconds: 900,
		MarketOpen:      "09:30",
		MarketClose:     "16:00",
		Timezone:        "America/New_York",
		FetchWorkers:    4,
		Timespan:        "1day",
		BarLimit:        120,
		IndexSymbol:     "SPY",
	}, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	require.NoError(t, err)
	return s
}

func TestIsMarketOpen(t *testing.T) {
	s := newTestScheduler(t)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Wednesday mid-session.
	assert.True(t, s.isMarketOpen(time.Date(2026, 8, 26, 12, 0, 0, 0, ny)))

	// The open is inclusive, the close is not.
	assert.True(t, s.isMarketOpen(time.Date(2026, 8, 26, 9, 30, 0, 0, ny)))
	assert.False(t, s.isMarketOpen(time.Date(2026, 8, 26, 16, 0, 0, 0, ny)))

	// Pre-market and after-hours.
	assert.False(t, s.isMarketOpen(time.Date(2026, 8, 26, 9, 0, 0, 0, ny)))
	assert.False(t, s.isMarketOpen(time.Date(2026, 8, 26, 20, 0, 0, 0, ny)))

	// Weekend.
	assert.False(t, s.isMarketOpen(time.Date(2026, 8, 29, 12, 0, 0, 0, ny)))
	assert.False(t, s.isMarketOpen(time.Date(2026, 8, 30, 12, 0, 0, 0, ny)))

	// UTC input converts into the exchange timezone first: 13:00 UTC in
	// August is 09:00 in New York.
	assert.False(t, s.isMarketOpen(time.Date(2026, 8, 26, 13, 0, 0, 0, time.UTC)))
	assert.True(t, s.isMarketOpen(time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)))
}

func TestRegisterAll(t *testing.T) {
	s := newTestScheduler(t)
	assert.NoError(t, s.RegisterAll())
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(Config{Timezone: "Nowhere/Void"}, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
