package cache

import (
	"testing"
	"time"

	"github.com/aristath/statements/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries(ticker string) *domain.StatementSeries {
	return &domain.StatementSeries{
		Ticker:  ticker,
		Type:    domain.QuarterlyFinancials,
		Records: []domain.StatementRecord{{PeriodEnd: "2026-06-30"}},
	}
}

func TestL1HitRoundtrip(t *testing.T) {
	l1 := NewL1(10*time.Minute, time.Minute)
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	series := testSeries("AAPL")

	l1.SetHit(key, series)

	entry, ok := l1.Get(key)
	require.True(t, ok)
	assert.Equal(t, EntryHit, entry.Kind)
	assert.Same(t, series, entry.Series)
}

func TestL1MissEntry(t *testing.T) {
	l1 := NewL1(10*time.Minute, time.Minute)
	key := domain.NewKey("NOPE", domain.QuarterlyFinancials)

	l1.SetMiss(key)

	entry, ok := l1.Get(key)
	require.True(t, ok)
	assert.Equal(t, EntryMiss, entry.Kind)
	assert.Nil(t, entry.Series)
}

func TestL1DistinctTTLs(t *testing.T) {
	l1 := NewL1(10*time.Minute, time.Minute)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	l1.now = func() time.Time { return now }

	hitKey := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	missKey := domain.NewKey("NOPE", domain.QuarterlyFinancials)
	l1.SetHit(hitKey, testSeries("AAPL"))
	l1.SetMiss(missKey)

	// After two minutes the miss has lapsed but the hit survives.
	now = now.Add(2 * time.Minute)
	_, ok := l1.Get(hitKey)
	assert.True(t, ok)
	_, ok = l1.Get(missKey)
	assert.False(t, ok)

	// After eleven minutes the hit is gone too.
	now = now.Add(9 * time.Minute)
	_, ok = l1.Get(hitKey)
	assert.False(t, ok)
}

func TestL1ExpiredEntriesAreEvictedOnRead(t *testing.T) {
	l1 := NewL1(time.Minute, time.Minute)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	l1.now = func() time.Time { return now }

	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	l1.SetHit(key, testSeries("AAPL"))
	require.Equal(t, 1, l1.Len())

	now = now.Add(2 * time.Minute)
	_, ok := l1.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, l1.Len())
}

func TestL1ZeroTTLDisablesCaching(t *testing.T) {
	l1 := NewL1(0, 0)
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)

	l1.SetHit(key, testSeries("AAPL"))
	_, ok := l1.Get(key)
	assert.False(t, ok)
}

func TestL1OverwriteReplacesKind(t *testing.T) {
	l1 := NewL1(10*time.Minute, 10*time.Minute)
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)

	l1.SetMiss(key)
	l1.SetHit(key, testSeries("AAPL"))

	entry, ok := l1.Get(key)
	require.True(t, ok)
	assert.Equal(t, EntryHit, entry.Kind)
}

func TestL1EvictAndPurge(t *testing.T) {
	l1 := NewL1(10*time.Minute, 10*time.Minute)
	k1 := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	k2 := domain.NewKey("MSFT", domain.QuarterlyFinancials)
	l1.SetHit(k1, testSeries("AAPL"))
	l1.SetHit(k2, testSeries("MSFT"))

	l1.Evict(k1)
	_, ok := l1.Get(k1)
	assert.False(t, ok)
	_, ok = l1.Get(k2)
	assert.True(t, ok)

	l1.Purge()
	assert.Equal(t, 0, l1.Len())
}
