package statements

import (
	"testing"
	"time"

	"github.com/aristath/statements/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(periodEnd string, fields map[string]any) domain.StatementRecord {
	return domain.StatementRecord{PeriodEnd: periodEnd, Fields: fields}
}

func TestMergeIntoEmpty(t *testing.T) {
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	fetchedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	merged := Merge(key, nil, []domain.StatementRecord{
		rec("2026-03-31", map[string]any{"Total Revenue": 100.0}),
		rec("2026-06-30", map[string]any{"Total Revenue": 110.0}),
	}, fetchedAt, "2026-07-30")

	require.Len(t, merged.Records, 2)
	assert.Equal(t, "AAPL", merged.Ticker)
	assert.Equal(t, domain.QuarterlyFinancials, merged.Type)
	// Newest first
	assert.Equal(t, "2026-06-30", merged.Records[0].PeriodEnd)
	assert.Equal(t, "2026-03-31", merged.Records[1].PeriodEnd)
	assert.Equal(t, fetchedAt, merged.LastFetchedAt)
	assert.Equal(t, "2026-07-30", merged.LastEarningsDate)
	assert.Equal(t, fetchedAt, merged.Records[0].FetchedAt)
}

func TestMergeNeverDeletesHistory(t *testing.T) {
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	existing := Merge(key, nil, []domain.StatementRecord{
		rec("2025-09-30", map[string]any{"Total Revenue": 90.0}),
		rec("2025-12-31", map[string]any{"Total Revenue": 95.0}),
		rec("2026-03-31", map[string]any{"Total Revenue": 100.0}),
	}, t0, "")

	// Upstream window slid forward and no longer includes 2025-09-30.
	merged := Merge(key, existing, []domain.StatementRecord{
		rec("2026-03-31", map[string]any{"Total Revenue": 100.0}),
		rec("2026-06-30", map[string]any{"Total Revenue": 110.0}),
	}, t1, "")

	require.Len(t, merged.Records, 4)
	_, ok := merged.Record("2025-09-30")
	assert.True(t, ok, "period absent from incoming batch must survive")
	assert.Equal(t, "2026-06-30", merged.Records[0].PeriodEnd)
}

func TestMergeRevisionReplacesRecordEntirely(t *testing.T) {
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	existing := Merge(key, nil, []domain.StatementRecord{
		rec("2026-03-31", map[string]any{"Total Revenue": 100.0, "Preliminary": true}),
	}, t0, "")

	merged := Merge(key, existing, []domain.StatementRecord{
		rec("2026-03-31", map[string]any{"Total Revenue": 102.5}),
	}, t1, "")

	require.Len(t, merged.Records, 1)
	got, ok := merged.Record("2026-03-31")
	require.True(t, ok)
	assert.Equal(t, 102.5, got.Fields["Total Revenue"])
	// Full replace: fields from the old revision do not leak through.
	_, hasOld := got.Fields["Preliminary"]
	assert.False(t, hasOld)
	assert.Equal(t, t1, got.FetchedAt)
}

func TestMergeIdempotent(t *testing.T) {
	key := domain.NewKey("MSFT", domain.AnnualFinancials)
	fetchedAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	batch := []domain.StatementRecord{
		rec("2025-06-30", map[string]any{"Total Revenue": 200.0}),
		rec("2026-06-30", map[string]any{"Total Revenue": 220.0}),
	}

	once := Merge(key, nil, batch, fetchedAt, "2026-07-25")
	twice := Merge(key, once, batch, fetchedAt, "2026-07-25")

	assert.Equal(t, once, twice)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	existing := Merge(key, nil, []domain.StatementRecord{
		rec("2026-03-31", map[string]any{"Total Revenue": 100.0}),
	}, t0, "2026-04-30")

	incoming := []domain.StatementRecord{
		rec("2026-03-31", map[string]any{"Total Revenue": 999.0}),
	}
	_ = Merge(key, existing, incoming, t0.Add(24*time.Hour), "")

	got, _ := existing.Record("2026-03-31")
	assert.Equal(t, 100.0, got.Fields["Total Revenue"], "existing series must stay untouched")
	assert.True(t, incoming[0].FetchedAt.IsZero(), "incoming slice must stay untouched")
}

func TestMergeCarriesEarningsDateForward(t *testing.T) {
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	existing := Merge(key, nil, []domain.StatementRecord{rec("2026-03-31", nil)}, t0, "2026-04-30")

	// Calendar had nothing this time: the stored boundary survives.
	merged := Merge(key, existing, []domain.StatementRecord{rec("2026-06-30", nil)}, t0.Add(time.Hour), "")
	assert.Equal(t, "2026-04-30", merged.LastEarningsDate)

	// A fresh observation replaces it.
	merged = Merge(key, merged, nil, t0.Add(2*time.Hour), "2026-07-30")
	assert.Equal(t, "2026-07-30", merged.LastEarningsDate)
}

func TestMergeSkipsRecordsWithoutPeriodEnd(t *testing.T) {
	key := domain.NewKey("AAPL", domain.QuarterlyFinancials)
	merged := Merge(key, nil, []domain.StatementRecord{
		rec("", map[string]any{"Total Revenue": 1.0}),
		rec("2026-06-30", map[string]any{"Total Revenue": 2.0}),
	}, time.Now(), "")

	require.Len(t, merged.Records, 1)
	assert.Equal(t, "2026-06-30", merged.Records[0].PeriodEnd)
}
