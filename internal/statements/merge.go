// Package statements implements the tiered cache and earnings-gated refresh
// engine for financial statement series.
package statements

import (
	"time"

	"github.com/aristath/statements/internal/domain"
)

// Merge reconciles a freshly fetched batch of records into an existing series.
// It is a pure function: neither input is mutated, and the result is a new
// series. Merge semantics are revision-safe:
//
//   - records are keyed by period-end date; an incoming period that already
//     exists replaces the stored record entirely (restated filings win),
//   - periods absent from the incoming batch are kept; upstream truncation
//     never deletes history,
//   - the result is sorted newest first.
//
// fetchedAt stamps the incoming records and the series metadata.
// observedEarnings (YYYY-MM-DD, may be empty) records the earnings date that
// was in effect when this fetch happened; when empty, the previously stored
// date carries over.
func Merge(key domain.Key, existing *domain.StatementSeries, incoming []domain.StatementRecord, fetchedAt time.Time, observedEarnings string) *domain.StatementSeries {
	byPeriod := make(map[string]domain.StatementRecord)
	if existing != nil {
		for _, rec := range existing.Records {
			byPeriod[rec.PeriodEnd] = rec
		}
	}

	for _, rec := range incoming {
		if rec.PeriodEnd == "" {
			continue
		}
		rec.Fields = copyFields(rec.Fields)
		rec.FetchedAt = fetchedAt
		byPeriod[rec.PeriodEnd] = rec
	}

	merged := &domain.StatementSeries{
		Ticker:        key.Ticker,
		Type:          key.Type,
		Records:       make([]domain.StatementRecord, 0, len(byPeriod)),
		LastFetchedAt: fetchedAt,
	}
	for _, rec := range byPeriod {
		merged.Records = append(merged.Records, rec)
	}
	merged.SortRecords()

	merged.LastEarningsDate = observedEarnings
	if merged.LastEarningsDate == "" && existing != nil {
		merged.LastEarningsDate = existing.LastEarningsDate
	}

	return merged
}

func copyFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
