// Package domain contains the pure business types for the statements engine.
// Nothing in this package depends on storage, transport, or other infrastructure.
package domain

import (
	"sort"
	"strings"
	"time"
)

// StatementType identifies one of the financial statement series tracked per ticker.
type StatementType string

const (
	AnnualFinancials      StatementType = "annual_financials"
	AnnualBalanceSheet    StatementType = "annual_balance_sheet"
	AnnualCashflow        StatementType = "annual_cashflow"
	AnnualEarnings        StatementType = "annual_earnings"
	QuarterlyFinancials   StatementType = "quarterly_financials"
	QuarterlyBalanceSheet StatementType = "quarterly_balance_sheet"
	QuarterlyCashflow     StatementType = "quarterly_cashflow"
	QuarterlyEarnings     StatementType = "quarterly_earnings"
)

// AllStatementTypes lists every series a full refresh covers.
var AllStatementTypes = []StatementType{
	AnnualFinancials,
	AnnualBalanceSheet,
	AnnualCashflow,
	AnnualEarnings,
	QuarterlyFinancials,
	QuarterlyBalanceSheet,
	QuarterlyCashflow,
	QuarterlyEarnings,
}

// Valid reports whether t is one of the known statement types.
func (t StatementType) Valid() bool {
	for _, known := range AllStatementTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Key identifies a single cached series: one ticker, one statement type.
type Key struct {
	Ticker string
	Type   StatementType
}

// NewKey builds a normalized key. Tickers are uppercased so "aapl" and "AAPL"
// resolve to the same series.
func NewKey(ticker string, t StatementType) Key {
	return Key{Ticker: strings.ToUpper(strings.TrimSpace(ticker)), Type: t}
}

func (k Key) String() string {
	return k.Ticker + ":" + string(k.Type)
}

// StatementRecord is a single reporting period within a series. PeriodEnd is the
// period-end date in YYYY-MM-DD form and is the identity of the record within
// its series. Fields holds the reported line items as the provider returned them.
type StatementRecord struct {
	PeriodEnd string         `json:"period_end" msgpack:"period_end"`
	Fields    map[string]any `json:"fields" msgpack:"fields"`
	FetchedAt time.Time      `json:"fetched_at" msgpack:"fetched_at"`
}

// StatementSeries is the full per-key dataset: all known reporting periods plus
// the refresh metadata the gating policy reads. Records are kept sorted by
// PeriodEnd, newest first. A series handed out by the coordinator must be
// treated as immutable; merges always produce a new series.
type StatementSeries struct {
	Ticker  string            `json:"ticker" msgpack:"ticker"`
	Type    StatementType     `json:"statement_type" msgpack:"statement_type"`
	Records []StatementRecord `json:"records" msgpack:"records"`

	// LastFetchedAt is when the upstream provider was last consulted
	// successfully for this series.
	LastFetchedAt time.Time `json:"last_fetched_at" msgpack:"last_fetched_at"`

	// LastEarningsDate is the earnings date (YYYY-MM-DD) that was observed
	// from the calendar at the time of the last successful fetch. Empty when
	// the calendar had no date to give.
	LastEarningsDate string `json:"last_earnings_date,omitempty" msgpack:"last_earnings_date"`
}

// Record returns the record for the given period-end date, if present.
func (s *StatementSeries) Record(periodEnd string) (StatementRecord, bool) {
	for _, rec := range s.Records {
		if rec.PeriodEnd == periodEnd {
			return rec, true
		}
	}
	return StatementRecord{}, false
}

// PeriodEnds returns the period-end dates in stored order (newest first).
func (s *StatementSeries) PeriodEnds() []string {
	out := make([]string, len(s.Records))
	for i, rec := range s.Records {
		out[i] = rec.PeriodEnd
	}
	return out
}

// Age reports how long ago the series was last fetched from upstream.
func (s *StatementSeries) Age(now time.Time) time.Duration {
	if s.LastFetchedAt.IsZero() {
		return 0
	}
	return now.Sub(s.LastFetchedAt)
}

// SortRecords orders the records newest first by period-end date.
// YYYY-MM-DD strings sort correctly lexicographically.
func (s *StatementSeries) SortRecords() {
	sort.Slice(s.Records, func(i, j int) bool {
		return s.Records[i].PeriodEnd > s.Records[j].PeriodEnd
	})
}

// CacheStatus reports which tier satisfied a Get.
type CacheStatus string

const (
	// CacheL1Hit means the in-process cache answered without touching storage.
	CacheL1Hit CacheStatus = "l1_hit"
	// CacheL2Hit means the durable store answered and no refresh was warranted.
	CacheL2Hit CacheStatus = "l2_hit"
	// CacheRefreshed means the upstream provider was consulted on this request.
	CacheRefreshed CacheStatus = "refreshed"
	// CacheStaleFallback means the upstream fetch failed and stored data within
	// the staleness budget was served instead.
	CacheStaleFallback CacheStatus = "stale_fallback"
)

// RefreshOutcome summarizes one ticker's portion of a batch refresh.
type RefreshOutcome struct {
	Ticker     string `json:"ticker"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// OK reports whether every series for the ticker refreshed cleanly.
func (o RefreshOutcome) OK() bool {
	return o.Failed == 0
}
