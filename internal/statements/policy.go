package statements

import (
	"time"

	"github.com/aristath/statements/internal/domain"
)

// Decision is the outcome of evaluating whether a series needs an upstream fetch.
type Decision int

const (
	// ServeCache means the stored series is still current.
	ServeCache Decision = iota
	// FetchUpstream means the provider should be consulted.
	FetchUpstream
)

// Refresh reasons, surfaced in logs, events and API metadata. All date
// comparisons happen at day granularity: an earnings event gates a refresh by
// calendar day, not by instant.
const (
	ReasonColdStart              = "cold_start"
	ReasonForceRefresh           = "force_refresh"
	ReasonMissingLastRefresh     = "missing_last_refresh_date"
	ReasonBeforeEarningsDay      = "before_earnings_day"
	ReasonEarningsDayPassed      = "earnings_day_passed"
	ReasonBeforeCachedEarnings   = "before_cached_earnings_day"
	ReasonCachedEarningsPassed   = "cached_earnings_day_passed"
	ReasonAlreadyRefreshed       = "already_refreshed_after_earnings"
	ReasonNoEarningsDateRecent   = "no_earnings_date_recent"
	ReasonNoEarningsStaleTimeout = "no_earnings_date_stale_timeout"
)

// Evaluation pairs a decision with the reason that produced it.
type Evaluation struct {
	Decision Decision
	Reason   string
}

// Policy decides when a stored series warrants an upstream fetch, and whether
// stored data is still within the stale-serve budget after a failed fetch.
//
// The gating model: financial statements only change when a company reports,
// so a refresh is warranted when an earnings day has passed since the last
// fetch, not on a wall-clock TTL. When no earnings date is known at all, a
// max-staleness timeout keeps the series from going permanently stale.
type Policy struct {
	maxStaleness time.Duration
}

// NewPolicy builds a policy with the given stale-serve budget in days.
// Values below one day are clamped to one.
func NewPolicy(maxStalenessDays int) *Policy {
	if maxStalenessDays < 1 {
		maxStalenessDays = 1
	}
	return &Policy{maxStaleness: time.Duration(maxStalenessDays) * 24 * time.Hour}
}

// EvaluateRefresh decides whether the series needs an upstream fetch.
// earningsDate/earningsKnown carry the live calendar answer; a zero date with
// earningsKnown=false means the calendar had nothing to say.
func (p *Policy) EvaluateRefresh(now time.Time, series *domain.StatementSeries, earningsDate time.Time, earningsKnown bool, force bool) Evaluation {
	if force {
		return Evaluation{FetchUpstream, ReasonForceRefresh}
	}
	if series == nil || len(series.Records) == 0 {
		return Evaluation{FetchUpstream, ReasonColdStart}
	}
	if series.LastFetchedAt.IsZero() {
		return Evaluation{FetchUpstream, ReasonMissingLastRefresh}
	}

	today := dateOnly(now)
	lastFetchDay := dateOnly(series.LastFetchedAt)

	// The earnings date observed at the last fetch is a boundary of its own:
	// even when the live calendar is unavailable, crossing it tells us a
	// report has (probably) landed since we last looked.
	if cached, ok := parseDay(series.LastEarningsDate); ok {
		if today.Before(cached) {
			return Evaluation{ServeCache, ReasonBeforeCachedEarnings}
		}
		if lastFetchDay.Before(cached) {
			return Evaluation{FetchUpstream, ReasonCachedEarningsPassed}
		}
		if earningsKnown && !dateOnly(earningsDate).After(cached) {
			return Evaluation{ServeCache, ReasonAlreadyRefreshed}
		}
	}

	if !earningsKnown {
		if now.Sub(series.LastFetchedAt) > p.maxStaleness {
			return Evaluation{FetchUpstream, ReasonNoEarningsStaleTimeout}
		}
		return Evaluation{ServeCache, ReasonNoEarningsDateRecent}
	}

	earningsDay := dateOnly(earningsDate)
	if today.Before(earningsDay) {
		return Evaluation{ServeCache, ReasonBeforeEarningsDay}
	}
	if !lastFetchDay.Before(earningsDay) {
		return Evaluation{ServeCache, ReasonAlreadyRefreshed}
	}
	return Evaluation{FetchUpstream, ReasonEarningsDayPassed}
}

// WithinStalenessBudget reports whether a series is recent enough to serve as
// a stale fallback after a failed fetch.
func (p *Policy) WithinStalenessBudget(now time.Time, series *domain.StatementSeries) bool {
	if series == nil || len(series.Records) == 0 || series.LastFetchedAt.IsZero() {
		return false
	}
	return now.Sub(series.LastFetchedAt) <= p.maxStaleness
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
