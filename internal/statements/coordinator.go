package statements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/statements/internal/cache"
	"github.com/aristath/statements/internal/domain"
	"github.com/aristath/statements/internal/events"
	"github.com/aristath/statements/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UpstreamFetcher retrieves the current statement batch from the provider.
type UpstreamFetcher interface {
	FetchStatements(ctx context.Context, ticker string, statementType domain.StatementType) ([]domain.StatementRecord, error)
}

// EarningsGate answers "when does/did this ticker report". known=false means
// the calendar had nothing to say, which shifts the policy onto its
// staleness fallback.
type EarningsGate interface {
	NextOrLastEarningsDate(ctx context.Context, ticker string) (date time.Time, known bool)
}

// Coordinator is the single entry point for statement reads. It owns the
// cache hierarchy: L1 answers repeat reads, the durable store is the source
// of truth, the policy decides when upstream is consulted, and the coalescer
// guarantees at most one in-flight refresh per key.
type Coordinator struct {
	l1      *cache.L1
	store   storage.SeriesStore
	fetcher UpstreamFetcher
	gate    EarningsGate
	policy  *Policy
	flights cache.Coalescer
	bus     *events.Bus // optional

	fetchTimeout time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

// Config wires a Coordinator. Bus may be nil.
type Config struct {
	L1               *cache.L1
	Store            storage.SeriesStore
	Fetcher          UpstreamFetcher
	Gate             EarningsGate
	Bus              *events.Bus
	FetchTimeout     time.Duration
	MaxStalenessDays int
	Log              zerolog.Logger
}

// NewCoordinator creates the coordinator service.
func NewCoordinator(cfg Config) *Coordinator {
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Coordinator{
		l1:           cfg.L1,
		store:        cfg.Store,
		fetcher:      cfg.Fetcher,
		gate:         cfg.Gate,
		policy:       NewPolicy(cfg.MaxStalenessDays),
		bus:          cfg.Bus,
		fetchTimeout: fetchTimeout,
		log:          cfg.Log.With().Str("service", "statements_coordinator").Logger(),
		now:          time.Now,
	}
}

// getResult is what one coalesced refresh produces. A result can carry both a
// usable series and an error (stored data that failed to persist durably).
type getResult struct {
	series *domain.StatementSeries
	status domain.CacheStatus
	reason string
}

// Get returns the statement series for a ticker, refreshing from upstream
// only when the earnings-gated policy says the stored data may be outdated.
// forceRefresh bypasses both L1 and the policy but not the coalescer: forced
// refreshes share a single upstream fetch with other concurrent forced
// callers, never with a policy-driven refresh that might skip upstream.
//
// The returned series must be treated as read-only; it may be shared with
// other callers through L1.
func (c *Coordinator) Get(ctx context.Context, ticker string, statementType domain.StatementType, forceRefresh bool) (*domain.StatementSeries, domain.CacheStatus, error) {
	if !statementType.Valid() {
		return nil, "", fmt.Errorf("unknown statement type %q", statementType)
	}
	key := domain.NewKey(ticker, statementType)
	if key.Ticker == "" {
		return nil, "", fmt.Errorf("empty ticker")
	}

	if !forceRefresh {
		if entry, ok := c.l1.Get(key); ok {
			if entry.Kind == cache.EntryMiss {
				return nil, domain.CacheL1Hit, fmt.Errorf("%w: %s (cached)", domain.ErrUpstreamNotFound, key)
			}
			return entry.Series, domain.CacheL1Hit, nil
		}
	}

	// Everything below L1 is coalesced: concurrent callers for the same key
	// share one store read and at most one upstream fetch. The refresh runs
	// detached from any single caller's context; a waiter that gives up
	// detaches without cancelling the shared work. Forced callers never
	// piggyback on a policy-driven flight, which could resolve to a cache
	// serve; they coalesce only with other forced callers.
	flightKey := key.String()
	if forceRefresh {
		flightKey += "|force"
	}
	v, shared, err := c.flights.Do(ctx, flightKey, func() (any, error) {
		return c.refresh(key, forceRefresh)
	})
	if v == nil {
		if err == nil {
			err = fmt.Errorf("refresh %s: no result", key)
		}
		return nil, "", err
	}

	res := v.(*getResult)
	if shared {
		c.log.Debug().Str("key", key.String()).Msg("Joined in-flight refresh")
	}
	return res.series, res.status, err
}

// refresh is the coalesced slow path: consult the durable store, ask the
// policy whether upstream is warranted, fetch/merge/persist when it is, and
// fall back to stale stored data when the fetch fails inside the budget.
// It deliberately takes no caller context.
func (c *Coordinator) refresh(key domain.Key, force bool) (*getResult, error) {
	now := c.now()
	log := c.log.With().Str("key", key.String()).Logger()

	storeCtx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	stored, found, readErr := c.store.Get(storeCtx, key)
	if readErr != nil {
		// A broken store read degrades to a cold start: upstream can still
		// answer, and a successful fetch rewrites the damaged entry.
		log.Error().Err(readErr).Msg("Durable store read failed, treating as absent")
		stored, found = nil, false
	}

	var earningsDate time.Time
	var earningsKnown bool
	if found && !force {
		// Cold starts and forced refreshes fetch unconditionally; only a
		// policy evaluation needs the calendar.
		gateCtx, gateCancel := context.WithTimeout(context.Background(), 5*time.Second)
		earningsDate, earningsKnown = c.gate.NextOrLastEarningsDate(gateCtx, key.Ticker)
		gateCancel()
	}

	eval := c.policy.EvaluateRefresh(now, stored, earningsDate, earningsKnown, force)
	if eval.Decision == ServeCache {
		log.Debug().Str("reason", eval.Reason).Msg("Serving durable store, no refresh warranted")
		c.l1.SetHit(key, stored)
		return &getResult{series: stored, status: domain.CacheL2Hit, reason: eval.Reason}, nil
	}

	fetchCtx, fetchCancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer fetchCancel()

	records, fetchErr := c.fetcher.FetchStatements(fetchCtx, key.Ticker, key.Type)
	if fetchErr == nil {
		observed := ""
		if earningsKnown {
			observed = earningsDate.Format("2006-01-02")
		} else if d, ok := c.gate.NextOrLastEarningsDate(fetchCtx, key.Ticker); ok {
			observed = d.Format("2006-01-02")
		}

		merged := Merge(key, stored, records, c.now(), observed)
		c.l1.SetHit(key, merged)
		c.emitRefreshed(key, merged, eval.Reason)

		// storeCtx may already be exhausted after the gate lookup and the
		// fetch, so the persist gets a fresh deadline.
		putCtx, putCancel := context.WithTimeout(context.Background(), c.fetchTimeout)
		defer putCancel()
		if putErr := c.store.Put(putCtx, key, merged); putErr != nil {
			// The merged data is good and already cached; only durability
			// failed. Surface that distinctly so callers can alert on it.
			log.Error().Err(putErr).Msg("Refreshed series could not be persisted")
			return &getResult{series: merged, status: domain.CacheRefreshed, reason: eval.Reason},
				fmt.Errorf("refresh %s: %w", key, putErr)
		}

		log.Info().
			Str("reason", eval.Reason).
			Int("periods", len(merged.Records)).
			Msg("Refreshed statements from upstream")
		return &getResult{series: merged, status: domain.CacheRefreshed, reason: eval.Reason}, nil
	}

	if errors.Is(fetchErr, domain.ErrUpstreamNotFound) && !found {
		// Definitive absence with no history: cache the miss so the next
		// callers don't re-ask upstream for the miss TTL.
		c.l1.SetMiss(key)
		log.Debug().Msg("Upstream has no data, caching negative entry")
		return &getResult{status: domain.CacheRefreshed}, fetchErr
	}

	if c.policy.WithinStalenessBudget(now, stored) {
		age := stored.Age(now)
		log.Warn().
			Err(fetchErr).
			Float64("age_hours", age.Hours()).
			Msg("Upstream fetch failed, serving stale stored data")
		c.l1.SetHit(key, stored)
		c.emitStaleServed(key, age, fetchErr)
		return &getResult{series: stored, status: domain.CacheStaleFallback, reason: eval.Reason}, nil
	}

	// No usable data at all. Nothing is cached: the next caller should retry
	// upstream rather than inherit this failure.
	log.Error().Err(fetchErr).Msg("Upstream fetch failed with no usable fallback")
	err := fmt.Errorf("refresh %s: %w: %w", key, domain.ErrNoUsableData, fetchErr)
	if readErr != nil {
		err = fmt.Errorf("%w (store read also failed: %v)", err, readErr)
	}
	return &getResult{}, err
}

// BatchRefresh force-refreshes every statement type for each ticker. Failures
// are isolated per ticker and per series: one bad ticker never aborts the
// run. Intended for the scheduled nightly job and the batch API endpoint.
func (c *Coordinator) BatchRefresh(ctx context.Context, tickers []string) map[string]domain.RefreshOutcome {
	runID := uuid.New().String()[:8]
	started := c.now()
	log := c.log.With().Str("run_id", runID).Logger()
	log.Info().Int("tickers", len(tickers)).Msg("Starting batch refresh")

	outcomes := make(map[string]domain.RefreshOutcome, len(tickers))
	totalOK, totalFailed := 0, 0

	for _, ticker := range tickers {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("Batch refresh cancelled")
			break
		}

		tickerStart := c.now()
		outcome := domain.RefreshOutcome{Ticker: ticker}
		for _, st := range domain.AllStatementTypes {
			_, _, err := c.Get(ctx, ticker, st, true)
			if err != nil {
				outcome.Failed++
				if outcome.Error == "" {
					outcome.Error = err.Error()
				}
				continue
			}
			outcome.Succeeded++
		}
		outcome.DurationMS = c.now().Sub(tickerStart).Milliseconds()
		outcomes[ticker] = outcome

		totalOK += outcome.Succeeded
		totalFailed += outcome.Failed
		if !outcome.OK() {
			log.Warn().
				Str("ticker", ticker).
				Int("failed", outcome.Failed).
				Str("error", outcome.Error).
				Msg("Ticker refresh had failures")
		}
	}

	duration := c.now().Sub(started)
	log.Info().
		Int("succeeded", totalOK).
		Int("failed", totalFailed).
		Dur("duration", duration).
		Msg("Batch refresh completed")

	if c.bus != nil {
		c.bus.Emit(events.BatchCompleted, "statements_coordinator", &events.BatchCompletedData{
			RunID:      runID,
			Requested:  len(tickers),
			Succeeded:  totalOK,
			Failed:     totalFailed,
			DurationMS: duration.Milliseconds(),
		})
	}
	return outcomes
}

// EvictL1 drops the in-process entry for a key. Used by tests and the admin
// surface; normal flow relies on TTL expiry.
func (c *Coordinator) EvictL1(ticker string, statementType domain.StatementType) {
	c.l1.Evict(domain.NewKey(ticker, statementType))
}

func (c *Coordinator) emitRefreshed(key domain.Key, series *domain.StatementSeries, reason string) {
	if c.bus == nil {
		return
	}
	c.bus.Emit(events.StatementsRefreshed, "statements_coordinator", &events.StatementsRefreshedData{
		Ticker:        key.Ticker,
		StatementType: string(key.Type),
		Periods:       len(series.Records),
		Reason:        reason,
	})
}

func (c *Coordinator) emitStaleServed(key domain.Key, age time.Duration, cause error) {
	if c.bus == nil {
		return
	}
	c.bus.Emit(events.StaleServed, "statements_coordinator", &events.StaleServedData{
		Ticker:        key.Ticker,
		StatementType: string(key.Type),
		AgeHours:      age.Hours(),
		Error:         cause.Error(),
	})
}
