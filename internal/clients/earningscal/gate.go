package earningscal

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CalendarClient is the lookup the gate wraps.
type CalendarClient interface {
	NextOrLastEarningsDate(ctx context.Context, ticker string) (time.Time, bool)
}

type gateEntry struct {
	date     time.Time
	known    bool
	cachedAt time.Time
}

// Gate fronts the calendar with a short per-ticker cache. Unknown answers are
// cached too, so a ticker with no listed earnings date does not hammer the
// calendar on every statements request.
type Gate struct {
	client CalendarClient
	ttl    time.Duration
	mu     sync.Mutex
	cache  map[string]gateEntry
	log    zerolog.Logger
	now    func() time.Time
}

// NewGate wraps client with a ttl-bounded lookup cache.
func NewGate(client CalendarClient, ttl time.Duration, log zerolog.Logger) *Gate {
	return &Gate{
		client: client,
		ttl:    ttl,
		cache:  make(map[string]gateEntry),
		log:    log.With().Str("component", "earnings_gate").Logger(),
		now:    time.Now,
	}
}

// NextOrLastEarningsDate answers from cache when fresh, otherwise consults
// the calendar and caches whatever came back.
func (g *Gate) NextOrLastEarningsDate(ctx context.Context, ticker string) (time.Time, bool) {
	ticker = strings.ToUpper(ticker)
	now := g.now()

	g.mu.Lock()
	entry, ok := g.cache[ticker]
	g.mu.Unlock()
	if ok && now.Sub(entry.cachedAt) < g.ttl {
		return entry.date, entry.known
	}

	date, known := g.client.NextOrLastEarningsDate(ctx, ticker)

	g.mu.Lock()
	g.cache[ticker] = gateEntry{date: date, known: known, cachedAt: now}
	g.mu.Unlock()

	return date, known
}
