package earningscal

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingClient struct {
	calls int
	date  time.Time
	known bool
}

func (c *countingClient) NextOrLastEarningsDate(ctx context.Context, ticker string) (time.Time, bool) {
	c.calls++
	return c.date, c.known
}

func TestGateCachesLookups(t *testing.T) {
	client := &countingClient{date: time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC), known: true}
	gate := NewGate(client, time.Hour, zerolog.Nop())
	ctx := context.Background()

	date, known := gate.NextOrLastEarningsDate(ctx, "AAPL")
	assert.True(t, known)
	assert.Equal(t, client.date, date)

	// Repeat lookups inside the TTL, including lowercase, hit the cache.
	_, _ = gate.NextOrLastEarningsDate(ctx, "AAPL")
	_, _ = gate.NextOrLastEarningsDate(ctx, "aapl")
	assert.Equal(t, 1, client.calls)

	// Another ticker is its own entry.
	_, _ = gate.NextOrLastEarningsDate(ctx, "MSFT")
	assert.Equal(t, 2, client.calls)
}

func TestGateCachesUnknownAnswers(t *testing.T) {
	client := &countingClient{}
	gate := NewGate(client, time.Hour, zerolog.Nop())
	ctx := context.Background()

	_, known := gate.NextOrLastEarningsDate(ctx, "AAPL")
	assert.False(t, known)
	_, known = gate.NextOrLastEarningsDate(ctx, "AAPL")
	assert.False(t, known)
	assert.Equal(t, 1, client.calls, "unknown answers are cached too")
}

func TestGateExpiry(t *testing.T) {
	client := &countingClient{known: true, date: time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC)}
	gate := NewGate(client, time.Hour, zerolog.Nop())
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = gate.NextOrLastEarningsDate(ctx, "AAPL")
	assert.Equal(t, 1, client.calls)

	now = now.Add(2 * time.Hour)
	_, _ = gate.NextOrLastEarningsDate(ctx, "AAPL")
	assert.Equal(t, 2, client.calls)
}
