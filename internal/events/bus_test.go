package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var received []*Event
	bus.Subscribe(StatementsRefreshed, func(event *Event) {
		received = append(received, event)
	})

	data := &StatementsRefreshedData{Ticker: "AAPL", StatementType: "quarterly_financials", Periods: 8, Reason: "earnings_day_passed"}
	bus.Emit(StatementsRefreshed, "test", data)

	require.Len(t, received, 1)
	assert.Equal(t, StatementsRefreshed, received[0].Type)
	assert.Equal(t, "test", received[0].Source)
	assert.Equal(t, data, received[0].Data)
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestBusFiltersByType(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	refreshed := 0
	stale := 0
	bus.Subscribe(StatementsRefreshed, func(*Event) { refreshed++ })
	bus.Subscribe(StaleServed, func(*Event) { stale++ })

	bus.Emit(StatementsRefreshed, "test", nil)
	bus.Emit(StatementsRefreshed, "test", nil)
	bus.Emit(StaleServed, "test", nil)

	assert.Equal(t, 2, refreshed)
	assert.Equal(t, 1, stale)
}

func TestBusMultipleHandlersPerType(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	bus.Subscribe(BatchCompleted, func(*Event) { calls++ })
	bus.Subscribe(BatchCompleted, func(*Event) { calls++ })

	bus.Emit(BatchCompleted, "test", &BatchCompletedData{RunID: "abc123", Requested: 5})
	assert.Equal(t, 2, calls)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	unsubscribe := bus.Subscribe(StatementsRefreshed, func(*Event) { calls++ })

	bus.Emit(StatementsRefreshed, "test", nil)
	unsubscribe()
	bus.Emit(StatementsRefreshed, "test", nil)

	assert.Equal(t, 1, calls)

	// A second unsubscribe is harmless.
	unsubscribe()
}

func TestBusUnsubscribeLeavesOtherHandlers(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	first, second := 0, 0
	unsubscribeFirst := bus.Subscribe(StatementsRefreshed, func(*Event) { first++ })
	bus.Subscribe(StatementsRefreshed, func(*Event) { second++ })

	unsubscribeFirst()
	bus.Emit(StatementsRefreshed, "test", nil)

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestBusEmitWithNoSubscribers(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	// Must not panic.
	bus.Emit(StaleServed, "test", &StaleServedData{Ticker: "AAPL"})
}

func TestEventDataTypes(t *testing.T) {
	assert.Equal(t, StatementsRefreshed, (&StatementsRefreshedData{}).EventType())
	assert.Equal(t, StaleServed, (&StaleServedData{}).EventType())
	assert.Equal(t, BatchCompleted, (&BatchCompletedData{}).EventType())
}
