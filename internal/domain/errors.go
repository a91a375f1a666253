package domain

import "errors"

// Error taxonomy for the statements engine. Callers classify failures with
// errors.Is; wrapping preserves the underlying cause.
var (
	// ErrUpstreamUnavailable covers network failures, timeouts, and 5xx
	// responses from the statement provider.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrUpstreamRateLimited is returned when the provider throttles us.
	ErrUpstreamRateLimited = errors.New("upstream provider rate limited")

	// ErrUpstreamNotFound means the provider has no data for the requested
	// ticker and statement type. This is a cacheable, definitive answer.
	ErrUpstreamNotFound = errors.New("no statement data upstream")

	// ErrStorageRead marks a durable-store read failure.
	ErrStorageRead = errors.New("statement store read failed")

	// ErrStorageWrite marks a durable-store write failure. Data returned
	// alongside this error is usable but was not persisted.
	ErrStorageWrite = errors.New("statement store write failed")

	// ErrNoUsableData means the upstream fetch failed and no stored data
	// within the staleness budget exists to fall back on.
	ErrNoUsableData = errors.New("no usable statement data")
)
