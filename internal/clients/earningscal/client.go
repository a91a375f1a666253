// Package earningscal resolves per-ticker earnings dates from the trading
// data engine's calendar API and caches them briefly.
package earningscal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client queries the earnings calendar. An unreachable calendar is a normal
// condition, not an error: the refresh policy has a staleness fallback for
// exactly that case, so lookups degrade to "unknown" rather than failing the
// request that triggered them.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a calendar client. The timeout is deliberately short; an
// earnings lookup sits on the statements hot path.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "earnings_calendar").Logger(),
	}
}

type earningsResponse struct {
	Symbol           string `json:"symbol"`
	NextEarningsDate string `json:"nextEarningsDate"` // YYYY-MM-DD, may be empty
}

// NextOrLastEarningsDate returns the ticker's next scheduled earnings date,
// or the most recent one when none is scheduled. known=false means the
// calendar had no date or could not be reached.
func (c *Client) NextOrLastEarningsDate(ctx context.Context, ticker string) (time.Time, bool) {
	url := fmt.Sprintf("%s/api/market/earnings/next?symbol=%s", c.baseURL, ticker)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return time.Time{}, false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Earnings calendar unreachable")
		return time.Time{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("ticker", ticker).Msg("Earnings calendar returned non-OK")
		return time.Time{}, false
	}

	var payload earningsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to decode earnings calendar response")
		return time.Time{}, false
	}
	if payload.NextEarningsDate == "" {
		return time.Time{}, false
	}

	date, err := time.Parse("2006-01-02", payload.NextEarningsDate)
	if err != nil {
		c.log.Warn().Str("ticker", ticker).Str("date", payload.NextEarningsDate).Msg("Unparseable earnings date")
		return time.Time{}, false
	}
	return date, true
}
