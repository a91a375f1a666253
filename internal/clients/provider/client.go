// Package provider implements the HTTP client for the upstream financial
// statement provider.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/statements/internal/domain"
	"github.com/rs/zerolog"
)

// Client fetches statement batches from the provider API. Failures map onto
// the domain error taxonomy so callers can classify them with errors.Is.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a provider client. timeout bounds each request end to end.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "provider").Logger(),
	}
}

// statementsResponse is the provider's wire format: one batch of reporting
// periods for a single ticker and statement type.
type statementsResponse struct {
	Ticker  string `json:"ticker"`
	Records []struct {
		PeriodEnd string         `json:"period_end"`
		Fields    map[string]any `json:"fields"`
	} `json:"records"`
}

// FetchStatements retrieves the current batch for one ticker and statement
// type. The provider returns its full known window; merging against stored
// history is the caller's job.
func (c *Client) FetchStatements(ctx context.Context, ticker string, statementType domain.StatementType) ([]domain.StatementRecord, error) {
	url := fmt.Sprintf("%s/v1/statements/%s/%s", c.baseURL, ticker, statementType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrUpstreamUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", domain.ErrUpstreamNotFound, ticker, statementType)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s %s", domain.ErrUpstreamRateLimited, ticker, statementType)
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var payload statementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstreamUnavailable, err)
	}

	records := make([]domain.StatementRecord, 0, len(payload.Records))
	for _, rec := range payload.Records {
		if rec.PeriodEnd == "" {
			continue
		}
		records = append(records, domain.StatementRecord{
			PeriodEnd: rec.PeriodEnd,
			Fields:    rec.Fields,
		})
	}

	c.log.Debug().
		Str("ticker", ticker).
		Str("statement_type", string(statementType)).
		Int("records", len(records)).
		Msg("Fetched statements from provider")

	return records, nil
}
