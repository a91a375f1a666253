package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/statements/internal/domain"
	"github.com/aristath/statements/internal/statements"
)

// StatementsService is the coordinator surface the handlers need. Declared
// here so handler tests can fake it.
type StatementsService interface {
	Get(ctx context.Context, ticker string, statementType domain.StatementType, forceRefresh bool) (*domain.StatementSeries, domain.CacheStatus, error)
	BatchRefresh(ctx context.Context, tickers []string) map[string]domain.RefreshOutcome
}

// StatementHandlers serves the statements API.
type StatementHandlers struct {
	svc StatementsService
	log zerolog.Logger
}

// NewStatementHandlers creates statement handlers
func NewStatementHandlers(svc StatementsService, log zerolog.Logger) *StatementHandlers {
	return &StatementHandlers{
		svc: svc,
		log: log.With().Str("handler", "statements").Logger(),
	}
}

// seriesResponse is the API shape for one statement series.
type seriesResponse struct {
	Ticker           string                   `json:"ticker"`
	StatementType    string                   `json:"statement_type"`
	CacheStatus      string                   `json:"cache_status"`
	Records          []domain.StatementRecord `json:"records"`
	LastFetchedAt    *time.Time               `json:"last_fetched_at,omitempty"`
	LastEarningsDate string                   `json:"last_earnings_date,omitempty"`
	Durable          bool                     `json:"durable"`
}

// HandleGetStatements serves GET /api/statements/{ticker}/{type}
func (h *StatementHandlers) HandleGetStatements(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	statementType := domain.StatementType(chi.URLParam(r, "type"))
	if !statementType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown statement type")
		return
	}

	force, _ := strconv.ParseBool(r.URL.Query().Get("force_refresh"))

	series, status, err := h.svc.Get(r.Context(), ticker, statementType, force)
	if err != nil && series == nil {
		h.writeServiceError(w, err)
		return
	}

	resp := seriesResponse{
		Ticker:        series.Ticker,
		StatementType: string(series.Type),
		CacheStatus:   string(status),
		Records:       series.Records,
		Durable:       err == nil,
	}
	if !series.LastFetchedAt.IsZero() {
		resp.LastFetchedAt = &series.LastFetchedAt
	}
	resp.LastEarningsDate = series.LastEarningsDate

	// err != nil with a usable series means the refresh succeeded but could
	// not be persisted; the response carries the data with durable=false.
	if err != nil {
		h.log.Warn().Err(err).Str("ticker", series.Ticker).Msg("Serving non-durable refresh result")
	}
	writeJSON(w, http.StatusOK, resp)
}

// batchRefreshRequest is the POST body for batch refreshes.
type batchRefreshRequest struct {
	Tickers []string `json:"tickers"`
}

// HandleBatchRefresh serves POST /api/statements/batch_refresh
func (h *StatementHandlers) HandleBatchRefresh(w http.ResponseWriter, r *http.Request) {
	var req batchRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers list is empty")
		return
	}
	if len(req.Tickers) > 100 {
		writeError(w, http.StatusBadRequest, "too many tickers (max 100)")
		return
	}

	outcomes := h.svc.BatchRefresh(r.Context(), req.Tickers)
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

// HandleGetSignal serves GET /api/statements/{ticker}/signal
// It computes the fundamental factor signal from the quarterly series,
// going through the normal cache path (no forced refresh).
func (h *StatementHandlers) HandleGetSignal(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	ctx := r.Context()

	get := func(st domain.StatementType) *domain.StatementSeries {
		series, _, err := h.svc.Get(ctx, ticker, st, false)
		if err != nil && series == nil {
			return nil
		}
		return series
	}

	fin := get(domain.QuarterlyFinancials)
	bal := get(domain.QuarterlyBalanceSheet)
	cf := get(domain.QuarterlyCashflow)
	earn := get(domain.QuarterlyEarnings)

	if fin == nil && bal == nil && cf == nil && earn == nil {
		writeError(w, http.StatusNotFound, "no statement data available for ticker")
		return
	}

	signal := statements.ComputeFundamentalSignal(fin, bal, cf, earn)
	writeJSON(w, http.StatusOK, map[string]any{
		"ticker": domain.NewKey(ticker, domain.QuarterlyFinancials).Ticker,
		"signal": signal,
	})
}

func (h *StatementHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUpstreamNotFound):
		writeError(w, http.StatusNotFound, "no statement data for ticker")
	case errors.Is(err, domain.ErrUpstreamRateLimited):
		writeError(w, http.StatusTooManyRequests, "upstream rate limited")
	case errors.Is(err, domain.ErrNoUsableData), errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
