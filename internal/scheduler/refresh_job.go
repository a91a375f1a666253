package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/statements/internal/domain"
	"github.com/rs/zerolog"
)

// BatchRefresher is the coordinator operation the job drives.
type BatchRefresher interface {
	BatchRefresh(ctx context.Context, tickers []string) map[string]domain.RefreshOutcome
}

// BatchRefreshJob force-refreshes the configured ticker universe. Individual
// ticker failures are tolerated; the job only errors when nothing succeeded,
// which usually means the provider is down outright.
type BatchRefreshJob struct {
	refresher BatchRefresher
	tickers   []string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewBatchRefreshJob creates the job.
func NewBatchRefreshJob(refresher BatchRefresher, tickers []string, log zerolog.Logger) *BatchRefreshJob {
	return &BatchRefreshJob{
		refresher: refresher,
		tickers:   tickers,
		timeout:   30 * time.Minute,
		log:       log.With().Str("job", "statements_batch_refresh").Logger(),
	}
}

// Name implements Job.
func (j *BatchRefreshJob) Name() string {
	return "statements_batch_refresh"
}

// Run implements Job.
func (j *BatchRefreshJob) Run() error {
	if len(j.tickers) == 0 {
		j.log.Warn().Msg("No tickers configured, skipping batch refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	outcomes := j.refresher.BatchRefresh(ctx, j.tickers)

	okTickers := 0
	for _, outcome := range outcomes {
		if outcome.OK() {
			okTickers++
		}
	}

	j.log.Info().
		Int("tickers", len(j.tickers)).
		Int("clean", okTickers).
		Msg("Batch refresh job finished")

	if okTickers == 0 && len(outcomes) > 0 {
		return fmt.Errorf("batch refresh failed for all %d tickers", len(outcomes))
	}
	return nil
}
