// Package jobs schedules the periodic background work of the API process.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/harentsoaR/clinic-api/internal/booking"
)

// Auditor runs one ledger audit. *booking.Reconciler satisfies it.
type Auditor interface {
	Run(ctx context.Context) (booking.Report, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewScheduler registers the ledger audit on spec, a standard five-field cron
// expression. Each run is bounded by timeout.
func NewScheduler(spec string, auditor Auditor, timeout time.Duration, logger zerolog.Logger) (*Scheduler, error) {
	logger = logger.With().Str("component", "jobs").Logger()
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(spec, func() {
		RunLedgerAudit(context.Background(), auditor, timeout, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule ledger audit %q: %w", spec, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
	s.cron.Start()
}

// Stop waits for a running job to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunLedgerAudit runs one audit and logs its outcome.
func RunLedgerAudit(ctx context.Context, auditor Auditor, timeout time.Duration, logger zerolog.Logger) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	report, err := auditor.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("ledger audit failed")
		return
	}
	if !report.Consistent() {
		logger.Error().
			Interface("orphaned", report.Orphaned).
			Interface("missing", report.Missing).
			Msg("slot ledger is inconsistent")
	}
}
