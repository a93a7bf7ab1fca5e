package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// Service runs the retention sweep that removes anonymous-session
// reports nobody has touched within the idle window. Registered users'
// reports are never swept.
type Service struct {
	cron    *cron.Cron
	storage interfaces.StorageManager
	config  *common.RetentionConfig
	maxIdle time.Duration
	logger  arbor.ILogger
}

// NewService creates a retention scheduler
func NewService(config *common.RetentionConfig, maxIdle time.Duration, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		cron:    cron.New(),
		storage: storage,
		config:  config,
		maxIdle: maxIdle,
		logger:  logger,
	}
}

// Start registers the sweep schedule and starts the cron runner
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Retention sweep disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("Retention sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Dur("max_idle", s.maxIdle).
		Msg("Retention sweep scheduled")
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep deletes idle anonymous reports and their associated state.
// Returns how many reports were removed.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	reports, err := s.storage.Reports().List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list reports: %w", err)
	}

	cutoff := time.Now().Add(-s.maxIdle)
	removed := 0
	for _, report := range reports {
		if !models.IsAnonymousIdentity(report.Identity) {
			continue
		}
		if report.UpdatedAt.After(cutoff) {
			continue
		}

		if err := s.storage.Reports().Delete(ctx, report.Identity); err != nil {
			s.logger.Warn().Str("identity", report.Identity).Err(err).Msg("Failed to sweep report")
			continue
		}
		s.storage.Jobs().Delete(ctx, report.Identity)
		s.storage.Outcomes().Delete(ctx, report.Identity)
		s.storage.KV().Delete(ctx, models.PendingDecisionKey(report.Identity))
		removed++
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Retention sweep removed idle anonymous reports")
	}
	return removed, nil
}
