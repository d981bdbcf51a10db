package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tapsafe/auth-service/internal/metrics"
	"github.com/tapsafe/auth-service/internal/repository"
)

// Sweeper periodically drops rate-limit records whose window has fully
// elapsed and blanks expired magic tokens. Pure hygiene: both expiries are
// also enforced at read time, so a missed sweep never changes behavior.
type Sweeper struct {
	rateLimits repository.RateLimitStore
	users      repository.UserStore
	schedule   cron.Schedule
	logger     *slog.Logger
}

func New(rateLimits repository.RateLimitStore, users repository.UserStore, cronExpr string, logger *slog.Logger) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse cleanup schedule %q: %w", cronExpr, err)
	}
	return &Sweeper{
		rateLimits: rateLimits,
		users:      users,
		schedule:   schedule,
		logger:     logger.With("component", "sweeper"),
	}, nil
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started")

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sweeper shut down")
			return
		case <-timer.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()

	pruned, err := s.rateLimits.DeleteExpiredBefore(ctx, start)
	if err != nil {
		s.logger.Error("sweep rate limit records", "error", err)
	} else if pruned > 0 {
		s.logger.Info("swept rate limit records", "count", pruned)
		metrics.SweeperPrunedTotal.WithLabelValues("rate_limits").Add(float64(pruned))
	}

	cleared, err := s.users.ClearExpiredTokens(ctx, start)
	if err != nil {
		s.logger.Error("sweep expired magic tokens", "error", err)
	} else if cleared > 0 {
		s.logger.Info("swept expired magic tokens", "count", cleared)
		metrics.SweeperPrunedTotal.WithLabelValues("magic_tokens").Add(float64(cleared))
	}

	metrics.SweeperCycleDuration.Observe(time.Since(start).Seconds())
}
