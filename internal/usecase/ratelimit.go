package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tapsafe/auth-service/internal/domain"
	"github.com/tapsafe/auth-service/internal/metrics"
	"github.com/tapsafe/auth-service/internal/repository"
)

const (
	defaultRateLimitWindow = 15 * time.Minute
	defaultRateLimitMax    = 3

	// rateLimitKeyPrefix namespaces magic-link throttling away from any
	// other feature sharing the rate_limits table.
	rateLimitKeyPrefix = "magiclink:"

	// casAttempts bounds how often a lost conditional write is retried
	// before degrading to a plain write.
	casAttempts = 3
)

// RateLimiter enforces a sliding-window cap on magic-link requests per
// email. When the backing store is unreachable it fails open: locking users
// out of login because the throttle database is down is the worse trade.
type RateLimiter struct {
	store  repository.RateLimitStore
	window time.Duration
	max    int
	logger *slog.Logger
	now    func() time.Time
}

func NewRateLimiter(store repository.RateLimitStore, window time.Duration, max int, logger *slog.Logger) *RateLimiter {
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	if max <= 0 {
		max = defaultRateLimitMax
	}
	return &RateLimiter{
		store:  store,
		window: window,
		max:    max,
		logger: logger.With("component", "rate_limiter"),
		now:    time.Now,
	}
}

// CheckAndRecord evaluates the window for identity and, when allowed,
// records the request. The write replaces the stored list with the pruned,
// appended one, so expired entries are cleaned up as a side effect of normal
// traffic.
func (l *RateLimiter) CheckAndRecord(ctx context.Context, identity string) domain.RateLimitDecision {
	key := rateLimitKeyPrefix + strings.ToLower(strings.TrimSpace(identity))

	// Last observed in-window timestamps, kept across iterations so the
	// contention fallback writes the window it saw rather than an empty one.
	var fresh []time.Time

	for attempt := 0; attempt < casAttempts; attempt++ {
		rec, err := l.store.Get(ctx, key)
		if err != nil {
			return l.failOpen(ctx, err)
		}

		now := l.now()
		cutoff := now.Add(-l.window)

		var prev []time.Time
		fresh = nil
		if rec != nil {
			prev = rec.Timestamps
			for _, ts := range prev {
				if ts.After(cutoff) {
					fresh = append(fresh, ts)
				}
			}
		}

		if len(fresh) >= l.max {
			l.pruneIfStale(ctx, key, prev, fresh, now)
			return domain.RateLimitDecision{
				Allowed: false,
				ResetAt: oldest(fresh).Add(l.window),
			}
		}

		next := &domain.RateLimitRecord{
			Key:        key,
			Timestamps: append(fresh, now),
			ExpiresAt:  now.Add(l.window),
		}
		ok, err := l.store.CompareAndPut(ctx, next, prev)
		if err != nil {
			return l.failOpen(ctx, err)
		}
		if ok {
			return domain.RateLimitDecision{
				Allowed:   true,
				Remaining: l.max - len(next.Timestamps),
			}
		}
		// Lost the race against a concurrent request for the same
		// identity; reload and re-evaluate.
	}

	// Contention persisted through every retry. Write the last observed
	// window plus this request unconditionally and allow. A concurrent
	// winner's entry may be overwritten, under-counting one burst request;
	// the entries already in the window must survive or the throttle would
	// reset under exactly the burst traffic it exists to stop.
	l.logger.WarnContext(ctx, "rate limit conditional write contention, recording unconditionally")
	now := l.now()
	rec := &domain.RateLimitRecord{
		Key:        key,
		Timestamps: append(fresh, now),
		ExpiresAt:  now.Add(l.window),
	}
	if err := l.store.Put(ctx, rec); err != nil {
		return l.failOpen(ctx, err)
	}
	return domain.RateLimitDecision{Allowed: true}
}

// pruneIfStale persists the filtered list on rejected requests too, so a key
// that only ever gets throttled still sheds expired timestamps. Best effort.
func (l *RateLimiter) pruneIfStale(ctx context.Context, key string, prev, fresh []time.Time, now time.Time) {
	if len(fresh) == len(prev) {
		return
	}
	rec := &domain.RateLimitRecord{
		Key:        key,
		Timestamps: fresh,
		ExpiresAt:  now.Add(l.window),
	}
	if _, err := l.store.CompareAndPut(ctx, rec, prev); err != nil {
		l.logger.DebugContext(ctx, "prune rate limit record", "error", err)
	}
}

func (l *RateLimiter) failOpen(ctx context.Context, err error) domain.RateLimitDecision {
	l.logger.ErrorContext(ctx, "rate limit store unavailable, failing open", "error", err)
	metrics.RateLimitStoreFailuresTotal.Inc()
	return domain.RateLimitDecision{Allowed: true}
}

func oldest(timestamps []time.Time) time.Time {
	min := timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts.Before(min) {
			min = ts
		}
	}
	return min
}
