package repository

import (
	"context"
	"time"

	"github.com/tapsafe/auth-service/internal/domain"
)

type RateLimitStore interface {
	// Get returns the record for key, or nil (no error) when absent.
	Get(ctx context.Context, key string) (*domain.RateLimitRecord, error)

	// Put unconditionally replaces the record for key.
	Put(ctx context.Context, rec *domain.RateLimitRecord) error

	// CompareAndPut replaces the record only if the stored timestamp list
	// still equals prev (nil prev means "no record yet"). Returns false
	// without error when the record changed underneath us, so the limiter
	// can reload and retry instead of silently under-counting.
	CompareAndPut(ctx context.Context, rec *domain.RateLimitRecord, prev []time.Time) (bool, error)

	// DeleteExpiredBefore drops records whose ExpiresAt is before cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
