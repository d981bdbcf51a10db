package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tapsafe/auth-service/internal/domain"
)

type RateLimitRepository struct {
	pool *pgxpool.Pool
}

func NewRateLimitRepository(pool *pgxpool.Pool) *RateLimitRepository {
	return &RateLimitRepository{pool: pool}
}

func (r *RateLimitRepository) Get(ctx context.Context, key string) (*domain.RateLimitRecord, error) {
	var rec domain.RateLimitRecord
	err := r.pool.QueryRow(ctx, `
		SELECT key, timestamps, expires_at
		FROM rate_limits
		WHERE key = $1`,
		key,
	).Scan(&rec.Key, &rec.Timestamps, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rate limit record: %w", err)
	}
	return &rec, nil
}

func (r *RateLimitRepository) Put(ctx context.Context, rec *domain.RateLimitRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rate_limits (key, timestamps, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET timestamps = $2, expires_at = $3`,
		rec.Key, rec.Timestamps, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("put rate limit record: %w", err)
	}
	return nil
}

// CompareAndPut is the conditional write the limiter prefers over Put: the
// row is only replaced if its timestamp list still matches what the caller
// read, so two concurrent requests cannot both count the same slot.
func (r *RateLimitRepository) CompareAndPut(ctx context.Context, rec *domain.RateLimitRecord, prev []time.Time) (bool, error) {
	if prev == nil {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO rate_limits (key, timestamps, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO NOTHING`,
			rec.Key, rec.Timestamps, rec.ExpiresAt,
		)
		if err != nil {
			return false, fmt.Errorf("insert rate limit record: %w", err)
		}
		return tag.RowsAffected() == 1, nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE rate_limits
		SET timestamps = $2, expires_at = $3
		WHERE key = $1 AND timestamps = $4`,
		rec.Key, rec.Timestamps, rec.ExpiresAt, prev,
	)
	if err != nil {
		return false, fmt.Errorf("update rate limit record: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RateLimitRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM rate_limits WHERE expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired rate limit records: %w", err)
	}
	return tag.RowsAffected(), nil
}
