package repository

import (
	"context"
	"time"

	"github.com/tapsafe/auth-service/internal/domain"
)

type UserStore interface {
	FindOrCreate(ctx context.Context, email string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// SetMagicToken overwrites any prior token unconditionally: at most one
	// live token per user, and issuing invalidates the previous one.
	SetMagicToken(ctx context.Context, email, token string, expiresAt time.Time) error

	// ClearMagicToken blanks both token and expiry.
	ClearMagicToken(ctx context.Context, email string) error

	// ClearExpiredTokens blanks tokens whose expiry is before cutoff and
	// returns how many rows were touched. Hygiene only — expiry is always
	// enforced at read time as well.
	ClearExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error)
}
