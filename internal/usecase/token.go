package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/tapsafe/auth-service/internal/repository"
)

const defaultTokenTTL = 15 * time.Minute

// TokenIssuer mints single-use magic-link tokens. Issuing overwrites any
// prior token on the user record, so at most one link is live per user and
// requesting a fresh link kills the old one.
type TokenIssuer struct {
	users repository.UserStore
	ttl   time.Duration
	now   func() time.Time
}

func NewTokenIssuer(users repository.UserStore, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{users: users, ttl: ttl, now: time.Now}
}

// Issue generates a 256-bit random token, persists it with its expiry onto
// the user record, and returns both.
func (i *TokenIssuer) Issue(ctx context.Context, email string) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	expiresAt := i.now().Add(i.ttl)
	if err := i.users.SetMagicToken(ctx, email, token, expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("store magic token: %w", err)
	}
	return token, expiresAt, nil
}
