package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrTokenInvalid = errors.New("token is invalid or expired")
)

type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// At most one live magic-link token per user. Both fields are nil when
	// no token is pending: issued tokens are cleared on successful
	// verification and overwritten by the next request.
	MagicLinkToken  *string
	MagicLinkExpiry *time.Time
}

// HasPendingToken reports whether the user carries a token, expired or not.
// Expiry is judged at read time by the challenge layer, never here.
func (u *User) HasPendingToken() bool {
	return u.MagicLinkToken != nil && *u.MagicLinkToken != "" && u.MagicLinkExpiry != nil
}
