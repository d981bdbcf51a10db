package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tapsafe/auth-service/internal/domain"
	"github.com/tapsafe/auth-service/internal/email"
	"github.com/tapsafe/auth-service/internal/metrics"
	"github.com/tapsafe/auth-service/internal/repository"
)

const defaultJWTTTL = 24 * time.Hour

// MagicLinkReceipt is what a magic-link request produces: either we took it,
// or the caller should come back after RetryAfter.
type MagicLinkReceipt struct {
	Accepted   bool
	RetryAfter time.Duration
}

type AuthUsecase struct {
	users         repository.UserStore
	limiter       *RateLimiter
	issuer        *TokenIssuer
	challenges    *ChallengeUsecase
	email         email.Sender
	jwtKey        []byte
	jwtTTL        time.Duration
	magicLinkBase string
	logger        *slog.Logger
	now           func() time.Time
}

func NewAuthUsecase(
	users repository.UserStore,
	limiter *RateLimiter,
	issuer *TokenIssuer,
	challenges *ChallengeUsecase,
	emailSender email.Sender,
	jwtKey []byte,
	magicLinkBase string,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:         users,
		limiter:       limiter,
		issuer:        issuer,
		challenges:    challenges,
		email:         emailSender,
		jwtKey:        jwtKey,
		jwtTTL:        defaultJWTTTL,
		magicLinkBase: magicLinkBase,
		logger:        logger.With("component", "auth_usecase"),
		now:           time.Now,
	}
}

// RequestMagicLink gates the request through the rate limiter, issues a
// fresh token, and emails the sign-in link. The rate-limit slot is consumed
// before issuance, so a request counts against the window even when delivery
// fails downstream.
func (u *AuthUsecase) RequestMagicLink(ctx context.Context, emailAddr string) (MagicLinkReceipt, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	dec := u.limiter.CheckAndRecord(ctx, emailAddr)
	if !dec.Allowed {
		metrics.MagicLinkRequestsTotal.WithLabelValues("throttled").Inc()
		retryAfter := dec.ResetAt.Sub(u.now())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return MagicLinkReceipt{Accepted: false, RetryAfter: retryAfter}, nil
	}

	user, err := u.users.FindOrCreate(ctx, emailAddr)
	if err != nil {
		metrics.MagicLinkRequestsTotal.WithLabelValues("error").Inc()
		return MagicLinkReceipt{Accepted: true}, fmt.Errorf("find or create user: %w", err)
	}

	token, _, err := u.issuer.Issue(ctx, user.Email)
	if err != nil {
		metrics.MagicLinkRequestsTotal.WithLabelValues("error").Inc()
		return MagicLinkReceipt{Accepted: true}, err
	}

	link := fmt.Sprintf("%s/auth/verify?email=%s&token=%s",
		u.magicLinkBase, url.QueryEscape(user.Email), token)
	if err := u.email.Send(ctx, user.Email, magicLinkSubject, magicLinkBody(link)); err != nil {
		metrics.MagicLinkRequestsTotal.WithLabelValues("error").Inc()
		return MagicLinkReceipt{Accepted: true}, fmt.Errorf("send magic link: %w", err)
	}

	metrics.MagicLinkRequestsTotal.WithLabelValues("accepted").Inc()
	return MagicLinkReceipt{Accepted: true}, nil
}

// CompleteLogin runs a full magic-link session the way an external identity
// provider would drive the triggers: define, create, verify, then define
// again on the result. Acceptance mints a signed session JWT.
func (u *AuthUsecase) CompleteLogin(ctx context.Context, emailAddr, suppliedToken string) (string, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	var history []domain.ChallengeAttempt
	dec := DefineChallenge(history)
	if dec.NextChallenge != domain.ChallengeMagicLink {
		return "", domain.ErrTokenInvalid
	}

	exchange := u.challenges.CreateChallenge(ctx, emailAddr)
	passed := u.challenges.VerifyChallenge(ctx, emailAddr, exchange.ExpectedAnswer, suppliedToken)

	history = append(history, domain.ChallengeAttempt{Name: domain.ChallengeMagicLink, Passed: passed})
	dec = DefineChallenge(history)
	if !dec.IssueTokens {
		return "", domain.ErrTokenInvalid
	}

	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}

	now := u.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(u.jwtTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(u.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

const magicLinkSubject = "Your TapSafe sign-in link"

func magicLinkBody(link string) string {
	return fmt.Sprintf(
		`<p>Click the link below to sign in to TapSafe (expires in 15 minutes):</p><p><a href="%s">%s</a></p><p>If you didn't request this, you can ignore this email.</p>`,
		link, link,
	)
}
