package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/tapsafe/auth-service/internal/domain"
	"github.com/tapsafe/auth-service/internal/metrics"
	"github.com/tapsafe/auth-service/internal/repository"
)

// DefineChallenge decides what a login session does next, purely from its
// history. Every history maps to exactly one decision; anything the function
// does not recognize fails the session.
func DefineChallenge(history []domain.ChallengeAttempt) domain.ChallengeDecision {
	if len(history) == 0 {
		return domain.ChallengeDecision{NextChallenge: domain.ChallengeMagicLink}
	}

	last := history[len(history)-1]
	switch last.Name {
	case domain.ChallengeMagicLink:
		if last.Passed {
			return domain.ChallengeDecision{IssueTokens: true}
		}
		return domain.ChallengeDecision{FailAuthentication: true}
	case domain.ChallengePasswordStart:
		// Legacy password logins start here; hand the session to the
		// provider's own password verifier.
		return domain.ChallengeDecision{NextChallenge: domain.ChallengePassword}
	case domain.ChallengePassword:
		if last.Passed {
			return domain.ChallengeDecision{IssueTokens: true}
		}
		return domain.ChallengeDecision{FailAuthentication: true}
	default:
		return domain.ChallengeDecision{FailAuthentication: true}
	}
}

type ChallengeUsecase struct {
	users  repository.UserStore
	logger *slog.Logger
	now    func() time.Time
}

func NewChallengeUsecase(users repository.UserStore, logger *slog.Logger) *ChallengeUsecase {
	return &ChallengeUsecase{
		users:  users,
		logger: logger.With("component", "challenge_usecase"),
		now:    time.Now,
	}
}

// CreateChallenge loads the user's pending token and sets it as the answer
// the client must echo back. Missing, expired, or unreadable tokens yield an
// unsatisfiable answer instead of an error: the provider still needs a
// challenge object to present, and the client's remedy in every failure case
// is the same — request a new link.
func (u *ChallengeUsecase) CreateChallenge(ctx context.Context, email string) *domain.ChallengeExchange {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			u.logger.ErrorContext(ctx, "load user for challenge", "error", err)
		}
		return unsatisfiable(domain.StatusNotFound)
	}

	if !user.HasPendingToken() {
		return unsatisfiable(domain.StatusNotFound)
	}
	if !u.now().Before(*user.MagicLinkExpiry) {
		return unsatisfiable(domain.StatusExpired)
	}

	return &domain.ChallengeExchange{
		ExpectedAnswer: *user.MagicLinkToken,
		PublicParameters: map[string]string{
			domain.ParamChallenge: domain.ChallengeMagicLink,
			domain.ParamStatus:    domain.StatusPending,
		},
	}
}

// VerifyChallenge compares the supplied answer against the expected one in
// constant time and, on success, burns the stored token so the same link can
// never authenticate twice. A failed burn is logged but does not revoke the
// result — the user already proved possession.
func (u *ChallengeUsecase) VerifyChallenge(ctx context.Context, email, expected, supplied string) bool {
	if expected == "" || supplied == "" {
		metrics.ChallengeVerificationsTotal.WithLabelValues("failure").Inc()
		return false
	}

	// Hashing both sides first makes the comparison independent of both
	// content and length of the inputs.
	expectedSum := sha256.Sum256([]byte(expected))
	suppliedSum := sha256.Sum256([]byte(supplied))
	if subtle.ConstantTimeCompare(expectedSum[:], suppliedSum[:]) != 1 {
		metrics.ChallengeVerificationsTotal.WithLabelValues("failure").Inc()
		return false
	}

	if err := u.users.ClearMagicToken(ctx, email); err != nil {
		u.logger.ErrorContext(ctx, "clear magic token after verification", "error", err)
	}
	metrics.ChallengeVerificationsTotal.WithLabelValues("success").Inc()
	return true
}

// unsatisfiable builds an expected answer no client input can equal. The
// reason prefix exists for diagnostics only; the random suffix is what makes
// the answer impossible to submit.
func unsatisfiable(reason string) *domain.ChallengeExchange {
	var b [16]byte
	rand.Read(b[:]) // never fails; crypto/rand aborts the process instead

	return &domain.ChallengeExchange{
		ExpectedAnswer: reason + "#" + hex.EncodeToString(b[:]),
		PublicParameters: map[string]string{
			domain.ParamChallenge: domain.ChallengeMagicLink,
			domain.ParamStatus:    reason,
		},
	}
}
