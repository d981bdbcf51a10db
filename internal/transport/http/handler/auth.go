package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tapsafe/auth-service/internal/domain"
	"github.com/tapsafe/auth-service/internal/usecase"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	RequestMagicLink(ctx context.Context, email string) (usecase.MagicLinkReceipt, error)
	CompleteLogin(ctx context.Context, email, suppliedToken string) (string, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type magicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type magicLinkResponse struct {
	Accepted   bool  `json:"accepted"`
	RetryAfter int64 `json:"retryAfter,omitempty"`
}

// POST /auth/magic-link
// Returns 202 even when issuance or delivery failed internally, so the
// response never reveals whether the email exists. Only throttling is
// surfaced, with a Retry-After.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req magicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.authUsecase.RequestMagicLink(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("request magic link", "error", err)
	}

	if !receipt.Accepted {
		seconds := int64(receipt.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.FormatInt(seconds, 10))
		c.JSON(http.StatusTooManyRequests, magicLinkResponse{
			Accepted:   false,
			RetryAfter: seconds,
		})
		return
	}

	c.JSON(http.StatusAccepted, magicLinkResponse{Accepted: true})
}

// GET /auth/verify?email=<addr>&token=<raw>
// Returns {"token": "<jwt>"} on success, 401 on invalid/expired token.
func (h *AuthHandler) Verify(c *gin.Context) {
	emailAddr := c.Query("email")
	rawToken := c.Query("token")
	if emailAddr == "" || rawToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	jwtToken, err := h.authUsecase.CompleteLogin(c.Request.Context(), emailAddr, rawToken)
	if err != nil {
		if !errors.Is(err, domain.ErrTokenInvalid) {
			h.logger.Error("complete login", "error", err)
		}
		// Any failure reads the same to the client.
		c.JSON(http.StatusUnauthorized, gin.H{"error": errTokenInvalid})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": jwtToken})
}
