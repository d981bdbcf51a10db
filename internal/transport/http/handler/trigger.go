package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tapsafe/auth-service/internal/domain"
	"github.com/tapsafe/auth-service/internal/metrics"
	"github.com/tapsafe/auth-service/internal/usecase"
)

type challengeUsecaser interface {
	CreateChallenge(ctx context.Context, email string) *domain.ChallengeExchange
	VerifyChallenge(ctx context.Context, email, expected, supplied string) bool
}

// TriggerHandler exposes the three extension points an identity-provider
// host calls during a login session. The host is trusted and authenticated
// by middleware; these endpoints never talk to end clients directly.
type TriggerHandler struct {
	challenges challengeUsecaser
	logger     *slog.Logger
}

func NewTriggerHandler(challenges challengeUsecaser, logger *slog.Logger) *TriggerHandler {
	return &TriggerHandler{
		challenges: challenges,
		logger:     logger.With("component", "trigger_handler"),
	}
}

type challengeAttempt struct {
	ChallengeName string `json:"challengeName" binding:"required"`
	Result        bool   `json:"result"`
}

type defineChallengeRequest struct {
	Username string             `json:"username" binding:"required"`
	History  []challengeAttempt `json:"history"`
}

type defineChallengeResponse struct {
	IssueTokens        bool   `json:"issueTokens"`
	FailAuthentication bool   `json:"failAuthentication"`
	ChallengeName      string `json:"challengeName,omitempty"`
}

// POST /triggers/define-challenge
func (h *TriggerHandler) Define(c *gin.Context) {
	var req defineChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history := make([]domain.ChallengeAttempt, 0, len(req.History))
	for _, a := range req.History {
		history = append(history, domain.ChallengeAttempt{Name: a.ChallengeName, Passed: a.Result})
	}

	dec := usecase.DefineChallenge(history)
	metrics.ChallengeDecisionsTotal.WithLabelValues(decisionLabel(dec)).Inc()

	c.JSON(http.StatusOK, defineChallengeResponse{
		IssueTokens:        dec.IssueTokens,
		FailAuthentication: dec.FailAuthentication,
		ChallengeName:      dec.NextChallenge,
	})
}

type createChallengeRequest struct {
	Username string `json:"username" binding:"required"`
}

type createChallengeResponse struct {
	PrivateExpectedAnswer string            `json:"privateExpectedAnswer"`
	PublicParameters      map[string]string `json:"publicParameters"`
}

// POST /triggers/create-challenge
// Never fails outward: missing or expired tokens come back as a challenge
// with an unsatisfiable answer, so the host always has something to present.
func (h *TriggerHandler) Create(c *gin.Context) {
	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exchange := h.challenges.CreateChallenge(c.Request.Context(), req.Username)

	c.JSON(http.StatusOK, createChallengeResponse{
		PrivateExpectedAnswer: exchange.ExpectedAnswer,
		PublicParameters:      exchange.PublicParameters,
	})
}

type verifyChallengeRequest struct {
	Username       string `json:"username" binding:"required"`
	ExpectedAnswer string `json:"expectedAnswer" binding:"required"`
	SuppliedAnswer string `json:"suppliedAnswer"`
}

type verifyChallengeResponse struct {
	AnswerCorrect bool `json:"answerCorrect"`
}

// POST /triggers/verify-challenge
func (h *TriggerHandler) Verify(c *gin.Context) {
	var req verifyChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	correct := h.challenges.VerifyChallenge(c.Request.Context(),
		req.Username, req.ExpectedAnswer, req.SuppliedAnswer)

	c.JSON(http.StatusOK, verifyChallengeResponse{AnswerCorrect: correct})
}

func decisionLabel(dec domain.ChallengeDecision) string {
	switch {
	case dec.IssueTokens:
		return "accept"
	case dec.FailAuthentication:
		return "reject"
	case dec.NextChallenge == domain.ChallengeMagicLink:
		return "magic_link"
	default:
		return "password"
	}
}
