package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tapsafe/auth-service/internal/domain"
	"github.com/tapsafe/auth-service/internal/transport/http/handler"
)

type fakeChallengeUsecase struct {
	createChallenge func(ctx context.Context, email string) *domain.ChallengeExchange
	verifyChallenge func(ctx context.Context, email, expected, supplied string) bool
}

func (f *fakeChallengeUsecase) CreateChallenge(ctx context.Context, email string) *domain.ChallengeExchange {
	return f.createChallenge(ctx, email)
}

func (f *fakeChallengeUsecase) VerifyChallenge(ctx context.Context, email, expected, supplied string) bool {
	return f.verifyChallenge(ctx, email, expected, supplied)
}

func newTriggerEngine(uc *fakeChallengeUsecase) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := handler.NewTriggerHandler(uc, logger)

	r := gin.New()
	r.POST("/triggers/define-challenge", h.Define)
	r.POST("/triggers/create-challenge", h.Create)
	r.POST("/triggers/verify-challenge", h.Verify)
	return r
}

func postJSON(r *gin.Engine, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

type defineResponse struct {
	IssueTokens        bool   `json:"issueTokens"`
	FailAuthentication bool   `json:"failAuthentication"`
	ChallengeName      string `json:"challengeName"`
}

func decodeDefine(t *testing.T, w *httptest.ResponseRecorder) defineResponse {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	var resp defineResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// ---- define-challenge ----

func TestDefine_MissingUsername_Returns400(t *testing.T) {
	w := postJSON(newTriggerEngine(&fakeChallengeUsecase{}), "/triggers/define-challenge", `{"history":[]}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDefine_EmptyHistory_PresentsMagicLink(t *testing.T) {
	w := postJSON(newTriggerEngine(&fakeChallengeUsecase{}), "/triggers/define-challenge",
		`{"username":"a@x.com","history":[]}`)

	resp := decodeDefine(t, w)
	if resp.IssueTokens || resp.FailAuthentication {
		t.Errorf("empty history must be non-terminal, got %+v", resp)
	}
	if resp.ChallengeName != domain.ChallengeMagicLink {
		t.Errorf("challengeName = %q, want %q", resp.ChallengeName, domain.ChallengeMagicLink)
	}
}

func TestDefine_MagicLinkPassed_IssuesTokens(t *testing.T) {
	w := postJSON(newTriggerEngine(&fakeChallengeUsecase{}), "/triggers/define-challenge",
		`{"username":"a@x.com","history":[{"challengeName":"MAGIC_LINK","result":true}]}`)

	resp := decodeDefine(t, w)
	if !resp.IssueTokens {
		t.Error("passed magic link challenge must issue tokens")
	}
	if resp.FailAuthentication {
		t.Error("passed challenge must not fail authentication")
	}
}

func TestDefine_MagicLinkFailed_Rejects(t *testing.T) {
	w := postJSON(newTriggerEngine(&fakeChallengeUsecase{}), "/triggers/define-challenge",
		`{"username":"a@x.com","history":[{"challengeName":"MAGIC_LINK","result":false}]}`)

	resp := decodeDefine(t, w)
	if !resp.FailAuthentication {
		t.Error("failed magic link challenge must reject the session")
	}
	if resp.IssueTokens {
		t.Error("failed challenge must never issue tokens")
	}
}

func TestDefine_UnknownChallenge_Rejects(t *testing.T) {
	w := postJSON(newTriggerEngine(&fakeChallengeUsecase{}), "/triggers/define-challenge",
		`{"username":"a@x.com","history":[{"challengeName":"FACE_SCAN","result":true}]}`)

	resp := decodeDefine(t, w)
	if !resp.FailAuthentication || resp.IssueTokens {
		t.Errorf("unknown challenge must reject, got %+v", resp)
	}
}

// ---- create-challenge ----

func TestCreate_ReturnsExchange(t *testing.T) {
	uc := &fakeChallengeUsecase{
		createChallenge: func(_ context.Context, email string) *domain.ChallengeExchange {
			if email != "a@x.com" {
				t.Errorf("email = %q, want a@x.com", email)
			}
			return &domain.ChallengeExchange{
				ExpectedAnswer: "stored-token",
				PublicParameters: map[string]string{
					domain.ParamChallenge: domain.ChallengeMagicLink,
					domain.ParamStatus:    domain.StatusPending,
				},
			}
		},
	}
	w := postJSON(newTriggerEngine(uc), "/triggers/create-challenge", `{"username":"a@x.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"privateExpectedAnswer":"stored-token"`) {
		t.Errorf("body %q missing expected answer", body)
	}
	if !strings.Contains(body, `"status":"PENDING"`) {
		t.Errorf("body %q missing public status", body)
	}
}

func TestCreate_MissingUsername_Returns400(t *testing.T) {
	w := postJSON(newTriggerEngine(&fakeChallengeUsecase{}), "/triggers/create-challenge", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---- verify-challenge ----

func TestVerifyChallenge_ReturnsResult(t *testing.T) {
	uc := &fakeChallengeUsecase{
		verifyChallenge: func(_ context.Context, _, expected, supplied string) bool {
			return expected == supplied
		},
	}
	r := newTriggerEngine(uc)

	w := postJSON(r, "/triggers/verify-challenge",
		`{"username":"a@x.com","expectedAnswer":"tok","suppliedAnswer":"tok"}`)
	if !strings.Contains(w.Body.String(), `"answerCorrect":true`) {
		t.Errorf("body %q, want answerCorrect true", w.Body.String())
	}

	w = postJSON(r, "/triggers/verify-challenge",
		`{"username":"a@x.com","expectedAnswer":"tok","suppliedAnswer":"other"}`)
	if !strings.Contains(w.Body.String(), `"answerCorrect":false`) {
		t.Errorf("body %q, want answerCorrect false", w.Body.String())
	}
}

func TestVerifyChallenge_EmptySuppliedAnswer_IsAllowedInput(t *testing.T) {
	uc := &fakeChallengeUsecase{
		verifyChallenge: func(_ context.Context, _, _, supplied string) bool {
			return supplied != ""
		},
	}
	w := postJSON(newTriggerEngine(uc), "/triggers/verify-challenge",
		`{"username":"a@x.com","expectedAnswer":"tok"}`)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (empty answer is a failed attempt, not a bad request)", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"answerCorrect":false`) {
		t.Errorf("body %q, want answerCorrect false", w.Body.String())
	}
}
