package handler_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tapsafe/auth-service/internal/domain"
	"github.com/tapsafe/auth-service/internal/transport/http/handler"
	"github.com/tapsafe/auth-service/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAuthUsecase implements the unexported authUsecaser interface via method matching.
type fakeAuthUsecase struct {
	requestMagicLink func(ctx context.Context, email string) (usecase.MagicLinkReceipt, error)
	completeLogin    func(ctx context.Context, email, suppliedToken string) (string, error)
}

func (f *fakeAuthUsecase) RequestMagicLink(ctx context.Context, email string) (usecase.MagicLinkReceipt, error) {
	return f.requestMagicLink(ctx, email)
}

func (f *fakeAuthUsecase) CompleteLogin(ctx context.Context, email, suppliedToken string) (string, error) {
	return f.completeLogin(ctx, email, suppliedToken)
}

func newTestEngine(uc *fakeAuthUsecase) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	h := handler.NewAuthHandler(uc, logger)

	r := gin.New()
	r.POST("/auth/magic-link", h.RequestMagicLink)
	r.GET("/auth/verify", h.Verify)
	return r
}

func postMagicLink(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ---- RequestMagicLink ----

func TestRequestMagicLink_InvalidJSON_Returns400(t *testing.T) {
	w := postMagicLink(newTestEngine(&fakeAuthUsecase{}), `{bad json}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRequestMagicLink_InvalidEmail_Returns400(t *testing.T) {
	w := postMagicLink(newTestEngine(&fakeAuthUsecase{}), `{"email":"not-an-email"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRequestMagicLink_UsecaseError_StillReturns202(t *testing.T) {
	uc := &fakeAuthUsecase{
		requestMagicLink: func(_ context.Context, _ string) (usecase.MagicLinkReceipt, error) {
			return usecase.MagicLinkReceipt{Accepted: true}, errors.New("internal failure")
		},
	}
	w := postMagicLink(newTestEngine(uc), `{"email":"test@example.com"}`)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 (must not reveal errors)", w.Code)
	}
}

func TestRequestMagicLink_Accepted_Returns202(t *testing.T) {
	uc := &fakeAuthUsecase{
		requestMagicLink: func(_ context.Context, _ string) (usecase.MagicLinkReceipt, error) {
			return usecase.MagicLinkReceipt{Accepted: true}, nil
		},
	}
	w := postMagicLink(newTestEngine(uc), `{"email":"test@example.com"}`)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"accepted":true`) {
		t.Errorf("body %q missing accepted flag", w.Body.String())
	}
}

func TestRequestMagicLink_Throttled_Returns429WithRetryAfter(t *testing.T) {
	uc := &fakeAuthUsecase{
		requestMagicLink: func(_ context.Context, _ string) (usecase.MagicLinkReceipt, error) {
			return usecase.MagicLinkReceipt{Accepted: false, RetryAfter: 14 * time.Minute}, nil
		},
	}
	w := postMagicLink(newTestEngine(uc), `{"email":"test@example.com"}`)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "840" {
		t.Errorf("Retry-After = %q, want %q", got, "840")
	}
	if !strings.Contains(w.Body.String(), `"retryAfter":840`) {
		t.Errorf("body %q missing retryAfter", w.Body.String())
	}
}

// ---- Verify ----

func TestVerify_MissingParams_Returns401(t *testing.T) {
	for _, target := range []string{"/auth/verify", "/auth/verify?email=a@x.com", "/auth/verify?token=tok"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		newTestEngine(&fakeAuthUsecase{}).ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", target, w.Code)
		}
	}
}

func TestVerify_InvalidToken_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		completeLogin: func(_ context.Context, _, _ string) (string, error) {
			return "", domain.ErrTokenInvalid
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/verify?email=a@x.com&token=bad", nil)
	newTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestVerify_InternalError_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		completeLogin: func(_ context.Context, _, _ string) (string, error) {
			return "", errors.New("db down")
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/verify?email=a@x.com&token=sometoken", nil)
	newTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 (internal errors read as auth failure)", w.Code)
	}
}

func TestVerify_ValidToken_Returns200WithJWT(t *testing.T) {
	const fakeJWT = "header.payload.signature"
	uc := &fakeAuthUsecase{
		completeLogin: func(_ context.Context, _, _ string) (string, error) {
			return fakeJWT, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/verify?email=a@x.com&token=validtoken", nil)
	newTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), fakeJWT) {
		t.Errorf("body %q does not contain JWT %q", w.Body.String(), fakeJWT)
	}
}
