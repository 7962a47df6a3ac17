package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	svc "github.com/dropDatabas3/mcgate/internal/http/services/oauth"
	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/store/refresh"
)

func TestFromDomain(t *testing.T) {
	cases := []struct {
		err  error
		code string
		st   int
	}{
		{svc.ErrInvalidClient, "INVALID_CREDENTIALS", http.StatusUnauthorized},
		{svc.ErrRefreshReused, "REFRESH_TOKEN_REUSED", http.StatusUnauthorized},
		{svc.ErrRefreshRevoked, "REFRESH_TOKEN_REVOKED", http.StatusUnauthorized},
		{svc.ErrRefreshNotFound, "REFRESH_TOKEN_INVALID", http.StatusUnauthorized},
		{svc.ErrRefreshExpired, "REFRESH_TOKEN_EXPIRED", http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", jwtx.ErrExpired), "TOKEN_EXPIRED", http.StatusUnauthorized},
		{jwtx.ErrInvalidSignature, "TOKEN_INVALID", http.StatusUnauthorized},
		{&jwtx.ScopeError{Missing: []string{"contacts:write"}}, "INSUFFICIENT_SCOPE", http.StatusForbidden},
		{fmt.Errorf("%w: redis down", refresh.ErrUnavailable), "STORE_UNAVAILABLE", http.StatusServiceUnavailable},
		{svc.ErrUnsupportedGrantType, "UNSUPPORTED_GRANT_TYPE", http.StatusBadRequest},
		{stderrors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, c := range cases {
		got := FromDomain(c.err)
		if got.Code != c.code || got.HTTPStatus != c.st {
			t.Fatalf("FromDomain(%v) = %s/%d, want %s/%d", c.err, got.Code, got.HTTPStatus, c.code, c.st)
		}
	}
}

func TestFromDomain_ScopeDetail(t *testing.T) {
	got := FromDomain(&jwtx.ScopeError{Missing: []string{"contacts:write"}})
	if got.Detail != "Required permission: contacts:write" {
		t.Fatalf("detail = %q", got.Detail)
	}
}

func TestWriteError_Body(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, ErrRateLimitExceeded.WithRetryAfter(1500*time.Millisecond).WithDetail("100 per 1 minute"))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q", got)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != "RATE_LIMIT_EXCEEDED" || body["errorcode"] != float64(429) || body["retry_after"] != float64(2) {
		t.Fatalf("body = %v", body)
	}
	if body["detail"] != "100 per 1 minute" {
		t.Fatalf("detail = %v", body["detail"])
	}
}

func TestWriteError_WrappedAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, fmt.Errorf("ctx: %w", ErrTokenMissing))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "" {
		t.Fatal("unexpected Retry-After")
	}
}

func TestCopiesDoNotMutateBase(t *testing.T) {
	_ = ErrInvalidRequest.WithDetail("x")
	if ErrInvalidRequest.Detail != "" {
		t.Fatal("base error mutated")
	}
}
