package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/mcgate/internal/config"
	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type apiError struct {
	Code       string  `json:"code"`
	Message    string  `json:"message"`
	Detail     string  `json:"detail"`
	ErrorCode  int     `json:"errorcode"`
	RetryAfter float64 `json:"retry_after"`
}

type tokenPair struct {
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	TokenType       string `json:"token_type"`
	ExpiresIn       int64  `json:"expires_in"`
	Scope           string `json:"scope"`
	ClientName      string `json:"client_name"`
	RestInstanceURL string `json:"rest_instance_url"`
}

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := config.Defaults()
	cfg.Audit.Sink = "none"
	cfg.Metrics.Enabled = false

	keys, _, err := jwtx.GenerateEd25519("test")
	require.NoError(t, err)

	rt, err := Build(context.Background(), cfg, Options{Keys: keys, Now: func() time.Time { return t0 }})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func do(t *testing.T, h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func issue(t *testing.T, h http.Handler, id, secret string) tokenPair {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/auth/token",
		`{"client_id":"`+id+`","client_secret":"`+secret+`","grant_type":"client_credentials"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	return decode[tokenPair](t, rec)
}

func TestEndToEnd_TokenResourceRefresh(t *testing.T) {
	h := newRuntime(t).Handler

	pair := issue(t, h, "marketing_cloud_app_1", "super_secret_key_123")
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(3600), pair.ExpiresIn)
	require.Equal(t, "http://example.com", pair.RestInstanceURL)
	require.Contains(t, pair.Scope, "assets:write")

	rec := do(t, h, http.MethodGet, "/contacts/v1/contacts/C-42", "", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
	echo := decode[map[string]any](t, rec)
	require.Equal(t, "contacts.get", echo["route"])
	require.Equal(t, "marketing_cloud_app_1", echo["client_id"])
	require.Equal(t, "standard", echo["category"])
	require.Equal(t, map[string]any{"contactKey": "C-42"}, echo["params"])

	rec = do(t, h, http.MethodPost, "/assets/v1/assets", `{}`, pair.AccessToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "50", rec.Header().Get("X-RateLimit-Limit"))

	// Rotación y replay.
	rec = do(t, h, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+pair.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[tokenPair](t, rec)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	rec = do(t, h, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+pair.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	e := decode[apiError](t, rec)
	require.Equal(t, "REFRESH_TOKEN_REUSED", e.Code)
	require.Equal(t, http.StatusUnauthorized, e.ErrorCode)

	rec = do(t, h, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+next.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "REFRESH_TOKEN_REVOKED", decode[apiError](t, rec).Code)
}

func TestEndToEnd_Denials(t *testing.T) {
	h := newRuntime(t).Handler

	rec := do(t, h, http.MethodGet, "/campaigns/v1/campaigns", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "TOKEN_MISSING", decode[apiError](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/campaigns/v1/campaigns", "", "not.a.token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "TOKEN_INVALID", decode[apiError](t, rec).Code)

	analytics := issue(t, h, "analytics_dashboard", "analytics_secret_456")
	rec = do(t, h, http.MethodPost, "/contacts/v1/contacts", `{}`, analytics.AccessToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
	e := decode[apiError](t, rec)
	require.Equal(t, "INSUFFICIENT_SCOPE", e.Code)
	require.Contains(t, e.Detail, "contacts:write")

	rec = do(t, h, http.MethodGet, "/campaigns/v1/campaigns/reports/summary", "", analytics.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/auth/token",
		`{"client_id":"analytics_dashboard","client_secret":"wrong","grant_type":"client_credentials"}`, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "INVALID_CREDENTIALS", decode[apiError](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", decode[apiError](t, rec).Code)
}

func TestEndToEnd_AuthRateLimit(t *testing.T) {
	h := newRuntime(t).Handler

	body := url.Values{
		"client_id":     {"mobile_app_client"},
		"client_secret": {"mobile_secret_789"},
		"grant_type":    {"client_credentials"},
	}.Encode()
	for i := 1; i <= 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if i <= 5 {
			require.Equal(t, http.StatusOK, rec.Code, "attempt %d: %s", i, rec.Body.String())
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		e := decode[apiError](t, rec)
		require.Equal(t, "RATE_LIMIT_EXCEEDED", e.Code)
		require.Greater(t, e.RetryAfter, 0.0)
		require.Equal(t, "1", rec.Header().Get("Retry-After"))
	}
}

func TestEndToEnd_DiscoveryAndHealth(t *testing.T) {
	h := newRuntime(t).Handler

	rec := do(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "5/second")

	rec = do(t, h, http.MethodGet, "/.well-known/jwks.json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"kid":"test"`)

	rec = do(t, h, http.MethodGet, "/v1/auth/permissions", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "data_events:write")

	rec = do(t, h, http.MethodGet, "/v1/auth/clients", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	pair := issue(t, h, "mobile_app_client", "mobile_secret_789")
	rec = do(t, h, http.MethodGet, "/v1/auth/clients", "", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret")
}

func TestBuild_RequiresKeyOutsideDev(t *testing.T) {
	cfg := config.Defaults()
	cfg.App.Env = "prod"
	cfg.Audit.Sink = "none"
	_, err := Build(context.Background(), cfg, Options{})
	require.ErrorIs(t, err, jwtx.ErrKeyMisconfigured)
}
