package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dropDatabas3/mcgate/internal/security/secret"
)

func run(t *testing.T, cl *client, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRoot(cl)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"a","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	cl := &client{BaseURL: srv.URL, OutFormat: "json", HTTP: srv.Client()}
	out, err := run(t, cl, "", "token", "--client-id", "mobile_app_client", "--client-secret", "s")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got["grant_type"] != "client_credentials" || got["client_id"] != "mobile_app_client" {
		t.Fatalf("unexpected payload: %v", got)
	}
	if !strings.Contains(out, `"token_type": "Bearer"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCallReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"REFRESH_TOKEN_REUSED","message":"Refresh token was already used","errorcode":401}`))
	}))
	defer srv.Close()

	cl := &client{BaseURL: srv.URL, OutFormat: "text", HTTP: srv.Client()}
	_, err := run(t, cl, "", "refresh", "rt")
	if err == nil || !strings.Contains(err.Error(), "REFRESH_TOKEN_REUSED") {
		t.Fatalf("expected API error code, got %v", err)
	}
}

func TestHashSecretFromStdin(t *testing.T) {
	prev := isTerminal
	isTerminal = func() bool { return false }
	defer func() { isTerminal = prev }()

	cl := &client{BaseURL: "http://localhost"}
	out, err := run(t, cl, "analytics_secret_456\n", "hash-secret", "--alg", "sha256")
	if err != nil {
		t.Fatalf("hash-secret: %v", err)
	}
	h := strings.TrimSpace(out)
	if !strings.HasPrefix(h, "sha256:") || !secret.Verify("analytics_secret_456", h) {
		t.Fatalf("unexpected hash %q", h)
	}
}

func TestKeygen(t *testing.T) {
	out, err := run(t, &client{BaseURL: "http://localhost"}, "", "keygen", "--kid", "k1")
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	for _, want := range []string{"MCGATE_JWT_ALG=EdDSA", "MCGATE_JWT_KID=k1", "MCGATE_JWT_SIGNING_KEY="} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}
