package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/mcgate/internal/rate"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Addr != ":8080" || c.Store.Kind != "memory" {
		t.Fatalf("unexpected defaults: %+v", c.Server)
	}
	if !c.Refresh.RevokeFamilyOnReuse {
		t.Fatalf("revoke_family_on_reuse should default to true")
	}
	if c.Server.TrustProxyHeaders {
		t.Fatalf("proxy headers must not be trusted by default")
	}
	pol, err := c.RatePolicies()
	if err != nil {
		t.Fatalf("policies: %v", err)
	}
	if got := pol[rate.Auth].Quotas[0].String(); got != "5/second" {
		t.Fatalf("auth quota = %s", got)
	}
	if pol[rate.Auth].OnStoreFailure != rate.FailClosed || pol[rate.Standard].OnStoreFailure != rate.FailOpen {
		t.Fatalf("unexpected failure policies: %+v", pol)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	p := writeFile(t, `
app:
  env: dev
server:
  addr: ":9090"
jwt:
  access_ttl: 30m
refresh:
  revoke_family_on_reuse: false
rate:
  categories:
    upload:
      quotas: ["10 per hour"]
      on_store_failure: closed
`)
	t.Setenv("MCGATE_SERVER_ADDR", ":7070")
	t.Setenv("MCGATE_RATE_QUOTAS", "auth:2/second")
	t.Setenv("MCGATE_SERVER_TRUST_PROXY_HEADERS", "true")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Addr != ":7070" {
		t.Fatalf("env should win over file, got %s", c.Server.Addr)
	}
	if !c.Server.TrustProxyHeaders {
		t.Fatalf("MCGATE_SERVER_TRUST_PROXY_HEADERS not applied")
	}
	if c.JWT.AccessTTL != 30*time.Minute {
		t.Fatalf("access_ttl = %s", c.JWT.AccessTTL)
	}
	if c.Refresh.RevokeFamilyOnReuse {
		t.Fatalf("file value false must survive defaults")
	}
	pol, err := c.RatePolicies()
	if err != nil {
		t.Fatalf("policies: %v", err)
	}
	if q := pol[rate.Upload].Quotas; len(q) != 1 || q[0].Limit != 10 || q[0].Window != time.Hour {
		t.Fatalf("upload quotas = %v", q)
	}
	if pol[rate.Upload].OnStoreFailure != rate.FailClosed {
		t.Fatalf("upload policy = %s", pol[rate.Upload].OnStoreFailure)
	}
	if q := pol[rate.Auth].Quotas; len(q) != 1 || q[0].Limit != 2 {
		t.Fatalf("auth override = %v", q)
	}
	if len(pol[rate.Standard].Quotas) != 2 {
		t.Fatalf("standard should keep defaults: %v", pol[rate.Standard].Quotas)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad store", func(c *Config) { c.Store.Kind = "etcd" }, "store.kind"},
		{"bad alg", func(c *Config) { c.JWT.Alg = "RS256" }, "jwt.alg"},
		{"key outside dev", func(c *Config) { c.App.Env = "prod" }, "signing_key"},
		{"bad quota", func(c *Config) {
			c.Rate.Categories["standard"] = CategoryConfig{Quotas: []string{"lots"}}
		}, "malformed quota"},
		{"bad policy", func(c *Config) {
			c.Rate.Categories["auth"] = CategoryConfig{OnStoreFailure: "maybe"}
		}, "failure policy"},
		{"unknown category", func(c *Config) { c.Rate.Categories["bulk"] = CategoryConfig{} }, "unknown category"},
		{"refresh shorter than access", func(c *Config) { c.JWT.RefreshTTL = time.Minute }, "refresh_ttl"},
		{"postgres without dsn", func(c *Config) { c.Audit.Sink = "postgres" }, "audit.dsn"},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "sample_ratio"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Defaults()
			tc.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want mention of %q", err, tc.want)
			}
		})
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeFile(t, "server: [")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
}
