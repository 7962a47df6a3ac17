package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dropDatabas3/mcgate/internal/rate"
	"github.com/dropDatabas3/mcgate/internal/scope"
	"github.com/dropDatabas3/mcgate/internal/security/secret"
)

func mustDefaults(t *testing.T) *Registry {
	t.Helper()
	r, err := New(Defaults())
	if err != nil {
		t.Fatalf("New(Defaults()): %v", err)
	}
	return r
}

func TestDefaultsVerifyKnownSecrets(t *testing.T) {
	r := mustDefaults(t)
	pairs := map[string]string{
		"marketing_cloud_app_1": "super_secret_key_123",
		"analytics_dashboard":   "analytics_secret_456",
		"mobile_app_client":     "mobile_secret_789",
	}
	for id, sec := range pairs {
		if !r.VerifySecret(id, sec) {
			t.Fatalf("%s: secret rejected", id)
		}
		if r.VerifySecret(id, sec+"x") {
			t.Fatalf("%s: wrong secret accepted", id)
		}
	}
	if r.VerifySecret("nobody", "super_secret_key_123") {
		t.Fatal("unknown client accepted")
	}
}

func TestLookup(t *testing.T) {
	r := mustDefaults(t)
	c, err := r.Lookup("analytics_dashboard")
	if err != nil {
		t.Fatal(err)
	}
	if c.Scopes.Has("contacts:write") || !c.Scopes.Has("contacts:read") {
		t.Fatalf("analytics scopes = %v", c.Scopes)
	}
	if c.Category != rate.Standard {
		t.Fatalf("category = %q", c.Category)
	}
	if _, err := r.Lookup("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewRejectsInvalidCatalog(t *testing.T) {
	good, _ := secret.Hash(secret.SHA256, "s3cret")
	cases := map[string][]Client{
		"empty id":     {{ID: " ", SecretHash: good}},
		"duplicate":    {{ID: "a", SecretHash: good}, {ID: "a", SecretHash: good}},
		"bad hash":     {{ID: "a", SecretHash: "plaintext"}},
		"bad scope":    {{ID: "a", SecretHash: good, Scopes: scope.New("Bad Scope")}},
		"bad category": {{ID: "a", SecretHash: good, Category: "vip"}},
		"argon2 t=0":   {{ID: "a", SecretHash: "$argon2id$v=19$m=65536,t=0,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2U"}},
	}
	for name, cs := range cases {
		if _, err := New(cs); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSwapKeepsOldSnapshotOnError(t *testing.T) {
	r := mustDefaults(t)
	if err := r.Swap([]Client{{ID: ""}}); err == nil {
		t.Fatal("expected error")
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestConcurrentLookupsDuringSwap(t *testing.T) {
	r := mustDefaults(t)
	h, _ := secret.Hash(secret.SHA256, "x")
	alt := []Client{{ID: "analytics_dashboard", SecretHash: h, Scopes: scope.New("contacts:read")}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if _, err := r.Lookup("analytics_dashboard"); err != nil {
					t.Errorf("lookup failed mid-swap: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			_ = r.Swap(alt)
		} else {
			_ = r.Swap(Defaults())
		}
	}
	wg.Wait()
}

func TestClientsSorted(t *testing.T) {
	cs := mustDefaults(t).Clients()
	if len(cs) != 3 || cs[0].ID != "analytics_dashboard" || cs[2].ID != "mobile_app_client" {
		t.Fatalf("clients = %+v", cs)
	}
}

func TestReloaderFromFile(t *testing.T) {
	h, _ := secret.Hash(secret.SHA256, "uploader-secret")
	path := filepath.Join(t.TempDir(), "clients.yaml")
	body := "clients:\n" +
		"  - client_id: uploader\n" +
		"    secret_hash: " + h + "\n" +
		"    scopes: assets:read assets:write\n" +
		"    rate_category: upload\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	r := mustDefaults(t)
	n, err := NewReloader(r, FileSource(path)).Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if n != 1 || r.Len() != 1 {
		t.Fatalf("n=%d len=%d", n, r.Len())
	}
	c, err := r.Lookup("uploader")
	if err != nil {
		t.Fatal(err)
	}
	if c.Category != rate.Upload || !c.Scopes.Equal(scope.New("assets:read", "assets:write")) {
		t.Fatalf("client = %+v", c)
	}
	if !r.VerifySecret("uploader", "uploader-secret") {
		t.Fatal("secret from file rejected")
	}
	if _, err := r.Lookup("analytics_dashboard"); err == nil {
		t.Fatal("old clients must be gone after reload")
	}
}

func TestReloaderKeepsSnapshotOnBadFile(t *testing.T) {
	r := mustDefaults(t)
	_, err := NewReloader(r, FileSource(filepath.Join(t.TempDir(), "missing.yaml"))).Reload(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if r.Len() != 3 {
		t.Fatal("snapshot replaced on failed reload")
	}
}

func TestExampleFileMatchesDefaults(t *testing.T) {
	clients, err := LoadFile(filepath.Join("..", "..", "configs", "registry.example.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	r, err := New(clients)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, want := range Defaults() {
		got, err := r.Lookup(want.ID)
		if err != nil {
			t.Fatalf("%s missing from example file: %v", want.ID, err)
		}
		if !got.Scopes.Equal(want.Scopes) || got.Category != want.Category {
			t.Fatalf("%s: got %s/%s, want %s/%s", want.ID, got.Scopes, got.Category, want.Scopes, want.Category)
		}
	}
	if !r.VerifySecret("analytics_dashboard", "analytics_secret_456") {
		t.Fatal("example hash does not verify the seeded secret")
	}
}

func TestDummyMatchesSlowestScheme(t *testing.T) {
	fast, _ := secret.Hash(secret.SHA256, "a")
	slow, _ := secret.Hash(secret.Bcrypt, "b")
	r, err := New([]Client{{ID: "fast", SecretHash: fast}, {ID: "slow", SecretHash: slow}})
	if err != nil {
		t.Fatal(err)
	}
	d := r.cur.Load().dummy
	if !strings.HasPrefix(d, slow[:7]) {
		t.Fatalf("dummy %q should use the bcrypt scheme and cost of %q", d, slow[:7])
	}
	if r.VerifySecret("ghost", "b") {
		t.Fatal("unknown client verified")
	}

	// un catálogo solo sha256 conserva el dummy barato
	if err := r.Swap([]Client{{ID: "fast", SecretHash: fast}}); err != nil {
		t.Fatal(err)
	}
	if got := r.cur.Load().dummy; got != secret.Dummy {
		t.Fatalf("dummy after swap = %q", got)
	}
}
