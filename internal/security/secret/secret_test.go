package secret

import (
	"strings"
	"testing"
)

func TestHashVerifyAllAlgorithms(t *testing.T) {
	for _, alg := range []Algorithm{SHA256, Argon2id, Bcrypt} {
		h, err := Hash(alg, "analytics_secret_456")
		if err != nil {
			t.Fatalf("%s: %v", alg, err)
		}
		if err := CheckFormat(h); err != nil {
			t.Fatalf("%s: CheckFormat(%q): %v", alg, h, err)
		}
		if !Verify("analytics_secret_456", h) {
			t.Fatalf("%s: expected match", alg)
		}
		if Verify("analytics_secret_457", h) {
			t.Fatalf("%s: unexpected match", alg)
		}
	}
}

func TestVerifyBareHexDigest(t *testing.T) {
	h, _ := Hash(SHA256, "super_secret_key_123")
	bare := strings.TrimPrefix(h, "sha256:")
	if !Verify("super_secret_key_123", bare) {
		t.Fatal("bare hex digest should verify")
	}
	if !Verify("super_secret_key_123", strings.ToUpper(bare)) {
		t.Fatal("hex digest is case-insensitive")
	}
}

func TestUnknownFormatNeverVerifies(t *testing.T) {
	for _, enc := range []string{"", "plain", "md5:abc", "$argon2id$broken"} {
		if Verify("x", enc) {
			t.Fatalf("Verify accepted %q", enc)
		}
		if CheckFormat(enc) == nil {
			t.Fatalf("CheckFormat accepted %q", enc)
		}
	}
}

func TestDummyIsWellFormed(t *testing.T) {
	if err := CheckFormat(Dummy); err != nil {
		t.Fatal(err)
	}
}

func TestEmptySecretRejected(t *testing.T) {
	if _, err := Hash(SHA256, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestCheckFormatRejectsUnsafeArgon2Params(t *testing.T) {
	const tail = "$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2U"
	bad := map[string]string{
		"zero rounds":       "m=65536,t=0,p=1",
		"zero lanes":        "m=65536,t=3,p=0",
		"lanes overflow":    "m=65536,t=3,p=256",
		"memory ceiling":    "m=4194304,t=3,p=1",
		"memory too small":  "m=4,t=3,p=1",
		"missing rounds":    "m=65536,p=1",
		"unknown param":     "m=65536,t=3,p=1,x=2",
		"duplicated param":  "m=65536,t=3,t=4,p=1",
		"rounds over limit": "m=65536,t=1000,p=1",
	}
	for name, params := range bad {
		enc := "$argon2id$v=19$" + params + tail
		if err := CheckFormat(enc); err == nil {
			t.Fatalf("%s: CheckFormat(%q) accepted", name, enc)
		}
		if Verify("x", enc) {
			t.Fatalf("%s: Verify accepted", name)
		}
	}
	if err := CheckFormat("$argon2id$v=19$m=65536,t=3,p=1" + tail); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
}

func TestDummyLikeKeepsSchemeAndCost(t *testing.T) {
	bc, _ := Hash(Bcrypt, "mobile_secret_789")
	d, err := DummyLike(bc)
	if err != nil {
		t.Fatal(err)
	}
	if d[:7] != bc[:7] {
		t.Fatalf("bcrypt dummy %q does not keep the cost prefix of %q", d[:7], bc[:7])
	}
	if Verify("mobile_secret_789", d) {
		t.Fatal("dummy must not verify the real secret")
	}

	sh, _ := Hash(SHA256, "x")
	if d, _ := DummyLike(sh); d != Dummy {
		t.Fatalf("sha256 dummy = %q", d)
	}
	if Work(bc) <= Work(sh) {
		t.Fatalf("bcrypt work %d should exceed sha256 work %d", Work(bc), Work(sh))
	}
}
