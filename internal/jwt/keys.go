package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const (
	AlgEdDSA = "EdDSA"
	AlgHS256 = "HS256"

	// MinHMACKeyLen: HS256 con menos de 32 bytes es fuerza bruta barata.
	MinHMACKeyLen = 32
)

// ErrKeyMisconfigured se devuelve al arrancar con material de firma inválido.
// El proceso no debe servir tráfico con este error.
var ErrKeyMisconfigured = errors.New("jwt: signing key misconfigured")

// KeySet es la clave de firma del proceso. Se carga una vez y no se muta.
type KeySet struct {
	KID string
	Alg string

	method    jwtv5.SigningMethod
	signKey   any
	verifyKey any
	pub       ed25519.PublicKey
}

// NewEd25519 arma el KeySet a partir de una clave privada Ed25519.
func NewEd25519(kid string, priv ed25519.PrivateKey) (*KeySet, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: ed25519 private key must be %d bytes", ErrKeyMisconfigured, ed25519.PrivateKeySize)
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &KeySet{
		KID:       defaultKID(kid),
		Alg:       AlgEdDSA,
		method:    jwtv5.SigningMethodEdDSA,
		signKey:   priv,
		verifyKey: pub,
		pub:       pub,
	}, nil
}

// NewHMAC arma un KeySet HS256 con un secreto compartido.
func NewHMAC(kid string, secret []byte) (*KeySet, error) {
	if len(secret) < MinHMACKeyLen {
		return nil, fmt.Errorf("%w: hs256 secret must be at least %d bytes", ErrKeyMisconfigured, MinHMACKeyLen)
	}
	k := make([]byte, len(secret))
	copy(k, secret)
	return &KeySet{
		KID:       defaultKID(kid),
		Alg:       AlgHS256,
		method:    jwtv5.SigningMethodHS256,
		signKey:   k,
		verifyKey: k,
	}, nil
}

// GenerateEd25519 crea una clave nueva y devuelve también la seed en base64
// (para guardarla en config). Usado en dev y por cmd/keys.
func GenerateEd25519(kid string) (*KeySet, string, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, "", err
	}
	ks, err := NewEd25519(kid, priv)
	if err != nil {
		return nil, "", err
	}
	return ks, base64.StdEncoding.EncodeToString(priv.Seed()), nil
}

// Load interpreta el material según alg:
//
//	EdDSA: seed de 32 bytes en base64 (std o url) o PEM PKCS#8
//	HS256: secreto crudo, o "base64:<...>"
func Load(alg, kid, material string) (*KeySet, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, fmt.Errorf("%w: empty signing key", ErrKeyMisconfigured)
	}
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", strings.ToUpper(AlgEdDSA), "ED25519":
		priv, err := parseEd25519(material)
		if err != nil {
			return nil, err
		}
		return NewEd25519(kid, priv)
	case AlgHS256:
		if b64, ok := strings.CutPrefix(material, "base64:"); ok {
			raw, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				return nil, fmt.Errorf("%w: hs256 secret: %v", ErrKeyMisconfigured, err)
			}
			return NewHMAC(kid, raw)
		}
		return NewHMAC(kid, []byte(material))
	}
	return nil, fmt.Errorf("%w: unsupported alg %q", ErrKeyMisconfigured, alg)
}

func parseEd25519(material string) (ed25519.PrivateKey, error) {
	if strings.HasPrefix(material, "-----BEGIN") {
		block, _ := pem.Decode([]byte(material))
		if block == nil {
			return nil, fmt.Errorf("%w: invalid PEM", ErrKeyMisconfigured)
		}
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyMisconfigured, err)
		}
		priv, ok := k.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PEM is not an ed25519 key", ErrKeyMisconfigured)
		}
		return priv, nil
	}

	var seed []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if seed, err = enc.DecodeString(material); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: ed25519 seed is not base64", ErrKeyMisconfigured)
	}
	switch len(seed) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(seed), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(seed), nil
	}
	return nil, fmt.Errorf("%w: ed25519 seed must be %d bytes, got %d", ErrKeyMisconfigured, ed25519.SeedSize, len(seed))
}

// PEM exporta la privada Ed25519 como PKCS#8 (cmd/keys).
func (k *KeySet) PEM() ([]byte, error) {
	priv, ok := k.signKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: PEM export only for EdDSA keys")
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func defaultKID(kid string) string {
	if kid = strings.TrimSpace(kid); kid != "" {
		return kid
	}
	return "mcgate-1"
}

// ----- JWKS -----

type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	X   string `json:"x"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// JWKSJSON publica solo claves asimétricas; con HS256 el set está vacío.
func (k *KeySet) JWKSJSON() []byte {
	j := jwks{Keys: []jwk{}}
	if k.pub != nil {
		j.Keys = append(j.Keys, jwk{
			Kty: "OKP",
			Crv: "Ed25519",
			Kid: k.KID,
			Alg: k.Alg,
			Use: "sig",
			X:   base64.RawURLEncoding.EncodeToString(k.pub),
		})
	}
	b, _ := json.Marshal(j)
	return b
}
