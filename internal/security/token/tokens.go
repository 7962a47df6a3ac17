package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// RefreshTokenBytes: 256 bits de entropía por refresh token.
const RefreshTokenBytes = 32

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding. Es la
// clave con la que se guarda un token opaco; el texto plano no se persiste.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewRefreshToken devuelve el token para el cliente y su id de almacenamiento.
func NewRefreshToken() (plain, id string, err error) {
	plain, err = GenerateOpaqueToken(RefreshTokenBytes)
	if err != nil {
		return "", "", err
	}
	return plain, SHA256Base64URL(plain), nil
}
