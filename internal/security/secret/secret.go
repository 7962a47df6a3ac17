// Package secret hashes and verifies client secrets.
//
// Formatos aceptados en el registro:
//
//	sha256:<hex>                          (y hex de 64 chars sin prefijo, formato del seed original)
//	$argon2id$v=19$m=..,t=..,p=..$<salt>$<dk>
//	$2a$ / $2b$ / $2y$                    (bcrypt)
//
// Todas las comparaciones son de tiempo constante.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm de hash para secretos nuevos.
type Algorithm string

const (
	SHA256   Algorithm = "sha256"
	Argon2id Algorithm = "argon2id"
	Bcrypt   Algorithm = "bcrypt"
)

var ErrUnknownFormat = errors.New("secret: unknown hash format")

// Argon2Params para Argon2id.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var DefaultArgon2 = Argon2Params{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// Topes para hashes cargados del registro: cada verificación los paga.
const (
	maxArgon2Memory = 256 * 1024 // KiB
	maxArgon2Time   = 10
)

// Hash codifica plain con el algoritmo pedido.
func Hash(alg Algorithm, plain string) (string, error) {
	if plain == "" {
		return "", errors.New("secret: empty secret")
	}
	switch alg {
	case SHA256, "":
		sum := sha256.Sum256([]byte(plain))
		return "sha256:" + hex.EncodeToString(sum[:]), nil
	case Argon2id:
		return hashArgon2(DefaultArgon2, plain)
	case Bcrypt:
		b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("secret: bcrypt: %w", err)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("secret: unsupported algorithm %q", alg)
}

// Verify compara plain contra encoded. Formatos desconocidos nunca verifican.
func Verify(plain, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, "sha256:"):
		return verifySHA256(plain, strings.TrimPrefix(encoded, "sha256:"))
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2(plain, encoded)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
	case len(encoded) == sha256.Size*2:
		return verifySHA256(plain, encoded)
	}
	return false
}

// CheckFormat valida que encoded sea un hash reconocible (para cargar el registro).
func CheckFormat(encoded string) error {
	switch {
	case strings.HasPrefix(encoded, "sha256:"):
		if _, err := hex.DecodeString(strings.TrimPrefix(encoded, "sha256:")); err != nil || len(encoded) != len("sha256:")+sha256.Size*2 {
			return fmt.Errorf("%w: bad sha256 digest", ErrUnknownFormat)
		}
		return nil
	case strings.HasPrefix(encoded, "$argon2id$"):
		if _, _, _, err := parseArgon2(encoded); err != nil {
			return err
		}
		return nil
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		if _, err := bcrypt.Cost([]byte(encoded)); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownFormat, err)
		}
		return nil
	case len(encoded) == sha256.Size*2:
		if _, err := hex.DecodeString(encoded); err != nil {
			return fmt.Errorf("%w: bad sha256 digest", ErrUnknownFormat)
		}
		return nil
	}
	return ErrUnknownFormat
}

// Dummy es un hash válido usado para igualar tiempos cuando el cliente no existe.
const Dummy = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Work estima el costo de verificar encoded, para comparar hashes entre sí.
func Work(encoded string) uint64 {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		p, _, _, err := parseArgon2(encoded)
		if err != nil {
			return 0
		}
		// escala aproximada: MiB·t de argon2id contra 2^cost de bcrypt
		return uint64(p.Memory) / 1024 * uint64(p.Time) * 16
	case strings.HasPrefix(encoded, "$2"):
		cost, err := bcrypt.Cost([]byte(encoded))
		if err != nil {
			return 0
		}
		return 1 << uint(cost)
	}
	return 0
}

// DummyLike genera un hash de un secreto aleatorio con el mismo esquema y
// parámetros que encoded, para igualar el tiempo de los clientes inexistentes.
func DummyLike(encoded string) (string, error) {
	plain := rand.Text()
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		p, _, _, err := parseArgon2(encoded)
		if err != nil {
			return "", err
		}
		return hashArgon2(p, plain)
	case strings.HasPrefix(encoded, "$2"):
		cost, err := bcrypt.Cost([]byte(encoded))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnknownFormat, err)
		}
		b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
		if err != nil {
			return "", fmt.Errorf("secret: bcrypt: %w", err)
		}
		return string(b), nil
	}
	return Dummy, nil
}

func verifySHA256(plain, hexDigest string) bool {
	want, err := hex.DecodeString(strings.ToLower(hexDigest))
	if err != nil {
		return false
	}
	got := sha256.Sum256([]byte(plain))
	return subtle.ConstantTimeCompare(got[:], want) == 1
}

func hashArgon2(p Argon2Params, plain string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// parseArgon2 separa el PHC string: "", "argon2id", "v=19", "m=..,t=..,p=..", salt, dk.
func parseArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad argon2id string", ErrUnknownFormat)
	}
	var (
		p    Argon2Params
		seen = map[string]bool{}
	)
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || seen[k] {
			return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad argon2id params", ErrUnknownFormat)
		}
		seen[k] = true
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad argon2id params", ErrUnknownFormat)
		}
		switch k {
		case "m":
			if n < 8 || n > maxArgon2Memory {
				return Argon2Params{}, nil, nil, fmt.Errorf("%w: argon2id m=%d out of range [8, %d]", ErrUnknownFormat, n, maxArgon2Memory)
			}
			p.Memory = uint32(n)
		case "t":
			if n < 1 || n > maxArgon2Time {
				return Argon2Params{}, nil, nil, fmt.Errorf("%w: argon2id t=%d out of range [1, %d]", ErrUnknownFormat, n, maxArgon2Time)
			}
			p.Time = uint32(n)
		case "p":
			if n < 1 || n > 255 {
				return Argon2Params{}, nil, nil, fmt.Errorf("%w: argon2id p=%d out of range [1, 255]", ErrUnknownFormat, n)
			}
			p.Parallelism = uint8(n)
		default:
			return Argon2Params{}, nil, nil, fmt.Errorf("%w: unknown argon2id param %q", ErrUnknownFormat, k)
		}
	}
	if !seen["m"] || !seen["t"] || !seen["p"] {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: argon2id needs m, t and p", ErrUnknownFormat)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad argon2id salt", ErrUnknownFormat)
	}
	dk, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(dk) == 0 {
		return Argon2Params{}, nil, nil, fmt.Errorf("%w: bad argon2id key", ErrUnknownFormat)
	}
	p.KeyLen = uint32(len(dk))
	return p, salt, dk, nil
}

func verifyArgon2(plain, encoded string) bool {
	p, salt, dk, err := parseArgon2(encoded)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return subtle.ConstantTimeCompare(key, dk) == 1
}
