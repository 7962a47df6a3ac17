package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/mcgate/internal/scope"
)

// Identity es lo que el gatekeeper adjunta al request.
type Identity struct {
	ClientID  string
	Scopes    scope.Set
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Validator verifica access tokens. No hace I/O ni guarda estado mutable:
// es seguro bajo concurrencia ilimitada.
type Validator struct {
	keys   *KeySet
	iss    string
	leeway time.Duration
	now    func() time.Time
	parser *jwtv5.Parser
}

// NewValidator: iss vacío desactiva el chequeo de issuer.
func NewValidator(keys *KeySet, iss string) *Validator {
	return &Validator{
		keys:   keys,
		iss:    iss,
		leeway: 5 * time.Second,
		now:    time.Now,
		// exp/nbf se validan acá abajo para controlar el orden y el tipo de error
		parser: jwtv5.NewParser(
			jwtv5.WithValidMethods([]string{keys.Alg}),
			jwtv5.WithoutClaimsValidation(),
		),
	}
}

// WithClock fija el reloj (tests).
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate verifica raw contra la hora actual.
func (v *Validator) Validate(raw string, required scope.Set) (Identity, error) {
	return v.ValidateAt(raw, required, v.now())
}

// ValidateAt chequea en orden: formato, firma, issuer, expiración, scope.
// El primer fallo determina el error.
func (v *Validator) ValidateAt(raw string, required scope.Set, now time.Time) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMalformed
	}

	claims := &AccessClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, v.keyfunc)
	if err != nil {
		switch {
		case errors.Is(err, jwtv5.ErrTokenMalformed):
			return Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		default:
			return Identity{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	if claims.ExpiresAt == nil || claims.ClientID == "" || claims.TokenUse != TokenUseAccess {
		return Identity{}, ErrMalformed
	}
	if v.iss != "" && claims.Issuer != v.iss {
		return Identity{}, ErrInvalidIssuer
	}

	// exp sin tolerancia: inválido desde el instante exp en adelante
	exp := claims.ExpiresAt.Time
	if !now.Before(exp) {
		return Identity{}, ErrExpired
	}
	if claims.NotBefore != nil && now.Add(v.leeway).Before(claims.NotBefore.Time) {
		return Identity{}, ErrNotYetValid
	}

	granted := scope.Parse(claims.Scope)
	if missing := granted.Missing(required); len(missing) > 0 {
		return Identity{}, &ScopeError{Missing: missing}
	}

	id := Identity{
		ClientID:  claims.ClientID,
		Scopes:    granted,
		TokenID:   claims.ID,
		ExpiresAt: exp,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	return id, nil
}

func (v *Validator) keyfunc(t *jwtv5.Token) (any, error) {
	if kid, _ := t.Header["kid"].(string); kid != "" && kid != v.keys.KID {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return v.keys.verifyKey, nil
}
