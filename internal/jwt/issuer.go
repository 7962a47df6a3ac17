package jwt

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/mcgate/internal/scope"
)

// TokenUseAccess marca los JWT de acceso; el validator rechaza cualquier otro uso.
const TokenUseAccess = "access"

// AccessClaims son las claims del access token.
type AccessClaims struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
	TokenUse string `json:"token_use"`
	jwtv5.RegisteredClaims
}

// AccessToken es el token firmado más lo que se codificó en él.
type AccessToken struct {
	Raw       string
	ID        string
	ClientID  string
	Scopes    scope.Set
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer firma access tokens con el KeySet del proceso.
type Issuer struct {
	Iss       string
	Keys      *KeySet
	AccessTTL time.Duration

	now func() time.Time
}

func NewIssuer(iss string, keys *KeySet, accessTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 2 * time.Hour
	}
	return &Issuer{Iss: iss, Keys: keys, AccessTTL: accessTTL, now: time.Now}
}

// WithClock fija el reloj (tests).
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// IssueAccess firma un access token para clientID con scopes.
// iat/exp van truncados a segundos, igual que en el JWT.
func (i *Issuer) IssueAccess(clientID string, scopes scope.Set) (AccessToken, error) {
	now := i.now().UTC().Truncate(time.Second)
	exp := now.Add(i.AccessTTL)
	jti := uuid.NewString()

	claims := AccessClaims{
		ClientID: clientID,
		Scope:    scopes.String(),
		TokenUse: TokenUseAccess,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   clientID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
			ID:        jti,
		},
	}
	tk := jwtv5.NewWithClaims(i.Keys.method, claims)
	tk.Header["kid"] = i.Keys.KID
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.Keys.signKey)
	if err != nil {
		return AccessToken{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return AccessToken{
		Raw:       signed,
		ID:        jti,
		ClientID:  clientID,
		Scopes:    scopes,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}
