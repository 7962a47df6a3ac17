// Package oauth contiene los controllers de /v1/auth.
package oauth

import (
	svc "github.com/dropDatabas3/mcgate/internal/http/services/oauth"
	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
)

// Controllers agrupa todos los controllers del dominio OAuth.
type Controllers struct {
	Token      *TokenController
	Revoke     *RevokeController
	Introspect *IntrospectController
	JWKS       *JWKSController
}

// NewControllers crea el agregador de controllers OAuth.
func NewControllers(s svc.Services, keys *jwtx.KeySet) *Controllers {
	return &Controllers{
		Token:      NewTokenController(s.Token),
		Revoke:     NewRevokeController(s.Revoke),
		Introspect: NewIntrospectController(s.Introspect),
		JWKS:       NewJWKSController(keys),
	}
}
