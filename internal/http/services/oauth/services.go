package oauth

import (
	"time"

	"github.com/dropDatabas3/mcgate/internal/audit"
	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/registry"
	"github.com/dropDatabas3/mcgate/internal/store/refresh"
)

// Deps contiene las dependencias para crear los services OAuth.
type Deps struct {
	Registry  *registry.Registry
	Issuer    *jwtx.Issuer
	Validator *jwtx.Validator
	Store     refresh.Store
	Audit     audit.Auditor

	RefreshTTL          time.Duration // default 30 days
	RevokeFamilyOnReuse bool
	// RestInstanceURL se devuelve tal cual en la respuesta de token.
	RestInstanceURL string

	// Now permite fijar el reloj en tests.
	Now func() time.Time
}

// Services agrupa todos los services del dominio OAuth.
type Services struct {
	Token      TokenService
	Revoke     RevokeService
	Introspect IntrospectService
}

// NewServices crea el agregador de services OAuth.
func NewServices(d Deps) Services {
	d = d.withDefaults()
	return Services{
		Token:      NewTokenService(d),
		Revoke:     NewRevokeService(d),
		Introspect: NewIntrospectService(d),
	}
}

func (d Deps) withDefaults() Deps {
	if d.RefreshTTL <= 0 {
		d.RefreshTTL = 30 * 24 * time.Hour
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}
