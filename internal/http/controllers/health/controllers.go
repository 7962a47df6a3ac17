// Package health contiene los controllers de health check e info.
package health

import (
	svc "github.com/dropDatabas3/mcgate/internal/http/services/health"
	"github.com/dropDatabas3/mcgate/internal/rate"
)

// Controllers agrupa todos los controllers del dominio health.
type Controllers struct {
	Health *HealthController
}

// NewControllers crea el agregador de controllers health.
func NewControllers(s svc.Services, version string, policies map[rate.Category]rate.Policy) *Controllers {
	return &Controllers{
		Health: NewHealthController(s.Health, version, policies),
	}
}
