package health

import (
	"net/http"
	"strings"
	"time"

	dto "github.com/dropDatabas3/mcgate/internal/http/dto/health"
	"github.com/dropDatabas3/mcgate/internal/http/helpers"
	svc "github.com/dropDatabas3/mcgate/internal/http/services/health"
	"github.com/dropDatabas3/mcgate/internal/rate"
)

// HealthController sirve /health, /readyz y /v1.
type HealthController struct {
	service svc.HealthService
	info    dto.InfoResponse
}

func NewHealthController(s svc.HealthService, version string, policies map[rate.Category]rate.Policy) *HealthController {
	limits := make(map[string]string, len(policies))
	for c, p := range policies {
		qs := make([]string, 0, len(p.Quotas))
		for _, q := range p.Quotas {
			qs = append(qs, q.String())
		}
		limits[string(c)] = strings.Join(qs, "; ")
	}
	return &HealthController{
		service: s,
		info: dto.InfoResponse{
			Name:    "Marketing Cloud API Emulator",
			Version: version,
			Endpoints: map[string]string{
				"auth":       "/v1/auth",
				"contacts":   "/contacts/v1",
				"campaigns":  "/campaigns/v1",
				"email":      "/email/v1",
				"data":       "/data/v1",
				"assets":     "/assets/v1",
				"health":     "/health",
				"jwks":       "/.well-known/jwks.json",
				"permission": "/v1/auth/permissions",
			},
			RateLimits: limits,
		},
	}
}

// Health es el liveness: no toca dependencias.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   c.info.Version,
	})
}

// Ready hace ping a los stores. 503 solo si falla un componente crítico.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	resp := c.service.Check(r.Context())
	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, status, resp)
}

// Info describe la API emulada.
func (c *HealthController) Info(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, c.info)
}
