package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	dto "github.com/dropDatabas3/mcgate/internal/http/dto/health"
)

// Pinger es cualquier dependencia con chequeo de salud.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component es una dependencia chequeada por /readyz. Critical decide si su
// falla deja el servicio "unavailable" o solo "degraded".
type Component struct {
	Name     string
	Pinger   Pinger
	Critical bool
}

// Deps contiene las dependencias del health service.
type Deps struct {
	Components []Component
	Version    string
	KeyID      string
	Timeout    time.Duration
}

// HealthService chequea las dependencias del proceso.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

type healthService struct {
	d Deps
}

func NewHealthService(d Deps) HealthService {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	return &healthService{d: d}
}

// Check hace ping a todos los componentes en paralelo.
func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, s.d.Timeout)
	defer cancel()

	results := make([]error, len(s.d.Components))
	var g errgroup.Group
	for i, c := range s.d.Components {
		if c.Pinger == nil {
			continue
		}
		g.Go(func() error {
			results[i] = c.Pinger.Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := dto.HealthResponse{
		Status:      "ready",
		Components:  make(map[string]dto.HealthStatus, len(s.d.Components)),
		Version:     s.d.Version,
		ActiveKeyID: s.d.KeyID,
		Timestamp:   time.Now().UTC(),
	}
	for i, c := range s.d.Components {
		switch {
		case c.Pinger == nil:
			resp.Components[c.Name] = dto.HealthStatus{Status: "disabled"}
		case results[i] != nil:
			resp.Components[c.Name] = dto.HealthStatus{Status: "error", Message: results[i].Error()}
			if c.Critical {
				resp.Status = "unavailable"
			} else if resp.Status == "ready" {
				resp.Status = "degraded"
			}
		default:
			resp.Components[c.Name] = dto.HealthStatus{Status: "ok"}
		}
	}
	return resp
}
