// Package health contiene DTOs para endpoints de health check.
package health

import "time"

// HealthStatus representa el estado de un componente específico.
type HealthStatus struct {
	Status  string `json:"status"`            // "ok" | "error" | "disabled"
	Message string `json:"message,omitempty"` // Detalle opcional
}

// HealthResponse es la respuesta de /readyz.
type HealthResponse struct {
	Status      string                  `json:"status"` // "ready" | "degraded" | "unavailable"
	Components  map[string]HealthStatus `json:"components"`
	Version     string                  `json:"version,omitempty"`
	ActiveKeyID string                  `json:"active_key_id,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
}

// InfoResponse es la respuesta de GET /v1.
type InfoResponse struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Endpoints   map[string]string `json:"endpoints"`
	RateLimits  map[string]string `json:"rate_limits"`
	Description string            `json:"description,omitempty"`
}
