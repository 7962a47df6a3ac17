package registry

import (
	"github.com/dropDatabas3/mcgate/internal/rate"
	"github.com/dropDatabas3/mcgate/internal/scope"
)

// Digests SHA-256 de los secretos de los clientes de demo de la API emulada:
// super_secret_key_123, analytics_secret_456, mobile_secret_789.
const (
	marketingAppHash = "sha256:76c003030ee8ad7476629cb88a2771fe5ceb714a10c90e1dcca42ab631f68656"
	analyticsHash    = "sha256:8485cfd4edf4dfd47a2803a13160d67469d44143a06f5729bef40b4eeb2eaad9"
	mobileHash       = "sha256:642aad7ff0e00a13bb6376dbe152fb775b36b14e6a07eb54dec128eff0c391e1"
)

// Defaults returns the three seeded demo clients.
func Defaults() []Client {
	return []Client{
		{
			ID:         "marketing_cloud_app_1",
			Name:       "Marketing Cloud App",
			SecretHash: marketingAppHash,
			Scopes:     scope.All(),
			Category:   rate.Standard,
		},
		{
			ID:         "analytics_dashboard",
			Name:       "Analytics Dashboard",
			SecretHash: analyticsHash,
			Scopes:     scope.New("contacts:read", "campaigns:read", "data_events:read"),
			Category:   rate.Standard,
		},
		{
			ID:         "mobile_app_client",
			Name:       "Mobile App Client",
			SecretHash: mobileHash,
			Scopes:     scope.New("contacts:read", "assets:read"),
			Category:   rate.Standard,
		},
	}
}
