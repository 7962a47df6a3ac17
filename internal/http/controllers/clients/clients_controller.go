// Package clients expone el catálogo de clientes y permisos.
package clients

import (
	"net/http"

	"github.com/dropDatabas3/mcgate/internal/http/helpers"
	"github.com/dropDatabas3/mcgate/internal/registry"
	"github.com/dropDatabas3/mcgate/internal/scope"
)

type clientView struct {
	ClientID     string    `json:"client_id"`
	Name         string    `json:"name"`
	Permissions  scope.Set `json:"permissions"`
	RateCategory string    `json:"rate_category"`
}

// Controller sirve GET /v1/auth/clients y GET /v1/auth/permissions.
type Controller struct {
	reg *registry.Registry
}

func NewController(reg *registry.Registry) *Controller {
	return &Controller{reg: reg}
}

// List devuelve los clientes registrados sin sus secretos.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	all := c.reg.Clients()
	out := make([]clientView, 0, len(all))
	for _, cl := range all {
		out = append(out, clientView{
			ClientID:     cl.ID,
			Name:         cl.Name,
			Permissions:  cl.Scopes,
			RateCategory: string(cl.Category),
		})
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"clients": out,
		"total":   len(out),
	})
}

// Permissions devuelve el catálogo público de permisos.
func (c *Controller) Permissions(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"permissions": scope.Catalog,
		"total":       len(scope.Catalog),
	})
}
