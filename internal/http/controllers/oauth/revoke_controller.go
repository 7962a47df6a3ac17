package oauth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/mcgate/internal/http/dto/oauth"
	"github.com/dropDatabas3/mcgate/internal/http/errors"
	"github.com/dropDatabas3/mcgate/internal/http/helpers"
	svc "github.com/dropDatabas3/mcgate/internal/http/services/oauth"
)

// RevokeController handles POST /v1/auth/revoke.
type RevokeController struct {
	service svc.RevokeService
}

func NewRevokeController(s svc.RevokeService) *RevokeController {
	return &RevokeController{service: s}
}

// Revoke revoca la familia del token (o todas las del cliente con revoke_all).
// Tokens desconocidos responden 200 con revoked=false.
func (c *RevokeController) Revoke(w http.ResponseWriter, r *http.Request) {
	var req dto.RevokeRequest
	if !helpers.ReadBody(w, r, &req) {
		return
	}
	res, err := c.service.Revoke(r.Context(), svc.RevokeRequest{
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		RevokeAll:    bool(req.RevokeAll),
		ClientID:     strings.TrimSpace(req.ClientID),
	})
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}
