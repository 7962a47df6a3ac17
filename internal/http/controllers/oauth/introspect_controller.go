package oauth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/mcgate/internal/http/dto/oauth"
	"github.com/dropDatabas3/mcgate/internal/http/errors"
	"github.com/dropDatabas3/mcgate/internal/http/helpers"
	svc "github.com/dropDatabas3/mcgate/internal/http/services/oauth"
)

// IntrospectController handles POST /v1/auth/verify.
type IntrospectController struct {
	service svc.IntrospectService
}

func NewIntrospectController(s svc.IntrospectService) *IntrospectController {
	return &IntrospectController{service: s}
}

// Verify responde siempre 200 para tokens bien formados; active=false si no
// sirven.
func (c *IntrospectController) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if !helpers.ReadBody(w, r, &req) {
		return
	}
	res, err := c.service.Introspect(r.Context(), strings.TrimSpace(req.Token), req.TokenTypeHint)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, res)
}
