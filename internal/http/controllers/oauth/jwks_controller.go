package oauth

import (
	"net/http"

	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
)

// JWKSController sirve GET /.well-known/jwks.json. Con HS256 el set está vacío.
type JWKSController struct {
	body []byte
}

func NewJWKSController(keys *jwtx.KeySet) *JWKSController {
	return &JWKSController{body: keys.JWKSJSON()}
}

func (c *JWKSController) GetJWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.body)
}
