package oauth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/mcgate/internal/http/dto/oauth"
	"github.com/dropDatabas3/mcgate/internal/http/errors"
	"github.com/dropDatabas3/mcgate/internal/http/helpers"
	svc "github.com/dropDatabas3/mcgate/internal/http/services/oauth"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
)

// TokenController handles POST /v1/auth/token and POST /v1/auth/refresh.
type TokenController struct {
	service svc.TokenService
}

// NewTokenController creates the controller.
func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

// Token handles POST /v1/auth/token.
// Implements: Client Credentials and Refresh Token grants.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.token"))

	var req dto.TokenRequest
	if !helpers.ReadBody(w, r, &req) {
		return
	}
	grant := strings.TrimSpace(req.GrantType)
	log = log.With(logger.String("grant_type", grant))

	var (
		resp *svc.TokenResponse
		err  error
	)
	switch grant {
	case dto.GrantClientCredentials:
		if req.ClientID == "" || req.ClientSecret == "" {
			errors.WriteError(w, errors.ErrInvalidRequest.WithDetail("client_id, client_secret, and grant_type are required"))
			return
		}
		resp, err = c.service.IssueClientCredentials(ctx, svc.ClientCredentialsRequest{
			ClientID:     strings.TrimSpace(req.ClientID),
			ClientSecret: req.ClientSecret,
			Scope:        strings.TrimSpace(req.Scope),
		})
	case dto.GrantRefreshToken:
		if req.RefreshToken == "" {
			errors.WriteError(w, errors.ErrInvalidRequest.WithDetail("refresh_token is required"))
			return
		}
		resp, err = c.service.Refresh(ctx, svc.RefreshRequest{
			RefreshToken: strings.TrimSpace(req.RefreshToken),
			ClientID:     strings.TrimSpace(req.ClientID),
		})
	default:
		errors.WriteError(w, errors.ErrUnsupportedGrantType.WithDetail("grant_type: "+grant))
		return
	}

	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	log.Debug("token issued")
	c.writeTokenResponse(w, r, resp)
}

// Refresh handles POST /v1/auth/refresh.
func (c *TokenController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !helpers.ReadBody(w, r, &req) {
		return
	}
	resp, err := c.service.Refresh(r.Context(), svc.RefreshRequest{
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		ClientID:     strings.TrimSpace(req.ClientID),
	})
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	c.writeTokenResponse(w, r, resp)
}

func (c *TokenController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.FromDomain(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("token endpoint error", logger.Err(err))
	}
	errors.WriteError(w, appErr)
}

func (c *TokenController) writeTokenResponse(w http.ResponseWriter, r *http.Request, resp *svc.TokenResponse) {
	if resp.RestInstanceURL == "" {
		resp.RestInstanceURL = baseURL(r)
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// baseURL arma scheme://host del request, respetando X-Forwarded-Proto.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
