package oauth

import "github.com/dropDatabas3/mcgate/internal/http/helpers"

// RevokeRequest holds the body for POST /v1/auth/revoke.
type RevokeRequest struct {
	RefreshToken string           `json:"refresh_token" validate:"required"`
	RevokeAll    helpers.FlexBool `json:"revoke_all"`
	ClientID     string           `json:"client_id"`
}

// VerifyRequest holds the body for POST /v1/auth/verify.
type VerifyRequest struct {
	Token         string `json:"token" validate:"required"`
	TokenTypeHint string `json:"token_type_hint" validate:"omitempty,oneof=access_token refresh_token"`
}
