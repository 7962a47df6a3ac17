// Package oauth contiene los DTOs de los endpoints /v1/auth.
package oauth

const (
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

// TokenRequest holds the body for POST /v1/auth/token (JSON or form).
// client_secret is only required for client_credentials; the controller
// checks it per grant.
type TokenRequest struct {
	GrantType    string `json:"grant_type" validate:"required"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest holds the body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	GrantType    string `json:"grant_type" validate:"omitempty,eq=refresh_token"`
	ClientID     string `json:"client_id"`
}
