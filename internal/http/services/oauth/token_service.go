// Package oauth contiene los services del token endpoint: emisión por
// client_credentials, rotación de refresh tokens, revocación e introspección.
package oauth

import (
	"context"
	"errors"
	"fmt"
)

// TokenService handles the token and refresh endpoints.
type TokenService interface {
	// IssueClientCredentials handles grant_type=client_credentials.
	IssueClientCredentials(ctx context.Context, req ClientCredentialsRequest) (*TokenResponse, error)

	// Refresh handles grant_type=refresh_token (single-use rotation).
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
}

// ClientCredentialsRequest contains parameters for client_credentials grant.
type ClientCredentialsRequest struct {
	ClientID     string
	ClientSecret string
	Scope        string
}

// RefreshRequest contains parameters for refresh_token grant.
// ClientID is optional; when present it must own the token.
type RefreshRequest struct {
	RefreshToken string
	ClientID     string
}

// TokenResponse is the token pair returned by both grants.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Scope            string `json:"scope"`
	ClientName       string `json:"client_name,omitempty"`
	RestInstanceURL  string `json:"rest_instance_url,omitempty"`
}

// Token endpoint errors.
var (
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidScope         = errors.New("invalid_scope")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrServerError          = errors.New("server_error")
	ErrStoreUnavailable     = errors.New("store_unavailable")

	ErrRefreshNotFound = errors.New("refresh token not found")
	ErrRefreshExpired  = errors.New("refresh token expired")

	// ErrRevokedOrReused agrupa los dos rechazos por lineage.
	ErrRevokedOrReused = errors.New("refresh token revoked or reused")
	ErrRefreshReused   = fmt.Errorf("refresh token reused: %w", ErrRevokedOrReused)
	ErrRefreshRevoked  = fmt.Errorf("refresh token revoked: %w", ErrRevokedOrReused)
)
