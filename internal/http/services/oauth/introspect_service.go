package oauth

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
	"github.com/dropDatabas3/mcgate/internal/scope"
	tokens "github.com/dropDatabas3/mcgate/internal/security/token"
	"github.com/dropDatabas3/mcgate/internal/store/refresh"
)

// IntrospectService defines operations for token introspection.
type IntrospectService interface {
	Introspect(ctx context.Context, token, hint string) (*IntrospectResult, error)
}

// IntrospectResult is the verify endpoint body. Inactive tokens only carry
// Active=false and, when known, Reason.
type IntrospectResult struct {
	Active    bool   `json:"active"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

const (
	HintAccessToken  = "access_token"
	HintRefreshToken = "refresh_token"
)

type introspectService struct {
	validator *jwtx.Validator
	store     refresh.Store
	now       func() time.Time
}

// NewIntrospectService creates a new IntrospectService.
func NewIntrospectService(d Deps) IntrospectService {
	d = d.withDefaults()
	return &introspectService{validator: d.Validator, store: d.Store, now: d.Now}
}

// Introspect analyzes a token and returns its status. Always returns a
// result for well-formed input; inactive tokens return Active=false.
func (s *introspectService) Introspect(ctx context.Context, token, hint string) (*IntrospectResult, error) {
	if token == "" {
		return nil, ErrInvalidRequest
	}

	// los refresh son opacos (sin puntos); los access son JWT compactos
	isRefresh := hint == HintRefreshToken || (hint == "" && !strings.Contains(token, "."))
	if isRefresh {
		return s.introspectRefresh(ctx, token)
	}
	return s.introspectAccess(ctx, token), nil
}

func (s *introspectService) introspectAccess(ctx context.Context, token string) *IntrospectResult {
	id, err := s.validator.ValidateAt(token, scope.Set{}, s.now())
	if err != nil {
		logger.From(ctx).Debug("access token inactive", logger.Layer("service"), logger.Err(err))
		return &IntrospectResult{Active: false, Reason: inactiveReason(err)}
	}
	return &IntrospectResult{
		Active:    true,
		ClientID:  id.ClientID,
		Scope:     id.Scopes.String(),
		Exp:       id.ExpiresAt.Unix(),
		Iat:       id.IssuedAt.Unix(),
		TokenType: HintAccessToken,
	}
}

func (s *introspectService) introspectRefresh(ctx context.Context, token string) (*IntrospectResult, error) {
	rec, err := s.store.Get(ctx, tokens.SHA256Base64URL(token))
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return &IntrospectResult{Active: false, Reason: "not_found"}, nil
		}
		logger.From(ctx).Error("refresh store lookup failed", logger.Layer("service"), logger.Err(err))
		return nil, storeErr(err)
	}

	out := &IntrospectResult{
		ClientID:  rec.ClientID,
		Scope:     rec.Scopes.String(),
		Exp:       rec.ExpiresAt.Unix(),
		Iat:       rec.IssuedAt.Unix(),
		TokenType: HintRefreshToken,
	}
	switch {
	case rec.Revoked:
		out.Reason = "revoked"
	case rec.Used:
		out.Reason = "used"
	case !s.now().Before(rec.ExpiresAt):
		out.Reason = "expired"
	default:
		out.Active = true
	}
	if !out.Active {
		return &IntrospectResult{Active: false, Reason: out.Reason}, nil
	}
	return out, nil
}

func inactiveReason(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return "expired"
	case errors.Is(err, jwtx.ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, jwtx.ErrInvalidSignature), errors.Is(err, jwtx.ErrInvalidIssuer):
		return "invalid_signature"
	default:
		return "malformed"
	}
}
