package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/mcgate/internal/audit"
	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/metrics"
	"github.com/dropDatabas3/mcgate/internal/observability/logger"
	"github.com/dropDatabas3/mcgate/internal/registry"
	"github.com/dropDatabas3/mcgate/internal/scope"
	tokens "github.com/dropDatabas3/mcgate/internal/security/token"
	"github.com/dropDatabas3/mcgate/internal/store/refresh"
)

// tokenService implements TokenService.
type tokenService struct {
	reg                 *registry.Registry
	issuer              *jwtx.Issuer
	store               refresh.Store
	audit               audit.Auditor
	refreshTTL          time.Duration
	revokeFamilyOnReuse bool
	restURL             string
	now                 func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(d Deps) TokenService {
	d = d.withDefaults()
	return &tokenService{
		reg:                 d.Registry,
		issuer:              d.Issuer,
		store:               d.Store,
		audit:               d.Audit,
		refreshTTL:          d.RefreshTTL,
		revokeFamilyOnReuse: d.RevokeFamilyOnReuse,
		restURL:             d.RestInstanceURL,
		now:                 d.Now,
	}
}

// IssueClientCredentials handles grant_type=client_credentials.
func (s *tokenService) IssueClientCredentials(ctx context.Context, req ClientCredentialsRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.clientcreds"))

	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, ErrInvalidRequest
	}

	client, ok := s.reg.Authenticate(req.ClientID, req.ClientSecret)
	if !ok {
		log.Warn("invalid client credentials", logger.ClientID(req.ClientID))
		return nil, ErrInvalidClient
	}

	granted := client.Scopes
	if req.Scope != "" {
		requested, err := scope.ParseStrict(req.Scope)
		if err != nil {
			log.Warn("malformed scope", logger.Scope(req.Scope), logger.Err(err))
			return nil, ErrInvalidScope
		}
		if missing := client.Scopes.Missing(requested); len(missing) > 0 {
			log.Warn("scope not allowed", logger.ClientID(client.ID), logger.Any("missing", missing))
			return nil, ErrInvalidScope
		}
		granted = requested
	}

	plain, rec, err := s.newRefresh(client.ID, uuid.NewString(), "", granted)
	if err != nil {
		log.Error("failed to create refresh token", logger.Err(err))
		return nil, ErrServerError
	}
	if err := s.store.Save(ctx, rec); err != nil {
		log.Error("failed to save refresh token", logger.Err(err))
		return nil, storeErr(err)
	}

	resp, err := s.respond(client, granted, plain, rec)
	if err != nil {
		log.Error("failed to issue access token", logger.Err(err))
		return nil, ErrServerError
	}

	metrics.TokensIssued.WithLabelValues("client_credentials").Inc()
	log.Info("client_credentials issued",
		logger.ClientID(client.ID),
		logger.Scope(resp.Scope),
		logger.Family(rec.FamilyID),
	)
	return resp, nil
}

// Refresh handles grant_type=refresh_token. The presented token is exchanged
// exactly once; a second exchange is a replay.
func (s *tokenService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.refresh"))

	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest
	}

	oldID := tokens.SHA256Base64URL(req.RefreshToken)
	log = log.With(logger.TokenRef(oldID))

	old, err := s.store.Get(ctx, oldID)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			s.fail(log, "not_found", req.ClientID)
			return nil, ErrRefreshNotFound
		}
		log.Error("refresh store lookup failed", logger.Err(err))
		return nil, storeErr(err)
	}
	log = log.With(logger.ClientID(old.ClientID), logger.Family(old.FamilyID))

	if req.ClientID != "" && req.ClientID != old.ClientID {
		s.fail(log, "client_mismatch", req.ClientID)
		return nil, ErrRefreshNotFound
	}

	client, err := s.reg.Lookup(old.ClientID)
	if err != nil {
		// el cliente ya no existe: la familia entera muere
		if rerr := s.store.RevokeFamily(ctx, old.FamilyID); rerr != nil {
			log.Warn("failed to revoke family of removed client", logger.Err(rerr))
		}
		s.fail(log, "client_removed", old.ClientID)
		return nil, ErrInvalidClient
	}

	granted := old.Scopes.Intersect(client.Scopes)
	plain, next, err := s.newRefresh(client.ID, old.FamilyID, old.ID, granted)
	if err != nil {
		log.Error("failed to create refresh token", logger.Err(err))
		return nil, ErrServerError
	}

	err = s.store.Rotate(ctx, refresh.Rotation{
		OldID:               old.ID,
		Next:                next,
		Now:                 s.now(),
		RevokeFamilyOnReuse: s.revokeFamilyOnReuse,
	})
	switch {
	case err == nil:
	case errors.Is(err, refresh.ErrReused):
		log.Warn("refresh token replay detected",
			logger.Bool("family_revoked", s.revokeFamilyOnReuse),
			logger.String("event", "security.refresh_reuse"),
		)
		s.fail(log, "reused", old.ClientID)
		return nil, ErrRefreshReused
	case errors.Is(err, refresh.ErrRevoked):
		s.fail(log, "revoked", old.ClientID)
		return nil, ErrRefreshRevoked
	case errors.Is(err, refresh.ErrExpired):
		s.fail(log, "expired", old.ClientID)
		return nil, ErrRefreshExpired
	case errors.Is(err, refresh.ErrNotFound):
		s.fail(log, "not_found", old.ClientID)
		return nil, ErrRefreshNotFound
	default:
		log.Error("refresh rotation failed", logger.Err(err))
		return nil, storeErr(err)
	}

	resp, err := s.respond(client, granted, plain, next)
	if err != nil {
		log.Error("failed to issue access token", logger.Err(err))
		return nil, ErrServerError
	}

	metrics.TokensIssued.WithLabelValues("refresh_token").Inc()
	log.Info("refresh_token rotated", logger.Scope(resp.Scope))
	return resp, nil
}

func (s *tokenService) newRefresh(clientID, familyID, parentID string, scopes scope.Set) (string, refresh.Record, error) {
	plain, id, err := tokens.NewRefreshToken()
	if err != nil {
		return "", refresh.Record{}, err
	}
	now := s.now().UTC()
	return plain, refresh.Record{
		ID:        id,
		ClientID:  clientID,
		FamilyID:  familyID,
		ParentID:  parentID,
		Scopes:    scopes,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

func (s *tokenService) respond(client registry.Client, scopes scope.Set, plain string, rec refresh.Record) (*TokenResponse, error) {
	at, err := s.issuer.IssueAccess(client.ID, scopes)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:      at.Raw,
		RefreshToken:     plain,
		TokenType:        "Bearer",
		ExpiresIn:        int64(at.ExpiresAt.Sub(at.IssuedAt).Seconds()),
		RefreshExpiresIn: int64(rec.ExpiresAt.Sub(rec.IssuedAt).Seconds()),
		Scope:            scopes.String(),
		ClientName:       client.Name,
		RestInstanceURL:  s.restURL,
	}, nil
}

// fail cuenta, loguea y audita un refresh rechazado.
func (s *tokenService) fail(log *zap.Logger, reason, clientID string) {
	metrics.RefreshFailures.WithLabelValues(reason).Inc()
	log.Info("refresh rejected", logger.Reason(reason))
	s.audit.Record(audit.Entry{
		ClientID: clientID,
		Method:   "POST",
		Endpoint: "refresh",
		Category: "auth",
		Decision: audit.DecisionDenied,
		Reason:   "refresh_" + reason,
		At:       s.now().UTC(),
	})
}

func storeErr(err error) error {
	if errors.Is(err, refresh.ErrUnavailable) {
		return ErrStoreUnavailable
	}
	return ErrServerError
}
