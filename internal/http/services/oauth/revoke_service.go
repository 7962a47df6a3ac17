package oauth

import (
	"context"
	"errors"

	"github.com/dropDatabas3/mcgate/internal/observability/logger"
	tokens "github.com/dropDatabas3/mcgate/internal/security/token"
	"github.com/dropDatabas3/mcgate/internal/store/refresh"
)

// RevokeService defines operations for token revocation.
type RevokeService interface {
	Revoke(ctx context.Context, req RevokeRequest) (*RevokeResult, error)
}

// RevokeRequest: RevokeAll extiende la revocación a todas las familias del
// dueño del token. ClientID, si viene, debe ser el dueño.
type RevokeRequest struct {
	RefreshToken string
	RevokeAll    bool
	ClientID     string
}

// RevokeResult reports what was revoked. Unknown tokens yield Revoked=false.
type RevokeResult struct {
	Revoked  bool `json:"revoked"`
	Families int  `json:"families"`
}

type revokeService struct {
	store refresh.Store
}

// NewRevokeService creates a new RevokeService.
func NewRevokeService(d Deps) RevokeService {
	return &revokeService{store: d.Store}
}

// Revoke revokes the token's family. Idempotent: unknown or already revoked
// tokens succeed.
func (s *revokeService) Revoke(ctx context.Context, req RevokeRequest) (*RevokeResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.revoke"),
		logger.Op("Revoke"),
	)

	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest
	}

	id := tokens.SHA256Base64URL(req.RefreshToken)
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			log.Debug("token not found (idempotent success)", logger.TokenRef(id))
			return &RevokeResult{}, nil
		}
		log.Error("refresh store lookup failed", logger.Err(err))
		return nil, storeErr(err)
	}
	if req.ClientID != "" && req.ClientID != rec.ClientID {
		// no revelar que el token existe para otro cliente
		log.Warn("revoke by non-owner ignored", logger.ClientID(req.ClientID), logger.TokenRef(id))
		return &RevokeResult{}, nil
	}

	if req.RevokeAll {
		n, err := s.store.RevokeClient(ctx, rec.ClientID)
		if err != nil {
			log.Error("client-wide revoke failed", logger.ClientID(rec.ClientID), logger.Err(err))
			return nil, storeErr(err)
		}
		log.Info("all client tokens revoked", logger.ClientID(rec.ClientID), logger.Count(n))
		return &RevokeResult{Revoked: true, Families: n}, nil
	}

	if err := s.store.RevokeFamily(ctx, rec.FamilyID); err != nil {
		log.Error("family revoke failed", logger.Family(rec.FamilyID), logger.Err(err))
		return nil, storeErr(err)
	}
	log.Info("token family revoked", logger.ClientID(rec.ClientID), logger.Family(rec.FamilyID))
	return &RevokeResult{Revoked: true, Families: 1}, nil
}
