package errors

import (
	stderrors "errors"
	"strings"

	svc "github.com/dropDatabas3/mcgate/internal/http/services/oauth"
	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/store/refresh"
)

// FromDomain traduce los sentinels de oauth, jwt y refresh.
// Cualquier otro error es INTERNAL_ERROR con la causa adjunta.
func FromDomain(err error) *AppError {
	switch {
	case err == nil:
		return ErrInternalServerError

	case stderrors.Is(err, svc.ErrInvalidRequest):
		return ErrInvalidRequest.WithCause(err)
	case stderrors.Is(err, svc.ErrUnsupportedGrantType):
		return ErrUnsupportedGrantType.WithCause(err)
	case stderrors.Is(err, svc.ErrInvalidScope):
		return ErrInvalidScope.WithCause(err)
	case stderrors.Is(err, svc.ErrInvalidClient):
		return ErrInvalidCredentials.WithCause(err)

	case stderrors.Is(err, svc.ErrRefreshReused):
		return ErrRefreshReused.WithCause(err)
	case stderrors.Is(err, svc.ErrRefreshRevoked):
		return ErrRefreshRevoked.WithCause(err)
	case stderrors.Is(err, svc.ErrRefreshExpired):
		return ErrRefreshExpired.WithCause(err)
	case stderrors.Is(err, svc.ErrRefreshNotFound):
		return ErrRefreshInvalid.WithCause(err)

	case stderrors.Is(err, svc.ErrStoreUnavailable), stderrors.Is(err, refresh.ErrUnavailable):
		return ErrStoreUnavailable.WithCause(err)

	case stderrors.Is(err, jwtx.ErrExpired):
		return ErrTokenExpired.WithCause(err)
	case stderrors.Is(err, jwtx.ErrInsufficientScope):
		var se *jwtx.ScopeError
		if stderrors.As(err, &se) {
			return ErrInsufficientScope.WithDetail("Required permission: " + strings.Join(se.Missing, " ")).WithCause(err)
		}
		return ErrInsufficientScope.WithCause(err)
	case stderrors.Is(err, jwtx.ErrMalformed),
		stderrors.Is(err, jwtx.ErrInvalidSignature),
		stderrors.Is(err, jwtx.ErrInvalidIssuer),
		stderrors.Is(err, jwtx.ErrNotYetValid):
		return ErrTokenInvalid.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}
