package middlewares

import (
	"context"

	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/rate"
)

type ctxKey string

const (
	// ctxIdentityKey guarda la identidad validada del bearer token
	ctxIdentityKey ctxKey = "identity"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
	// ctxCategoryKey guarda la categoría de rate efectiva
	ctxCategoryKey ctxKey = "rate_category"
)

// WithIdentity inyecta la identidad en el contexto.
func WithIdentity(ctx context.Context, id jwtx.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

func setCategory(ctx context.Context, c rate.Category) context.Context {
	return context.WithValue(ctx, ctxCategoryKey, c)
}

// GetIdentity devuelve la identidad admitida por el gatekeeper.
// ok es false si el request no pasó por Require.
func GetIdentity(ctx context.Context) (jwtx.Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey).(jwtx.Identity)
	return id, ok
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return v
	}
	return ""
}

// GetCategory devuelve la categoría con la que se contó el request.
func GetCategory(ctx context.Context) (rate.Category, bool) {
	c, ok := ctx.Value(ctxCategoryKey).(rate.Category)
	return c, ok
}
